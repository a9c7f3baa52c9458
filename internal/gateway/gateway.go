package gateway

import (
	"context"

	"github.com/google/uuid"
)

// Message is one inbound chat message as delivered by the platform gateway.
// TenantID is uuid.Nil for direct messages; reactions still match there,
// but the permission gate only applies inside a tenant.
type Message struct {
	ID          string    `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	ChannelID   uuid.UUID `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	AuthorID    uuid.UUID `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Content     string    `json:"content"`
}

// Mention is the platform's inline reference syntax for the message author.
func (m *Message) Mention() string {
	return "<@" + m.AuthorID.String() + ">"
}

// Client is the narrow slice of the chat platform this service needs:
// deliver a response, deliver it privately, delete the triggering message.
type Client interface {
	SendMessage(ctx context.Context, channelID uuid.UUID, content string) error
	SendDM(ctx context.Context, userID uuid.UUID, content string) error
	DeleteMessage(ctx context.Context, channelID uuid.UUID, messageID string) error
}
