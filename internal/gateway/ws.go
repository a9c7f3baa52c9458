package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Frame opcodes on the gateway websocket. Inbound frames carry message
// events; outbound frames carry send/delete commands.
const (
	opMessageCreate = "message.create"
	opSend          = "send"
	opSendDM        = "send_dm"
	opDelete        = "delete"
)

type frame struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

type sendCommand struct {
	ChannelID uuid.UUID `json:"channel_id,omitempty"`
	UserID    uuid.UUID `json:"user_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Content   string    `json:"content,omitempty"`
}

// WSClient speaks the gateway's JSON websocket protocol. One connection per
// shard; the gateway routes this shard's slice of tenants to it. Writes are
// serialized with a mutex because gorilla/websocket allows one concurrent
// writer.
type WSClient struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
}

func Dial(ctx context.Context, url string, logger *zap.Logger) (*WSClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway %s: %w", url, err)
	}
	logger.Info("gateway connected", zap.String("url", url))
	return &WSClient{conn: conn, logger: logger}, nil
}

// Run reads frames until the connection drops or ctx is cancelled, invoking
// onMessage for every inbound chat message. Malformed frames are logged and
// skipped: one bad producer must not kill the shard's message feed.
func (c *WSClient) Run(ctx context.Context, onMessage func(ctx context.Context, msg *Message)) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gateway read: %w", err)
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("malformed gateway frame", zap.Error(err))
			continue
		}
		if f.Op != opMessageCreate {
			continue
		}

		var msg Message
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			c.logger.Warn("malformed message event", zap.Error(err))
			continue
		}
		onMessage(ctx, &msg)
	}
}

func (c *WSClient) SendMessage(ctx context.Context, channelID uuid.UUID, content string) error {
	return c.write(opSend, sendCommand{ChannelID: channelID, Content: content})
}

func (c *WSClient) SendDM(ctx context.Context, userID uuid.UUID, content string) error {
	return c.write(opSendDM, sendCommand{UserID: userID, Content: content})
}

func (c *WSClient) DeleteMessage(ctx context.Context, channelID uuid.UUID, messageID string) error {
	return c.write(opDelete, sendCommand{ChannelID: channelID, MessageID: messageID})
}

func (c *WSClient) Close() error {
	return c.conn.Close()
}

func (c *WSClient) write(op string, cmd sendCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal %s command: %w", op, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(frame{Op: op, Data: data}); err != nil {
		return fmt.Errorf("write %s frame: %w", op, err)
	}
	return nil
}
