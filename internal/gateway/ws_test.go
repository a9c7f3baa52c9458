package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGateway is a websocket server that pushes one message event and
// records the frames the client writes back.
type fakeGateway struct {
	upgrader websocket.Upgrader
	event    Message
	frames   chan frame
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	data, _ := json.Marshal(g.event)
	conn.WriteJSON(frame{Op: opMessageCreate, Data: data})
	// Exercise the client's tolerance for unknown and malformed frames.
	conn.WriteJSON(frame{Op: "presence.update"})
	conn.WriteMessage(websocket.TextMessage, []byte("{not json"))

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		g.frames <- f
	}
}

func TestWSClientReceivesAndSends(t *testing.T) {
	event := Message{
		ID:         "m1",
		TenantID:   uuid.New(),
		ChannelID:  uuid.New(),
		AuthorID:   uuid.New(),
		AuthorName: "alice",
		Content:    "ping",
	}
	fg := &fakeGateway{event: event, frames: make(chan frame, 8)}
	server := httptest.NewServer(fg)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, err := Dial(ctx, url, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	received := make(chan *Message, 1)
	go client.Run(ctx, func(_ context.Context, msg *Message) {
		received <- msg
	})

	select {
	case msg := <-received:
		assert.Equal(t, event, *msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	require.NoError(t, client.SendMessage(ctx, event.ChannelID, "pong"))
	require.NoError(t, client.SendDM(ctx, event.AuthorID, "psst"))
	require.NoError(t, client.DeleteMessage(ctx, event.ChannelID, event.ID))

	ops := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		select {
		case f := <-fg.frames:
			ops = append(ops, f.Op)
		case <-time.After(2 * time.Second):
			t.Fatal("frame not received by server")
		}
	}
	assert.Equal(t, []string{opSend, opSendDM, opDelete}, ops)
}

func TestMessageMention(t *testing.T) {
	id := uuid.New()
	msg := &Message{AuthorID: id}
	assert.Equal(t, "<@"+id.String()+">", msg.Mention())
}
