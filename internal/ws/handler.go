package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/camelgame/backend/internal/game"
	"github.com/camelgame/backend/pkg/types"
)

const writeTimeout = 3 * time.Second

// Handler upgrades the connection, binds it to a coordinator session, and
// pumps events both ways until the socket dies.
func Handler(h *Hub, co *game.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: h.origins,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		id := uuid.NewString()
		cl := h.register(id)
		co.Inbox() <- game.Connect{Conn: id}
		defer func() {
			co.Inbox() <- game.Disconnect{Conn: id}
			h.unregister(id)
		}()

		// Writer goroutine: drains the client's outbox onto the socket.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case data := <-cl.send:
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Write(ctx, websocket.MessageText, data)
					cancel()
				}
			}
		}()

		// Reader loop.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Disconnect cascade runs in the defer either way.
				return
			}

			var env types.RawEnvelope
			if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
				h.Send(id, "error", types.ErrorEvent{Code: types.CodeBadEnvelope, Message: "expected {type, payload}"})
				continue
			}

			co.Inbox() <- game.ClientEvent{Conn: id, Type: env.Type, Payload: env.Payload}
		}
	}
}
