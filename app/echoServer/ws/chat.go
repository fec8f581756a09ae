// Package ws relays chat messages to connected clients over
// WebSocket. Messages are persisted by the message service first and
// fanned out through a Redis channel per conversation, so every
// instance behind the load balancer sees the publish.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rentaread/app/echoServer/jwtx"
	"rentaread/model"
	messagesvc "rentaread/service/message"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 15 * time.Second
)

type ChatRelay struct {
	rdb            *redis.Client
	log            *slog.Logger
	allowedOrigins []string
}

func NewChatRelay(rdb *redis.Client, log *slog.Logger, allowedOrigins []string) *ChatRelay {
	return &ChatRelay{rdb: rdb, log: log, allowedOrigins: allowedOrigins}
}

func channel(conversationID string) string { return "chat:" + conversationID }

// Publish satisfies the message service's Publisher.
func (h *ChatRelay) Publish(ctx context.Context, conversationID string, m *model.Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		h.log.Error("chat publish marshal", "err", err)
		return
	}
	if err := h.rdb.Publish(ctx, channel(conversationID), payload).Err(); err != nil {
		h.log.Error("chat publish", "conversation", conversationID, "err", err)
	}
}

func (h *ChatRelay) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.log.Warn("websocket origin rejected", "origin", origin)
			return false
		},
	}
}

// Serve streams new messages of one conversation to the caller.
// GET /v1/ws/chat/:userId
func (h *ChatRelay) Serve(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	other, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || other <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	conversationID := messagesvc.ConversationID(uid, other)

	up := h.upgrader()
	conn, err := up.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "err", err)
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	sub := h.rdb.Subscribe(ctx, channel(conversationID))
	defer sub.Close()

	// reader only detects close; clients do not send over this socket
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.Debug("websocket closed", "conversation", conversationID)
				}
				return nil
			}
		case <-ticker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
		case <-ctx.Done():
			return nil
		}
	}
}
