package http

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mindmate/internal/crisis"
	"mindmate/pkg"
)

// streamFrame is one server-to-client websocket message.  Type is
// "assessment", "delta", "done" or "error".
type streamFrame struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversationId,omitempty"`
	Data           interface{} `json:"data,omitempty"`
}

// handleStream upgrades to a websocket and runs one streamed turn per
// ChatRequest frame the client sends.  The assessment frame always precedes
// the reply so a client can render the hotline before the model answers.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("http: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	for {
		var req pkg.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				slog.Debug("http: websocket read ended", "error", err)
			}
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			if err := conn.WriteJSON(streamFrame{Type: "error", Data: pkg.APIError{Code: "VALIDATION_ERROR", Message: "Text is required"}}); err != nil {
				return
			}
			continue
		}

		// A failed write means the client is gone; cancel so the model
		// stream stops instead of running to its timeout.
		var writeErr error
		write := func(f streamFrame) {
			if writeErr != nil {
				return
			}
			if writeErr = conn.WriteJSON(f); writeErr != nil {
				cancel()
			}
		}
		turn, err := s.Chat.ReplyStream(ctx, req,
			func(id string, a crisis.Assessment) {
				write(streamFrame{Type: "assessment", ConversationID: id, Data: a})
			},
			func(chunk string) {
				write(streamFrame{Type: "delta", Data: chunk})
			},
		)
		if err != nil {
			slog.Error("http: streamed turn failed", "error", err)
			write(streamFrame{Type: "error", Data: pkg.APIError{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}})
		} else {
			write(streamFrame{Type: "done", ConversationID: turn.ConversationID, Data: turn.Response()})
		}
		if writeErr != nil {
			slog.Debug("http: websocket write failed", "error", writeErr)
			return
		}
	}
}
