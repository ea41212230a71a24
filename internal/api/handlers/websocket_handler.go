package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/helpbot/backend/internal/engine"
	"github.com/helpbot/backend/pkg/logger"
)

type WebSocketHandler struct {
	engine *engine.Engine
}

func NewWebSocketHandler(eng *engine.Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: eng}
}

// HandleConnection runs one interactive chat session over a websocket.
// Each inbound frame is a full query; each outbound frame is the same
// Response variant the HTTP endpoint returns, so the session id carried
// by the client keeps pagination and suggestions working across turns.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket chat session opened")

	defer func() {
		c.Close()
		logger.Info("WebSocket chat session closed")
	}()

	for {
		var msg struct {
			Input     string `json:"input"`
			UserName  string `json:"user_name"`
			SessionID string `json:"session_id"`
			Page      int    `json:"page"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.UserName == "" {
			msg.UserName = "anonymous"
		}

		resp := h.engine.Resolve(context.Background(), engine.Request{
			Input:     msg.Input,
			UserName:  msg.UserName,
			SessionID: msg.SessionID,
			Page:      msg.Page,
		})

		if err := c.WriteJSON(resp); err != nil {
			logger.Error("Failed to write WebSocket response", zap.Error(err))
			break
		}
	}
}
