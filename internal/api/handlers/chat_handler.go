package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpbot/backend/internal/engine"
	"github.com/helpbot/backend/internal/storage/models"
	"github.com/helpbot/backend/pkg/logger"
)

type ChatHandler struct {
	engine *engine.Engine
}

func NewChatHandler(eng *engine.Engine) *ChatHandler {
	return &ChatHandler{engine: eng}
}

type chatRequest struct {
	Input     string `json:"input"`
	UserName  string `json:"user_name"`
	SessionID string `json:"session_id"`
	Page      int    `json:"page"`
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse chat request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserName == "" {
		req.UserName = "anonymous"
	}

	resp := h.engine.Resolve(c.Context(), engine.Request{
		Input:     req.Input,
		UserName:  req.UserName,
		SessionID: req.SessionID,
		Page:      req.Page,
	})

	return c.JSON(resp)
}

type feedbackRequest struct {
	UserName   string `json:"user_name"`
	SessionID  string `json:"session_id"`
	QuestionID int64  `json:"question_id"`
	Score      int    `json:"score"`
	Comment    string `json:"comment"`
}

func (h *ChatHandler) HandleFeedback(c *fiber.Ctx) error {
	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.QuestionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "question_id is required",
		})
	}

	err := h.engine.SubmitFeedback(c.Context(), models.FeedbackEntry{
		UserName:  req.UserName,
		SessionID: req.SessionID,
		RecordID:  req.QuestionID,
		Score:     req.Score,
		Comment:   req.Comment,
	})
	if err != nil {
		logger.Error("Failed to save feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save feedback",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Feedback saved successfully",
	})
}
