package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpbot/backend/internal/engine"
	"github.com/helpbot/backend/internal/storage/sqlite"
	"github.com/helpbot/backend/pkg/logger"
)

type KnowledgeHandler struct {
	engine *engine.Engine
	store  *sqlite.Client
}

func NewKnowledgeHandler(eng *engine.Engine, store *sqlite.Client) *KnowledgeHandler {
	return &KnowledgeHandler{engine: eng, store: store}
}

func (h *KnowledgeHandler) TopQuestions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 5)
	records := h.engine.TopRecords(c.Context(), limit)

	return c.JSON(fiber.Map{
		"questions": records,
	})
}

func (h *KnowledgeHandler) Answer(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid question id",
		})
	}

	answer, err := h.engine.Answer(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Question not found",
		})
	}

	return c.JSON(fiber.Map{
		"answer": answer,
	})
}

func (h *KnowledgeHandler) Analytics(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)

	report, err := h.store.Analytics(c.Context(), days)
	if err != nil {
		logger.Error("Failed to build analytics report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build analytics report",
		})
	}

	return c.JSON(report)
}
