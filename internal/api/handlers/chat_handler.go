package handlers

import (
	"insightlens/internal/dto"
	"insightlens/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Ask godoc
// @Summary Ask the analytics assistant a question
// @Description Routes the question onto the metric tool catalog and narrates the result
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChatRequest true "Chat request"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} map[string]string
// @Router /chat/ask [post]
func (h *ChatHandler) Ask(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}

	userID, role, err := caller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token subject"})
	}

	resp, err := h.chatService.Ask(c.Context(), userID, role, req.Query, req.ContextProductID)
	if err != nil {
		h.logger.Error("Chat request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to answer question"})
	}

	return c.JSON(resp)
}

// History godoc
// @Summary Recent questions asked by the caller
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.HistoryEntry
// @Router /chat/history [get]
func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID, _, err := caller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token subject"})
	}

	entries, err := h.chatService.History(c.Context(), userID)
	if err != nil {
		h.logger.Error("History query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load history"})
	}

	return c.JSON(entries)
}
