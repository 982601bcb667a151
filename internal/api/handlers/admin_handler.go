package handlers

import (
	"errors"

	"insightlens/internal/dto"
	"insightlens/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminHandler struct {
	adminService *service.AdminService
	logger       *zap.Logger
}

func NewAdminHandler(adminService *service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// ListUsers godoc
// @Summary List all users with their category assignments
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.AdminUserResponse
// @Failure 403 {object} map[string]string
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.adminService.ListUsers(c.Context())
	if err != nil {
		h.logger.Error("User listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list users"})
	}

	return c.JSON(users)
}

// AssignCategory godoc
// @Summary Assign a category to an analyst
// @Description Idempotent; assigning an already assigned category reports it in the message
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AssignCategoryRequest true "Assignment"
// @Success 200 {object} dto.AssignCategoryResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/assign-category [post]
func (h *AdminHandler) AssignCategory(c *fiber.Ctx) error {
	var req dto.AssignCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Category == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "category is required"})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id must be a UUID"})
	}

	resp, err := h.adminService.AssignCategory(c.Context(), userID, req.Category)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		case errors.Is(err, service.ErrNotAnalyst):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("Category assignment failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to assign category"})
	}

	return c.JSON(resp)
}

// RemoveCategory godoc
// @Summary Remove a category assignment
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AssignCategoryRequest true "Assignment to remove"
// @Success 200 {object} map[string]int64
// @Failure 404 {object} map[string]string
// @Router /admin/assign-category [delete]
func (h *AdminHandler) RemoveCategory(c *fiber.Ctx) error {
	var req dto.AssignCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id must be a UUID"})
	}

	deleted, err := h.adminService.RemoveCategory(c.Context(), userID, req.Category)
	if err != nil {
		if errors.Is(err, service.ErrNoSuchMapping) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Assignment not found"})
		}
		h.logger.Error("Category removal failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove category"})
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}
