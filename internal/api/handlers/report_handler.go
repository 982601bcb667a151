package handlers

import (
	"time"

	"insightlens/internal/dto"
	"insightlens/internal/models"
	"insightlens/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReportHandler struct {
	reports *repository.ReportRepository
	logger  *zap.Logger
}

func NewReportHandler(reports *repository.ReportRepository, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// Save godoc
// @Summary Save a chat answer as a report
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SaveReportRequest true "Report to save"
// @Success 201 {object} dto.ReportResponse
// @Failure 400 {object} map[string]string
// @Router /reports [post]
func (h *ReportHandler) Save(c *fiber.Ctx) error {
	var req dto.SaveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Query == "" || req.Answer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query and answer are required"})
	}

	userID, _, err := caller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token subject"})
	}

	report := &models.Report{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: req.ProductID,
		Query:     req.Query,
		Answer:    req.Answer,
		ToolUsed:  req.ToolUsed,
		CreatedAt: time.Now(),
	}
	if err := h.reports.Create(c.Context(), report); err != nil {
		h.logger.Error("Report save failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save report"})
	}

	return c.Status(fiber.StatusCreated).JSON(toReportResponse(report))
}

// List godoc
// @Summary List the caller's saved reports
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ReportResponse
// @Router /reports [get]
func (h *ReportHandler) List(c *fiber.Ctx) error {
	userID, _, err := caller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token subject"})
	}

	reports, err := h.reports.ListByUser(c.Context(), userID)
	if err != nil {
		h.logger.Error("Report listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load reports"})
	}

	out := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, toReportResponse(&reports[i]))
	}

	return c.JSON(out)
}

func toReportResponse(r *models.Report) dto.ReportResponse {
	return dto.ReportResponse{
		ID:        r.ID.String(),
		Query:     r.Query,
		Answer:    r.Answer,
		ToolUsed:  r.ToolUsed,
		ProductID: r.ProductID,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}
