package handlers

import (
	"errors"
	"strconv"

	"insightlens/internal/dto"
	"insightlens/internal/models"
	"insightlens/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	metrics *service.MetricsService
	scopes  *service.ScopeService
	chat    *service.ChatService
	logger  *zap.Logger
}

func NewAnalyticsHandler(metrics *service.MetricsService, scopes *service.ScopeService, chat *service.ChatService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		metrics: metrics,
		scopes:  scopes,
		chat:    chat,
		logger:  logger,
	}
}

// caller extracts the authenticated identity placed by the auth middleware.
func caller(c *fiber.Ctx) (uuid.UUID, string, error) {
	userID, err := uuid.Parse(c.Locals("userID").(string))
	if err != nil {
		return uuid.Nil, "", err
	}
	role, _ := c.Locals("role").(string)
	return userID, role, nil
}

func (h *AnalyticsHandler) resolveScope(c *fiber.Ctx) (userScope scopeResult, ok bool) {
	userID, role, err := caller(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token subject"})
		return scopeResult{}, false
	}

	scope, err := h.scopes.Resolve(c.Context(), userID, role)
	if err != nil {
		h.logger.Error("Scope resolution failed", zap.Error(err))
		_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve access scope"})
		return scopeResult{}, false
	}

	return scopeResult{UserID: userID, Role: role, Scope: scope}, true
}

type scopeResult struct {
	UserID uuid.UUID
	Role   string
	Scope  models.Scope
}

// ProductNPS godoc
// @Summary NPS score for one product
// @Description Compute the Net Promoter Score over a product's visible reviews
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param product_id path int true "Product ID"
// @Success 200 {object} dto.NPSResponse
// @Failure 400 {object} map[string]string
// @Router /analytics/nps/{product_id} [get]
func (h *AnalyticsHandler) ProductNPS(c *fiber.Ctx) error {
	productID, err := strconv.ParseInt(c.Params("product_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product_id must be numeric"})
	}

	sr, ok := h.resolveScope(c)
	if !ok {
		return nil
	}

	reviews, err := h.metrics.ProductReviews(c.Context(), productID, sr.Scope)
	if err != nil {
		h.logger.Error("NPS computation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute NPS"})
	}

	return c.JSON(dto.NPSResponse{NPSScore: service.NPSOfReviews(reviews)})
}

// ProductSentiment godoc
// @Summary Sentiment breakdown for one product
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param product_id path int true "Product ID"
// @Success 200 {object} dto.SentimentResponse
// @Failure 400 {object} map[string]string
// @Router /analytics/sentiment/{product_id} [get]
func (h *AnalyticsHandler) ProductSentiment(c *fiber.Ctx) error {
	productID, err := strconv.ParseInt(c.Params("product_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product_id must be numeric"})
	}

	sr, ok := h.resolveScope(c)
	if !ok {
		return nil
	}

	happy, unhappy, err := h.metrics.SentimentCounts(c.Context(), productID, sr.Scope)
	if err != nil {
		h.logger.Error("Sentiment query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute sentiment"})
	}

	return c.JSON(dto.SentimentResponse{Happy: happy, Unhappy: unhappy})
}

// Dashboard godoc
// @Summary Dashboard rollup over the caller's scope
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Router /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	sr, ok := h.resolveScope(c)
	if !ok {
		return nil
	}

	resp, err := h.metrics.DashboardStats(c.Context(), sr.Scope)
	if err != nil {
		h.logger.Error("Dashboard query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build dashboard"})
	}

	return c.JSON(resp)
}

// Trends godoc
// @Summary Monthly NPS trend for a category
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param category query string true "Category name"
// @Success 200 {object} dto.TrendResponse
// @Failure 403 {object} map[string]string
// @Router /analytics/trends [get]
func (h *AnalyticsHandler) Trends(c *fiber.Ctx) error {
	category := c.Query("category")
	if category == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "category is required"})
	}

	sr, ok := h.resolveScope(c)
	if !ok {
		return nil
	}

	trend, err := h.metrics.TrendOverTime(c.Context(), category, sr.Scope)
	if err != nil {
		h.logger.Error("Trend query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute trend"})
	}
	if !trend.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied: category not in your scope"})
	}

	resp := dto.TrendResponse{
		Category:     category,
		Labels:       make([]string, 0, len(trend.Points)),
		NPSTrend:     make([]int, 0, len(trend.Points)),
		ReviewCounts: make([]int64, 0, len(trend.Points)),
	}
	data := make([]float64, 0, len(trend.Points))
	for _, p := range trend.Points {
		resp.Labels = append(resp.Labels, p.Label)
		resp.NPSTrend = append(resp.NPSTrend, p.NPS)
		resp.ReviewCounts = append(resp.ReviewCounts, p.ReviewCount)
		data = append(data, float64(p.NPS))
	}
	resp.ChartData = &dto.ChartData{
		Type:     dto.ChartLine,
		Title:    "NPS trend for " + category,
		Labels:   resp.Labels,
		Datasets: []dto.ChartDataset{{Label: "NPS", Data: data}},
	}

	return c.JSON(resp)
}

// Insights godoc
// @Summary Summarize reviews for a product or category
// @Tags analytics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.InsightsRequest true "Insights request"
// @Success 200 {object} dto.InsightsResponse
// @Failure 400 {object} map[string]string
// @Router /analytics/insights [post]
func (h *AnalyticsHandler) Insights(c *fiber.Ctx) error {
	var req dto.InsightsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	userID, role, err := caller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token subject"})
	}

	resp, err := h.chat.Insights(c.Context(), userID, role, req)
	if err != nil {
		if errors.Is(err, service.ErrInsightTargetMissing) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("Insights failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate insights"})
	}

	return c.JSON(resp)
}
