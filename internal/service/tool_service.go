package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"insightlens/internal/dto"
	"insightlens/internal/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

const (
	ToolGetNPS            = "get_nps"
	ToolBestWorstProducts = "get_best_worst_products"
	ToolProductSentiment  = "get_product_sentiment"
	ToolGetTrend          = "get_trend"
	ToolCompareProducts   = "compare_products"
	ToolSummarizeReviews  = "summarize_product_reviews"
)

const summarizeReviewLimit = 25

const (
	errAccessDenied  = "access denied: category not in your scope"
	errNoReviews     = "no reviews found or access denied"
	errNoComparables = "none of the requested products are visible to you"
)

// ToolService maps tool names onto the metrics engine. Dispatch is total:
// unknown tools, denied access and empty results come back as error fields
// inside the payload, while a returned Go error always means an internal
// fault that should surface as a 500.
type ToolService struct {
	metrics *MetricsService
	logger  *zap.Logger
}

func NewToolService(metrics *MetricsService, logger *zap.Logger) *ToolService {
	return &ToolService{
		metrics: metrics,
		logger:  logger,
	}
}

// Declarations is the fixed tool catalog advertised to the model. The
// schemas here are the only tool documentation the model ever sees.
func (s *ToolService) Declarations() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        ToolGetNPS,
				Description: "Get the Net Promoter Score and review count for a product category.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"category": {Type: genai.TypeString, Description: "Product category name, e.g. Electronics"},
					},
					Required: []string{"category"},
				},
			},
			{
				Name:        ToolBestWorstProducts,
				Description: "Get the best and worst rated products in a category by NPS.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"category": {Type: genai.TypeString, Description: "Product category name"},
					},
					Required: []string{"category"},
				},
			},
			{
				Name:        ToolProductSentiment,
				Description: "Get the happy/unhappy review breakdown for one product.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"product_id": {Type: genai.TypeInteger, Description: "Numeric product id"},
					},
					Required: []string{"product_id"},
				},
			},
			{
				Name:        ToolGetTrend,
				Description: "Get the monthly NPS trend for a category over the last year.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"category": {Type: genai.TypeString, Description: "Product category name"},
					},
					Required: []string{"category"},
				},
			},
			{
				Name:        ToolCompareProducts,
				Description: "Compare 2 to 5 products by average rating, NPS and review count.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"product_ids": {
							Type:        genai.TypeArray,
							Description: "Between 2 and 5 numeric product ids",
							Items:       &genai.Schema{Type: genai.TypeInteger},
						},
					},
					Required: []string{"product_ids"},
				},
			},
			{
				Name:        ToolSummarizeReviews,
				Description: "Summarize what customers say in the reviews of one product, optionally focused on a question.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"product_id": {Type: genai.TypeInteger, Description: "Numeric product id"},
						"question":   {Type: genai.TypeString, Description: "Optional focus question"},
					},
					Required: []string{"product_id"},
				},
			},
		},
	}}
}

// Dispatch executes one tool call against the caller's scope. The payload
// is normalized to plain JSON types (map, slice, string, float64, bool) so
// it can be replayed to the model as a function response, which only
// accepts those shapes.
func (s *ToolService) Dispatch(ctx context.Context, name string, args map[string]any, scope models.Scope) (map[string]any, *dto.ChartData, error) {
	payload, chart, err := s.dispatch(ctx, name, args, scope)
	if err != nil || payload == nil {
		return payload, chart, err
	}

	shaped, err := jsonShape(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("shape %s payload: %w", name, err)
	}
	return shaped, chart, nil
}

func (s *ToolService) dispatch(ctx context.Context, name string, args map[string]any, scope models.Scope) (map[string]any, *dto.ChartData, error) {
	switch name {
	case ToolGetNPS:
		return s.getNPS(ctx, args, scope)
	case ToolBestWorstProducts:
		return s.bestWorstProducts(ctx, args, scope)
	case ToolProductSentiment:
		return s.productSentiment(ctx, args, scope)
	case ToolGetTrend:
		return s.getTrend(ctx, args, scope)
	case ToolCompareProducts:
		return s.compareProducts(ctx, args, scope)
	case ToolSummarizeReviews:
		return s.summarizeReviews(ctx, args, scope)
	default:
		s.logger.Warn("unknown tool requested", zap.String("tool", name))
		return map[string]any{"error": "unknown tool: " + name}, nil, nil
	}
}

func (s *ToolService) getNPS(ctx context.Context, args map[string]any, scope models.Scope) (map[string]any, *dto.ChartData, error) {
	category, ok := stringArg(args, "category")
	if !ok {
		return map[string]any{"error": "category is required"}, nil, nil
	}

	result, err := s.metrics.CategoryNPS(ctx, category, scope)
	if err != nil {
		return nil, nil, err
	}
	if !result.Allowed {
		return map[string]any{"error": errAccessDenied, "category": category}, nil, nil
	}

	return map[string]any{
		"category":     result.Category,
		"nps_score":    result.NPS,
		"review_count": result.ReviewCount,
	}, nil, nil
}

func (s *ToolService) bestWorstProducts(ctx context.Context, args map[string]any, scope models.Scope) (map[string]any, *dto.ChartData, error) {
	category, ok := stringArg(args, "category")
	if !ok {
		return map[string]any{"error": "category is required"}, nil, nil
	}

	result, err := s.metrics.BestWorstProducts(ctx, category, scope)
	if err != nil {
		return nil, nil, err
	}
	if !result.Allowed {
		return map[string]any{"error": errAccessDenied, "category": category}, nil, nil
	}

	payload := map[string]any{
		"category":       result.Category,
		"best_products":  scoreList(result.Top),
		"worst_products": scoreList(result.Worst),
	}

	labels := make([]string, 0, len(result.Top)+len(result.Worst))
	data := make([]float64, 0, len(result.Top)+len(result.Worst))
	for _, p := range result.Top {
		labels = append(labels, p.Name)
		data = append(data, float64(p.NPS))
	}
	for _, p := range result.Worst {
		labels = append(labels, p.Name)
		data = append(data, float64(p.NPS))
	}
	var chart *dto.ChartData
	if len(labels) > 0 {
		chart = &dto.ChartData{
			Type:     dto.ChartBar,
			Title:    "Best and worst products in " + category,
			Labels:   labels,
			Datasets: []dto.ChartDataset{{Label: "NPS", Data: data}},
		}
	}

	return payload, chart, nil
}

func (s *ToolService) productSentiment(ctx context.Context, args map[string]any, scope models.Scope) (map[string]any, *dto.ChartData, error) {
	productID, ok := intArg(args, "product_id")
	if !ok {
		return map[string]any{"error": "product_id must be a number"}, nil, nil
	}

	happy, unhappy, err := s.metrics.SentimentCounts(ctx, productID, scope)
	if err != nil {
		return nil, nil, err
	}

	happyPct := 0
	if total := happy + unhappy; total > 0 {
		happyPct = int(math.Round(float64(happy) / float64(total) * 100))
	}

	chart := &dto.ChartData{
		Type:   dto.ChartPie,
		Title:  fmt.Sprintf("Review sentiment for product %d", productID),
		Labels: []string{"Happy", "Unhappy"},
		Datasets: []dto.ChartDataset{{
			Label: "Reviews",
			Data:  []float64{float64(happy), float64(unhappy)},
		}},
	}

	return map[string]any{
		"product_id": productID,
		"happy":      happy,
		"unhappy":    unhappy,
		"happy_pct":  happyPct,
	}, chart, nil
}

func (s *ToolService) getTrend(ctx context.Context, args map[string]any, scope models.Scope) (map[string]any, *dto.ChartData, error) {
	category, ok := stringArg(args, "category")
	if !ok {
		return map[string]any{"error": "category is required"}, nil, nil
	}

	trend, err := s.metrics.TrendOverTime(ctx, category, scope)
	if err != nil {
		return nil, nil, err
	}
	if !trend.Allowed {
		return map[string]any{"error": errAccessDenied, "category": category}, nil, nil
	}

	labels := make([]string, 0, len(trend.Points))
	npsSeries := make([]float64, 0, len(trend.Points))
	counts := make([]int64, 0, len(trend.Points))
	for _, p := range trend.Points {
		labels = append(labels, p.Label)
		npsSeries = append(npsSeries, float64(p.NPS))
		counts = append(counts, p.ReviewCount)
	}

	chart := &dto.ChartData{
		Type:     dto.ChartLine,
		Title:    "NPS trend for " + category,
		Labels:   labels,
		Datasets: []dto.ChartDataset{{Label: "NPS", Data: npsSeries}},
	}

	return map[string]any{
		"category":      category,
		"labels":        labels,
		"nps_trend":     npsSeries,
		"review_counts": counts,
		"synthetic":     trend.Synthetic,
	}, chart, nil
}

func (s *ToolService) compareProducts(ctx context.Context, args map[string]any, scope models.Scope) (map[string]any, *dto.ChartData, error) {
	ids, err := intSliceArg(args, "product_ids")
	if err != nil {
		return map[string]any{"error": err.Error()}, nil, nil
	}

	entries, err := s.metrics.CompareProducts(ctx, ids, scope)
	if err != nil {
		if errors.Is(err, ErrTooManyProducts) || errors.Is(err, ErrTooFewProducts) {
			return map[string]any{"error": err.Error()}, nil, nil
		}
		return nil, nil, err
	}
	if len(entries) == 0 {
		return map[string]any{"error": errNoComparables, "products": []any{}}, nil, nil
	}

	labels := make([]string, 0, len(entries))
	ratings := make([]float64, 0, len(entries))
	npsSeries := make([]float64, 0, len(entries))
	for _, e := range entries {
		labels = append(labels, e.Name)
		ratings = append(ratings, e.AvgRating)
		npsSeries = append(npsSeries, float64(e.NPS))
	}

	chart := &dto.ChartData{
		Type:   dto.ChartBar,
		Title:  "Product comparison",
		Labels: labels,
		Datasets: []dto.ChartDataset{
			{Label: "Average rating", Data: ratings},
			{Label: "NPS", Data: npsSeries},
		},
	}

	return map[string]any{"products": entries}, chart, nil
}

// summarizeReviews collects the evidence for the summarization step. The
// actual prose is produced by the orchestrator's LLM call; this tool only
// gathers and caps the scoped review texts.
func (s *ToolService) summarizeReviews(ctx context.Context, args map[string]any, scope models.Scope) (map[string]any, *dto.ChartData, error) {
	productID, ok := intArg(args, "product_id")
	if !ok {
		return map[string]any{"error": "product_id must be a number"}, nil, nil
	}
	question, _ := stringArg(args, "question")

	reviews, err := s.metrics.TopHelpfulReviews(ctx, productID, scope, summarizeReviewLimit)
	if err != nil {
		return nil, nil, err
	}
	if len(reviews) == 0 {
		return map[string]any{"error": errNoReviews, "product_id": productID}, nil, nil
	}

	texts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if r.ReviewText != "" {
			texts = append(texts, r.ReviewText)
		}
	}
	if len(texts) == 0 {
		return map[string]any{"error": errNoReviews, "product_id": productID}, nil, nil
	}

	return map[string]any{
		"product_id":   productID,
		"question":     question,
		"review_texts": texts,
		"review_count": len(texts),
	}, nil, nil
}

// jsonShape round-trips a payload through JSON so typed slices and structs
// collapse into []any and map[string]any.
func jsonShape(payload map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func scoreList(scores []dto.ProductScore) []map[string]any {
	out := make([]map[string]any, 0, len(scores))
	for _, p := range scores {
		out = append(out, map[string]any{
			"name":   p.Name,
			"nps":    p.NPS,
			"rating": p.Rating,
		})
	}
	return out
}

// Argument coercion. genai decodes JSON numbers as float64 and some models
// quote numeric ids, so both forms are accepted.

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func intArg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func intSliceArg(args map[string]any, key string) ([]int64, error) {
	raw, ok := args[key].([]any)
	if !ok {
		return nil, errors.New("product_ids must be a list of numbers")
	}
	if len(raw) > maxCompareProducts {
		return nil, ErrTooManyProducts
	}
	ids := make([]int64, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case float64:
			ids = append(ids, int64(v))
		case int64:
			ids = append(ids, v)
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("product id %q is not numeric", v)
			}
			ids = append(ids, n)
		default:
			return nil, errors.New("product_ids must contain only numbers")
		}
	}
	return ids, nil
}
