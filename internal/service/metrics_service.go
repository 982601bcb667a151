package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"insightlens/internal/dto"
	"insightlens/internal/models"
	"insightlens/internal/repository"

	"go.uber.org/zap"
)

const (
	maxCompareProducts = 5
	minCompareProducts = 2

	// Dashboard product rankings only consider products with enough
	// reviews; the best/worst tool uses a looser qualifier.
	dashboardMinReviews = 5
	bestWorstMinReviews = 3

	trendMonths       = 12
	productNameMaxLen = 30
	dashboardTopLimit = 5
)

var (
	ErrTooManyProducts = errors.New("maximum 5 products can be compared")
	ErrTooFewProducts  = errors.New("at least 2 products are required for a comparison")
)

// trendFallbackOffsets anchor the synthetic trend at the current NPS when
// the dataset lacks enough dated reviews. The constants are part of the
// reporting contract; do not "improve" them.
var trendFallbackOffsets = [6]int{-12, -8, -5, -2, -1, 0}

// AnalyticsStore is the query planner surface the engine computes over.
type AnalyticsStore interface {
	CategoryRollups(ctx context.Context, scope models.Scope, limit int) ([]repository.CategoryStats, error)
	ProductRollups(ctx context.Context, scope models.Scope, minReviews int64) ([]repository.ProductStats, error)
	ProductRollupsByCategory(ctx context.Context, category string, minReviews int64) ([]repository.ProductStats, error)
	GlobalKPIs(ctx context.Context, scope models.Scope) (*repository.KPIStats, error)
	CategorySummary(ctx context.Context, category string) (*repository.RatingSummary, error)
	MonthlyTrend(ctx context.Context, category string, months int) ([]repository.MonthlyStats, error)
	CompareRows(ctx context.Context, productIDs []int64, scope models.Scope) ([]repository.ProductStats, error)
}

// ReviewStore serves the per-product review queries.
type ReviewStore interface {
	ListByProduct(ctx context.Context, productID int64, scope models.Scope) ([]models.Review, error)
	ListTopHelpful(ctx context.Context, productID int64, scope models.Scope, limit int) ([]models.Review, error)
	ListTopHelpfulByCategory(ctx context.Context, category string, limit int) ([]models.Review, error)
	SentimentCounts(ctx context.Context, productID int64, scope models.Scope) (happy, unhappy int64, err error)
}

// MetricsService computes every satisfaction metric the service exposes.
// All entry points take a resolved scope, have no side effects, and return
// deterministic results for a given data snapshot.
type MetricsService struct {
	analytics AnalyticsStore
	reviews   ReviewStore
	logger    *zap.Logger
	now       func() time.Time
}

func NewMetricsService(analytics AnalyticsStore, reviews ReviewStore, logger *zap.Logger) *MetricsService {
	return &MetricsService{
		analytics: analytics,
		reviews:   reviews,
		logger:    logger,
		now:       time.Now,
	}
}

// NPSScore computes round(100 * (promoters - detractors) / total), rounding
// half away from zero. Neutral reviews count toward total but neither
// bucket. A zero total yields 0 by convention, never a division by zero.
func NPSScore(promoters, detractors, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(promoters-detractors) / float64(total) * 100))
}

// NPSOfReviews derives the score directly from a review list.
func NPSOfReviews(reviews []models.Review) int {
	var promoters, detractors int64
	for _, r := range reviews {
		if r.Rating >= 4 {
			promoters++
		} else if r.Rating <= 2 {
			detractors++
		}
	}
	return NPSScore(promoters, detractors, int64(len(reviews)))
}

// ProductReviews returns a product's reviews visible in scope. Out-of-scope
// products and unreviewed products both yield an empty list, not an error.
func (s *MetricsService) ProductReviews(ctx context.Context, productID int64, scope models.Scope) ([]models.Review, error) {
	if scope.Empty() {
		return []models.Review{}, nil
	}
	reviews, err := s.reviews.ListByProduct(ctx, productID, scope)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

// SentimentCounts returns the happy/unhappy counts for one product.
func (s *MetricsService) SentimentCounts(ctx context.Context, productID int64, scope models.Scope) (happy, unhappy int64, err error) {
	if scope.Empty() {
		return 0, 0, nil
	}
	return s.reviews.SentimentCounts(ctx, productID, scope)
}

// CategoryNPS holds the score over every review of one category. Allowed is
// false when the category lies outside the caller's scope; that is a
// normal outcome for analysts, not a failure.
type CategoryNPS struct {
	Category    string
	NPS         int
	ReviewCount int64
	Allowed     bool
}

func (s *MetricsService) CategoryNPS(ctx context.Context, category string, scope models.Scope) (*CategoryNPS, error) {
	if !scope.Allows(category) {
		return &CategoryNPS{Category: category}, nil
	}

	summary, err := s.analytics.CategorySummary(ctx, category)
	if err != nil {
		return nil, err
	}

	return &CategoryNPS{
		Category:    category,
		NPS:         NPSScore(summary.Promoters, summary.Detractors, summary.Total),
		ReviewCount: summary.Total,
		Allowed:     true,
	}, nil
}

// DashboardStats assembles the full dashboard rollup. An empty scope
// returns the all-zero shape rather than failing.
func (s *MetricsService) DashboardStats(ctx context.Context, scope models.Scope) (*dto.DashboardResponse, error) {
	if scope.Empty() {
		return emptyDashboard(), nil
	}

	categories, err := s.analytics.CategoryRollups(ctx, scope, dashboardTopLimit)
	if err != nil {
		return nil, err
	}

	perf := make([]dto.CategoryPerformance, 0, len(categories))
	for _, c := range categories {
		perf = append(perf, dto.CategoryPerformance{
			Category:  c.Category,
			NPS:       NPSScore(c.Promoters, c.Detractors, c.TotalReviews),
			AvgRating: round1(c.AvgRating),
		})
	}

	rollups, err := s.analytics.ProductRollups(ctx, scope, dashboardMinReviews)
	if err != nil {
		return nil, err
	}
	top, bad := rankProducts(rollups)

	kpi, err := s.analytics.GlobalKPIs(ctx, scope)
	if err != nil {
		return nil, err
	}

	resp := &dto.DashboardResponse{
		CategoryPerformance: perf,
		TopProducts:         top,
		BadProducts:         bad,
		KPIs: dto.DashboardKPIs{
			NPS:          NPSScore(kpi.Promoters, kpi.Detractors, kpi.TotalReviews),
			TotalReviews: kpi.TotalReviews,
			WorstProduct: "N/A",
		},
		Satisfaction: dto.Satisfaction{
			Happy:   kpi.Happy,
			Unhappy: kpi.Unhappy,
		},
		RatingDistribution: map[string]int64{
			"1": kpi.RatingCounts[0],
			"2": kpi.RatingCounts[1],
			"3": kpi.RatingCounts[2],
			"4": kpi.RatingCounts[3],
			"5": kpi.RatingCounts[4],
		},
	}
	if kpi.TotalReviews > 0 {
		resp.KPIs.HappyPct = int(math.Round(float64(kpi.Happy) / float64(kpi.TotalReviews) * 100))
	}
	if len(bad) > 0 {
		resp.KPIs.WorstProduct = bad[0].Name
	}

	return resp, nil
}

// rankProducts scores the rollups and splits them into the best five
// (descending NPS) and the worst five (ascending NPS). Sorting is stable,
// so NPS ties keep the storage enumeration order.
func rankProducts(rollups []repository.ProductStats) (top, bad []dto.ProductScore) {
	scores := make([]dto.ProductScore, 0, len(rollups))
	for _, p := range rollups {
		scores = append(scores, dto.ProductScore{
			Name:     truncateName(p.Name),
			Category: p.Category,
			NPS:      NPSScore(p.Promoters, p.Detractors, p.TotalReviews),
			Rating:   round1(p.AvgRating),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].NPS > scores[j].NPS })

	top = make([]dto.ProductScore, 0, dashboardTopLimit)
	top = append(top, scores[:min(dashboardTopLimit, len(scores))]...)

	tail := scores[max(0, len(scores)-dashboardTopLimit):]
	bad = make([]dto.ProductScore, len(tail))
	copy(bad, tail)
	sort.SliceStable(bad, func(i, j int) bool { return bad[i].NPS < bad[j].NPS })

	return top, bad
}

// BestWorst holds the per-category product ranking used by the chat tool.
type BestWorst struct {
	Category string
	Top      []dto.ProductScore
	Worst    []dto.ProductScore
	Allowed  bool
}

func (s *MetricsService) BestWorstProducts(ctx context.Context, category string, scope models.Scope) (*BestWorst, error) {
	if !scope.Allows(category) {
		return &BestWorst{Category: category}, nil
	}

	rollups, err := s.analytics.ProductRollupsByCategory(ctx, category, bestWorstMinReviews)
	if err != nil {
		return nil, err
	}
	top, worst := rankProducts(rollups)

	return &BestWorst{Category: category, Top: top, Worst: worst, Allowed: true}, nil
}

// TrendPoint is one month of a trend series.
type TrendPoint struct {
	Label       string
	NPS         int
	ReviewCount int64
}

// Trend is the monthly NPS series for one category.
type Trend struct {
	Category  string
	Points    []TrendPoint
	Synthetic bool
	Allowed   bool
}

// TrendOverTime returns up to twelve months of (NPS, review count) pairs
// for a category. When fewer than two distinct dated months exist the
// series degrades to six synthetic points anchored at the current NPS with
// fixed historical offsets; the ingested dataset mostly lacks per-review
// dates, so this path is common and its output must stay stable.
func (s *MetricsService) TrendOverTime(ctx context.Context, category string, scope models.Scope) (*Trend, error) {
	if !scope.Allows(category) {
		return &Trend{Category: category}, nil
	}

	monthly, err := s.analytics.MonthlyTrend(ctx, category, trendMonths)
	if err != nil {
		return nil, err
	}

	if len(monthly) >= 2 {
		// Rows arrive newest first; present oldest first.
		points := make([]TrendPoint, 0, len(monthly))
		for i := len(monthly) - 1; i >= 0; i-- {
			m := monthly[i]
			points = append(points, TrendPoint{
				Label:       fmt.Sprintf("%04d-%02d", m.Year, m.Month),
				NPS:         NPSScore(m.Promoters, m.Detractors, m.Total),
				ReviewCount: m.Total,
			})
		}
		return &Trend{Category: category, Points: points, Allowed: true}, nil
	}

	summary, err := s.analytics.CategorySummary(ctx, category)
	if err != nil {
		return nil, err
	}
	current := NPSScore(summary.Promoters, summary.Detractors, summary.Total)

	points := make([]TrendPoint, 0, len(trendFallbackOffsets))
	month := s.now().AddDate(0, -(len(trendFallbackOffsets) - 1), 0)
	for _, offset := range trendFallbackOffsets {
		points = append(points, TrendPoint{
			Label:       month.Format("2006-01"),
			NPS:         current + offset,
			ReviewCount: summary.Total,
		})
		month = month.AddDate(0, 1, 0)
	}

	return &Trend{Category: category, Points: points, Synthetic: true, Allowed: true}, nil
}

// CompareEntry is one product's side of a comparison.
type CompareEntry struct {
	ProductID   int64   `json:"product_id"`
	Name        string  `json:"name"`
	AvgRating   float64 `json:"avg_rating"`
	NPS         int     `json:"nps"`
	ReviewCount int64   `json:"review_count"`
}

// CompareProducts compares up to five products. The id count is validated
// before any query runs. Products outside the caller's scope are silently
// dropped; an empty result after filtering is reported via Empty so the
// caller can distinguish it from a storage failure.
func (s *MetricsService) CompareProducts(ctx context.Context, productIDs []int64, scope models.Scope) ([]CompareEntry, error) {
	if len(productIDs) > maxCompareProducts {
		return nil, ErrTooManyProducts
	}
	if len(productIDs) < minCompareProducts {
		return nil, ErrTooFewProducts
	}
	if scope.Empty() {
		return []CompareEntry{}, nil
	}

	rows, err := s.analytics.CompareRows(ctx, productIDs, scope)
	if err != nil {
		return nil, err
	}

	entries := make([]CompareEntry, 0, len(rows))
	for _, p := range rows {
		entries = append(entries, CompareEntry{
			ProductID:   p.ProductID,
			Name:        p.Name,
			AvgRating:   round2(p.AvgRating),
			NPS:         NPSScore(p.Promoters, p.Detractors, p.TotalReviews),
			ReviewCount: p.TotalReviews,
		})
	}

	return entries, nil
}

// TopHelpfulReviews returns up to limit scoped reviews for summarization,
// most helpful first.
func (s *MetricsService) TopHelpfulReviews(ctx context.Context, productID int64, scope models.Scope, limit int) ([]models.Review, error) {
	if scope.Empty() {
		return []models.Review{}, nil
	}
	return s.reviews.ListTopHelpful(ctx, productID, scope, limit)
}

// TopHelpfulCategoryReviews is the category-level variant used by insight
// summaries. The scope check happens here because the underlying query is
// already pinned to one category.
func (s *MetricsService) TopHelpfulCategoryReviews(ctx context.Context, category string, scope models.Scope, limit int) ([]models.Review, error) {
	if !scope.Allows(category) {
		return []models.Review{}, nil
	}
	return s.reviews.ListTopHelpfulByCategory(ctx, category, limit)
}

func emptyDashboard() *dto.DashboardResponse {
	return &dto.DashboardResponse{
		CategoryPerformance: []dto.CategoryPerformance{},
		TopProducts:         []dto.ProductScore{},
		BadProducts:         []dto.ProductScore{},
		KPIs:                dto.DashboardKPIs{WorstProduct: "N/A"},
		Satisfaction:        dto.Satisfaction{},
		RatingDistribution:  map[string]int64{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0},
	}
}

func truncateName(name string) string {
	if len(name) > productNameMaxLen {
		return name[:productNameMaxLen] + "..."
	}
	return name
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
