package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"insightlens/internal/models"
	"insightlens/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAnalyticsStore struct {
	categories []repository.CategoryStats
	rollups    []repository.ProductStats
	kpis       repository.KPIStats
	summary    repository.RatingSummary
	monthly    []repository.MonthlyStats
	compare    []repository.ProductStats

	compareCalls int
}

func (f *fakeAnalyticsStore) CategoryRollups(_ context.Context, _ models.Scope, _ int) ([]repository.CategoryStats, error) {
	return f.categories, nil
}

func (f *fakeAnalyticsStore) ProductRollups(_ context.Context, _ models.Scope, _ int64) ([]repository.ProductStats, error) {
	return f.rollups, nil
}

func (f *fakeAnalyticsStore) ProductRollupsByCategory(_ context.Context, _ string, _ int64) ([]repository.ProductStats, error) {
	return f.rollups, nil
}

func (f *fakeAnalyticsStore) GlobalKPIs(_ context.Context, _ models.Scope) (*repository.KPIStats, error) {
	kpis := f.kpis
	return &kpis, nil
}

func (f *fakeAnalyticsStore) CategorySummary(_ context.Context, _ string) (*repository.RatingSummary, error) {
	summary := f.summary
	return &summary, nil
}

func (f *fakeAnalyticsStore) MonthlyTrend(_ context.Context, _ string, _ int) ([]repository.MonthlyStats, error) {
	return f.monthly, nil
}

func (f *fakeAnalyticsStore) CompareRows(_ context.Context, _ []int64, _ models.Scope) ([]repository.ProductStats, error) {
	f.compareCalls++
	return f.compare, nil
}

type fakeReviewStore struct {
	reviews []models.Review
	happy   int64
	unhappy int64
}

func (f *fakeReviewStore) ListByProduct(_ context.Context, _ int64, _ models.Scope) ([]models.Review, error) {
	return f.reviews, nil
}

func (f *fakeReviewStore) ListTopHelpful(_ context.Context, _ int64, _ models.Scope, limit int) ([]models.Review, error) {
	if len(f.reviews) > limit {
		return f.reviews[:limit], nil
	}
	return f.reviews, nil
}

func (f *fakeReviewStore) ListTopHelpfulByCategory(_ context.Context, _ string, limit int) ([]models.Review, error) {
	if len(f.reviews) > limit {
		return f.reviews[:limit], nil
	}
	return f.reviews, nil
}

func (f *fakeReviewStore) SentimentCounts(_ context.Context, _ int64, _ models.Scope) (int64, int64, error) {
	return f.happy, f.unhappy, nil
}

func newTestMetrics(analytics *fakeAnalyticsStore, reviews *fakeReviewStore) *MetricsService {
	return NewMetricsService(analytics, reviews, zap.NewNop())
}

func TestNPSScore(t *testing.T) {
	tests := []struct {
		name       string
		promoters  int64
		detractors int64
		total      int64
		want       int
	}{
		{"no reviews", 0, 0, 0, 0},
		{"all promoters", 5, 0, 5, 100},
		{"all detractors", 0, 4, 4, -100},
		{"electronics mix", 3, 2, 5, 20},
		{"rounds half up", 1, 0, 8, 13},
		{"rounds half away from zero when negative", 0, 1, 8, -13},
		{"one third", 1, 0, 3, 33},
		{"neutrals dilute", 2, 0, 4, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NPSScore(tt.promoters, tt.detractors, tt.total))
		})
	}
}

func TestNPSOfReviews(t *testing.T) {
	reviews := []models.Review{
		{Rating: 5}, {Rating: 5}, {Rating: 4}, {Rating: 2}, {Rating: 1},
	}
	assert.Equal(t, 20, NPSOfReviews(reviews))
	assert.Equal(t, 0, NPSOfReviews(nil))
}

func TestProductReviewsEmptyScope(t *testing.T) {
	svc := newTestMetrics(&fakeAnalyticsStore{}, &fakeReviewStore{
		reviews: []models.Review{{Rating: 5}},
	})

	reviews, err := svc.ProductReviews(context.Background(), 1, models.ScopeOf())
	require.NoError(t, err)
	assert.Empty(t, reviews)

	happy, unhappy, err := svc.SentimentCounts(context.Background(), 1, models.ScopeOf())
	require.NoError(t, err)
	assert.Zero(t, happy)
	assert.Zero(t, unhappy)
}

func TestCategoryNPSAccess(t *testing.T) {
	svc := newTestMetrics(&fakeAnalyticsStore{
		summary: repository.RatingSummary{Total: 5, Promoters: 3, Detractors: 2},
	}, &fakeReviewStore{})

	denied, err := svc.CategoryNPS(context.Background(), "Electronics", models.ScopeOf("Books"))
	require.NoError(t, err)
	assert.False(t, denied.Allowed)

	allowed, err := svc.CategoryNPS(context.Background(), "Electronics", models.UnrestrictedScope())
	require.NoError(t, err)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 20, allowed.NPS)
	assert.Equal(t, int64(5), allowed.ReviewCount)
}

func TestDashboardStatsEmptyScope(t *testing.T) {
	svc := newTestMetrics(&fakeAnalyticsStore{}, &fakeReviewStore{})

	resp, err := svc.DashboardStats(context.Background(), models.ScopeOf())
	require.NoError(t, err)

	assert.Empty(t, resp.CategoryPerformance)
	assert.Empty(t, resp.TopProducts)
	assert.Empty(t, resp.BadProducts)
	assert.Zero(t, resp.KPIs.NPS)
	assert.Zero(t, resp.KPIs.TotalReviews)
	assert.Equal(t, "N/A", resp.KPIs.WorstProduct)
	assert.Equal(t, map[string]int64{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}, resp.RatingDistribution)
}

func TestDashboardStatsRanking(t *testing.T) {
	// Ten products with NPS 0, 10, ..., 90 in enumeration order.
	var rollups []repository.ProductStats
	for i := 0; i < 10; i++ {
		rollups = append(rollups, repository.ProductStats{
			ProductID:    int64(i + 1),
			Name:         strings.Repeat("p", 40),
			Category:     "Electronics",
			TotalReviews: 10,
			AvgRating:    3.0,
			Promoters:    int64(i),
			Detractors:   0,
		})
	}

	analytics := &fakeAnalyticsStore{
		rollups: rollups,
		categories: []repository.CategoryStats{
			{Category: "Electronics", TotalReviews: 100, AvgRating: 3.44, Promoters: 60, Detractors: 20},
		},
		kpis: repository.KPIStats{
			TotalReviews: 8,
			Promoters:    4,
			Detractors:   1,
			Happy:        3,
			Unhappy:      5,
			RatingCounts: [5]int64{1, 0, 4, 2, 1},
		},
	}
	svc := newTestMetrics(analytics, &fakeReviewStore{})

	resp, err := svc.DashboardStats(context.Background(), models.UnrestrictedScope())
	require.NoError(t, err)

	require.Len(t, resp.TopProducts, 5)
	require.Len(t, resp.BadProducts, 5)

	// Top descending, bottom ascending, and the halves are disjoint.
	assert.Equal(t, 90, resp.TopProducts[0].NPS)
	assert.Equal(t, 50, resp.TopProducts[4].NPS)
	assert.Equal(t, 0, resp.BadProducts[0].NPS)
	assert.Equal(t, 40, resp.BadProducts[4].NPS)

	seen := map[int]bool{}
	for _, p := range resp.TopProducts {
		seen[p.NPS] = true
	}
	for _, p := range resp.BadProducts {
		assert.False(t, seen[p.NPS], "product appears in both halves")
	}

	// Names are capped at 30 chars plus ellipsis.
	assert.Equal(t, strings.Repeat("p", 30)+"...", resp.TopProducts[0].Name)

	assert.Equal(t, 38, resp.KPIs.HappyPct)
	assert.Equal(t, resp.BadProducts[0].Name, resp.KPIs.WorstProduct)

	require.Len(t, resp.CategoryPerformance, 1)
	assert.Equal(t, 40, resp.CategoryPerformance[0].NPS)
	assert.Equal(t, 3.4, resp.CategoryPerformance[0].AvgRating)

	assert.Equal(t, int64(5), resp.Satisfaction.Unhappy)
	assert.Equal(t, map[string]int64{"1": 1, "2": 0, "3": 4, "4": 2, "5": 1}, resp.RatingDistribution)
}

func TestTrendOverTimeSyntheticFallback(t *testing.T) {
	analytics := &fakeAnalyticsStore{
		monthly: []repository.MonthlyStats{{Year: 2026, Month: 8, Total: 7, Promoters: 5, Detractors: 1}},
		summary: repository.RatingSummary{Total: 20, Promoters: 14, Detractors: 2},
	}
	svc := newTestMetrics(analytics, &fakeReviewStore{})
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC) }

	trend, err := svc.TrendOverTime(context.Background(), "Electronics", models.UnrestrictedScope())
	require.NoError(t, err)
	require.True(t, trend.Allowed)
	require.True(t, trend.Synthetic)
	require.Len(t, trend.Points, 6)

	// current NPS = (14-2)/20 = 60; offsets anchor the series at it.
	wantNPS := []int{48, 52, 55, 58, 59, 60}
	wantLabels := []string{"2026-03", "2026-04", "2026-05", "2026-06", "2026-07", "2026-08"}
	for i, p := range trend.Points {
		assert.Equal(t, wantNPS[i], p.NPS)
		assert.Equal(t, wantLabels[i], p.Label)
		assert.Equal(t, int64(20), p.ReviewCount)
	}
}

func TestTrendOverTimeRealMonths(t *testing.T) {
	analytics := &fakeAnalyticsStore{
		monthly: []repository.MonthlyStats{
			{Year: 2026, Month: 8, Total: 10, Promoters: 8, Detractors: 1},
			{Year: 2026, Month: 7, Total: 4, Promoters: 1, Detractors: 1},
		},
	}
	svc := newTestMetrics(analytics, &fakeReviewStore{})

	trend, err := svc.TrendOverTime(context.Background(), "Electronics", models.UnrestrictedScope())
	require.NoError(t, err)
	assert.False(t, trend.Synthetic)
	require.Len(t, trend.Points, 2)

	// Oldest first.
	assert.Equal(t, "2026-07", trend.Points[0].Label)
	assert.Equal(t, 0, trend.Points[0].NPS)
	assert.Equal(t, "2026-08", trend.Points[1].Label)
	assert.Equal(t, 70, trend.Points[1].NPS)
}

func TestTrendOverTimeDenied(t *testing.T) {
	svc := newTestMetrics(&fakeAnalyticsStore{}, &fakeReviewStore{})

	trend, err := svc.TrendOverTime(context.Background(), "Electronics", models.ScopeOf("Books"))
	require.NoError(t, err)
	assert.False(t, trend.Allowed)
	assert.Empty(t, trend.Points)
}

func TestCompareProductsValidation(t *testing.T) {
	analytics := &fakeAnalyticsStore{}
	svc := newTestMetrics(analytics, &fakeReviewStore{})

	_, err := svc.CompareProducts(context.Background(), []int64{1, 2, 3, 4, 5, 6}, models.UnrestrictedScope())
	assert.ErrorIs(t, err, ErrTooManyProducts)

	_, err = svc.CompareProducts(context.Background(), []int64{1}, models.UnrestrictedScope())
	assert.ErrorIs(t, err, ErrTooFewProducts)

	// Validation failures never reach storage.
	assert.Zero(t, analytics.compareCalls)
}

func TestCompareProducts(t *testing.T) {
	analytics := &fakeAnalyticsStore{
		compare: []repository.ProductStats{
			{ProductID: 1, Name: "Widget", TotalReviews: 4, AvgRating: 4.267, Promoters: 3, Detractors: 1},
			{ProductID: 2, Name: "Gadget", TotalReviews: 0, AvgRating: 0},
		},
	}
	svc := newTestMetrics(analytics, &fakeReviewStore{})

	entries, err := svc.CompareProducts(context.Background(), []int64{1, 2}, models.UnrestrictedScope())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 4.27, entries[0].AvgRating)
	assert.Equal(t, 50, entries[0].NPS)

	// Zero-review products stay in the comparison with zeroes.
	assert.Equal(t, int64(0), entries[1].ReviewCount)
	assert.Equal(t, 0, entries[1].NPS)
}

func TestCompareProductsEmptyScope(t *testing.T) {
	analytics := &fakeAnalyticsStore{}
	svc := newTestMetrics(analytics, &fakeReviewStore{})

	entries, err := svc.CompareProducts(context.Background(), []int64{1, 2}, models.ScopeOf())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, analytics.compareCalls)
}

func TestBestWorstProducts(t *testing.T) {
	analytics := &fakeAnalyticsStore{
		rollups: []repository.ProductStats{
			{ProductID: 1, Name: "A", TotalReviews: 4, Promoters: 4},
			{ProductID: 2, Name: "B", TotalReviews: 4, Detractors: 4},
		},
	}
	svc := newTestMetrics(analytics, &fakeReviewStore{})

	result, err := svc.BestWorstProducts(context.Background(), "Electronics", models.UnrestrictedScope())
	require.NoError(t, err)
	require.True(t, result.Allowed)
	assert.Equal(t, "A", result.Top[0].Name)
	assert.Equal(t, "B", result.Worst[0].Name)

	denied, err := svc.BestWorstProducts(context.Background(), "Electronics", models.ScopeOf())
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
}
