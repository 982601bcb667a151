package repository

import (
	"context"

	"insightlens/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Aggregate rows returned by the planner. NPS and other derived figures are
// computed by the metrics service; this layer only counts, sums and joins.

type CategoryStats struct {
	Category     string
	TotalReviews int64
	AvgRating    float64
	Promoters    int64
	Detractors   int64
}

type ProductStats struct {
	ProductID    int64
	Name         string
	Category     string
	TotalReviews int64
	AvgRating    float64
	Promoters    int64
	Detractors   int64
}

// KPIStats is the single-pass facet over the scoped review set: the NPS
// split, the satisfaction split and the rating histogram are all computed
// as conditional sums over one filtered scan.
type KPIStats struct {
	TotalReviews int64
	Promoters    int64 // rating >= 4
	Detractors   int64 // rating <= 2
	Happy        int64 // rating >= 4
	Unhappy      int64 // rating <= 3, intentionally not the detractor split
	RatingCounts [5]int64
}

type RatingSummary struct {
	Total      int64
	Promoters  int64
	Detractors int64
}

type MonthlyStats struct {
	Year       int
	Month      int
	Total      int64
	Promoters  int64
	Detractors int64
}

const (
	promoterSum  = "SUM(CASE WHEN r.rating >= 4 THEN 1 ELSE 0 END)"
	detractorSum = "SUM(CASE WHEN r.rating <= 2 THEN 1 ELSE 0 END)"
)

type AnalyticsRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAnalyticsRepository(db *pgxpool.Pool, logger *zap.Logger) *AnalyticsRepository {
	return &AnalyticsRepository{
		db:     db,
		logger: logger,
	}
}

// CategoryRollups returns the top categories by review volume within scope.
func (r *AnalyticsRepository) CategoryRollups(ctx context.Context, scope models.Scope, limit int) ([]CategoryStats, error) {
	query := squirrel.Select(
		"p.category",
		"COUNT(*)",
		"COALESCE(AVG(r.rating), 0)",
		promoterSum,
		detractorSum).
		From("reviews r").
		Join("products p ON p.id = r.product_id").
		GroupBy("p.category").
		OrderBy("COUNT(*) DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)
	query = scopeFilter(query, scope)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CategoryStats
	for rows.Next() {
		var cs CategoryStats
		if err := rows.Scan(&cs.Category, &cs.TotalReviews, &cs.AvgRating, &cs.Promoters, &cs.Detractors); err != nil {
			return nil, err
		}
		stats = append(stats, cs)
	}

	return stats, rows.Err()
}

// ProductRollups returns per-product aggregates within scope, keeping only
// products with at least minReviews reviews. Enumeration order (product id)
// is preserved so downstream sorting stays stable.
func (r *AnalyticsRepository) ProductRollups(ctx context.Context, scope models.Scope, minReviews int64) ([]ProductStats, error) {
	query := r.productRollupQuery(minReviews)
	query = scopeFilter(query, scope)
	return r.queryProductStats(ctx, query)
}

// ProductRollupsByCategory is the same rollup restricted to one category.
// The caller is responsible for having checked the category against scope.
func (r *AnalyticsRepository) ProductRollupsByCategory(ctx context.Context, category string, minReviews int64) ([]ProductStats, error) {
	query := r.productRollupQuery(minReviews).
		Where(squirrel.Eq{"p.category": category})
	return r.queryProductStats(ctx, query)
}

func (r *AnalyticsRepository) productRollupQuery(minReviews int64) squirrel.SelectBuilder {
	return squirrel.Select(
		"p.id",
		"p.name",
		"p.category",
		"COUNT(*)",
		"COALESCE(AVG(r.rating), 0)",
		promoterSum,
		detractorSum).
		From("reviews r").
		Join("products p ON p.id = r.product_id").
		GroupBy("p.id", "p.name", "p.category").
		Having("COUNT(*) >= ?", minReviews).
		OrderBy("p.id").
		PlaceholderFormat(squirrel.Dollar)
}

func (r *AnalyticsRepository) queryProductStats(ctx context.Context, query squirrel.SelectBuilder) ([]ProductStats, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []ProductStats
	for rows.Next() {
		var ps ProductStats
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Category, &ps.TotalReviews, &ps.AvgRating, &ps.Promoters, &ps.Detractors); err != nil {
			return nil, err
		}
		stats = append(stats, ps)
	}

	return stats, rows.Err()
}

// GlobalKPIs computes the dashboard facet in one pass: total, both rating
// splits and the 1..5 histogram as conditional sums over the scoped set.
func (r *AnalyticsRepository) GlobalKPIs(ctx context.Context, scope models.Scope) (*KPIStats, error) {
	query := squirrel.Select(
		"COUNT(*)",
		"COALESCE("+promoterSum+", 0)",
		"COALESCE("+detractorSum+", 0)",
		"COALESCE(SUM(CASE WHEN r.rating >= 4 THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN r.rating <= 3 THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN r.rating = 1 THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN r.rating = 2 THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN r.rating = 3 THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN r.rating = 4 THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN r.rating = 5 THEN 1 ELSE 0 END), 0)").
		From("reviews r").
		Join("products p ON p.id = r.product_id").
		PlaceholderFormat(squirrel.Dollar)
	query = scopeFilter(query, scope)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var kpi KPIStats
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&kpi.TotalReviews, &kpi.Promoters, &kpi.Detractors, &kpi.Happy, &kpi.Unhappy,
		&kpi.RatingCounts[0], &kpi.RatingCounts[1], &kpi.RatingCounts[2], &kpi.RatingCounts[3], &kpi.RatingCounts[4],
	)
	if err != nil {
		return nil, err
	}

	return &kpi, nil
}

// CategorySummary returns the promoter/detractor split over every review in
// one category.
func (r *AnalyticsRepository) CategorySummary(ctx context.Context, category string) (*RatingSummary, error) {
	query := squirrel.Select(
		"COUNT(*)",
		"COALESCE("+promoterSum+", 0)",
		"COALESCE("+detractorSum+", 0)").
		From("reviews r").
		Join("products p ON p.id = r.product_id").
		Where(squirrel.Eq{"p.category": category}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var summary RatingSummary
	err = r.db.QueryRow(ctx, sql, args...).Scan(&summary.Total, &summary.Promoters, &summary.Detractors)
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

// MonthlyTrend groups a category's dated reviews by calendar month, newest
// first, capped at the last `months` months. Undated reviews are skipped.
func (r *AnalyticsRepository) MonthlyTrend(ctx context.Context, category string, months int) ([]MonthlyStats, error) {
	query := squirrel.Select(
		"EXTRACT(YEAR FROM r.review_date)::int",
		"EXTRACT(MONTH FROM r.review_date)::int",
		"COUNT(*)",
		promoterSum,
		detractorSum).
		From("reviews r").
		Join("products p ON p.id = r.product_id").
		Where(squirrel.Eq{"p.category": category}).
		Where("r.review_date IS NOT NULL").
		GroupBy("1", "2").
		OrderBy("1 DESC", "2 DESC").
		Limit(uint64(months)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []MonthlyStats
	for rows.Next() {
		var ms MonthlyStats
		if err := rows.Scan(&ms.Year, &ms.Month, &ms.Total, &ms.Promoters, &ms.Detractors); err != nil {
			return nil, err
		}
		stats = append(stats, ms)
	}

	return stats, rows.Err()
}

// CompareRows returns one row per requested product that is visible in
// scope. The LEFT JOIN keeps zero-review products; out-of-scope products
// are filtered out entirely so nothing about them leaks.
func (r *AnalyticsRepository) CompareRows(ctx context.Context, productIDs []int64, scope models.Scope) ([]ProductStats, error) {
	query := squirrel.Select(
		"p.id",
		"p.name",
		"p.category",
		"COUNT(r.id)",
		"COALESCE(AVG(r.rating), 0)",
		"COALESCE(SUM(CASE WHEN r.rating >= 4 THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN r.rating <= 2 THEN 1 ELSE 0 END), 0)").
		From("products p").
		LeftJoin("reviews r ON r.product_id = p.id").
		Where(squirrel.Eq{"p.id": productIDs}).
		GroupBy("p.id", "p.name", "p.category").
		OrderBy("p.id").
		PlaceholderFormat(squirrel.Dollar)
	query = scopeFilter(query, scope)

	return r.queryProductStats(ctx, query)
}
