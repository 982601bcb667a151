package repository

import (
	"context"

	"insightlens/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ReviewRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReviewRepository(db *pgxpool.Pool, logger *zap.Logger) *ReviewRepository {
	return &ReviewRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ReviewRepository) CreateBatch(ctx context.Context, reviews []*models.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	builder := squirrel.Insert("reviews").
		Columns("product_id", "rating", "review_text", "sentiment", "helpful_votes", "review_date").
		PlaceholderFormat(squirrel.Dollar)

	for _, rv := range reviews {
		builder = builder.Values(rv.ProductID, rv.Rating, rv.ReviewText, rv.Sentiment, rv.HelpfulVotes, rv.ReviewDate)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ListByProduct returns the reviews of one product, joined against products
// and restricted to the caller's scope. Out-of-scope products simply yield
// an empty list.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID int64, scope models.Scope) ([]models.Review, error) {
	query := squirrel.Select(
		"r.id", "r.product_id", "r.rating", "r.review_text", "r.sentiment", "r.helpful_votes", "r.review_date").
		From("reviews r").
		Join("products p ON p.id = r.product_id").
		Where(squirrel.Eq{"r.product_id": productID}).
		OrderBy("r.id").
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

	var reviews []models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.Rating, &rv.ReviewText, &rv.Sentiment, &rv.HelpfulVotes, &rv.ReviewDate); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}

	return reviews, rows.Err()
}

// ListTopHelpful returns up to limit scoped reviews for a product, most
// helpful first. Ties and vote-less datasets fall back to insertion order.
func (r *ReviewRepository) ListTopHelpful(ctx context.Context, productID int64, scope models.Scope, limit int) ([]models.Review, error) {
	query := squirrel.Select(
		"r.id", "r.product_id", "r.rating", "r.review_text", "r.sentiment", "r.helpful_votes", "r.review_date").
		From("reviews r").
		Join("products p ON p.id = r.product_id").
		Where(squirrel.Eq{"r.product_id": productID}).
		OrderBy("r.helpful_votes DESC", "r.id ASC").
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

	var reviews []models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.Rating, &rv.ReviewText, &rv.Sentiment, &rv.HelpfulVotes, &rv.ReviewDate); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}

	return reviews, rows.Err()
}

// ListTopHelpfulByCategory returns up to limit reviews across a whole
// category, most helpful first. Used for category-level insight summaries.
func (r *ReviewRepository) ListTopHelpfulByCategory(ctx context.Context, category string, limit int) ([]models.Review, error) {
	query := squirrel.Select(
		"r.id", "r.product_id", "r.rating", "r.review_text", "r.sentiment", "r.helpful_votes", "r.review_date").
		From("reviews r").
		Join("products p ON p.id = r.product_id").
		Where(squirrel.Eq{"p.category": category}).
		OrderBy("r.helpful_votes DESC", "r.id ASC").
		Limit(uint64(limit)).
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

	var reviews []models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.Rating, &rv.ReviewText, &rv.Sentiment, &rv.HelpfulVotes, &rv.ReviewDate); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}

	return reviews, rows.Err()
}

// SentimentCounts counts happy/unhappy reviews of one product in one pass.
func (r *ReviewRepository) SentimentCounts(ctx context.Context, productID int64, scope models.Scope) (happy, unhappy int64, err error) {
	query := squirrel.Select(
		"COALESCE(SUM(CASE WHEN r.sentiment = 'happy' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN r.sentiment = 'unhappy' THEN 1 ELSE 0 END), 0)").
		From("reviews r").
		Join("products p ON p.id = r.product_id").
		Where(squirrel.Eq{"r.product_id": productID}).
		PlaceholderFormat(squirrel.Dollar)
	query = scopeFilter(query, scope)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, 0, err
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&happy, &unhappy)
	return happy, unhappy, err
}

// scopeFilter narrows a products-joined query to the caller's categories.
// Unrestricted scopes pass through untouched.
func scopeFilter(query squirrel.SelectBuilder, scope models.Scope) squirrel.SelectBuilder {
	if scope.Unrestricted {
		return query
	}
	return query.Where(squirrel.Eq{"p.category": scope.Categories})
}
