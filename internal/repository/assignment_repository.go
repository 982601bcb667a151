package repository

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type AssignmentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAssignmentRepository(db *pgxpool.Pool, logger *zap.Logger) *AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		logger: logger,
	}
}

// ListCategories returns the categories assigned to one user.
func (r *AssignmentRepository) ListCategories(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := squirrel.Select("category").
		From("category_assignments").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("category").
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

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// Insert assigns a category to a user. The unique index on
// (user_id, category) makes this idempotent; the returned flag reports
// whether a new row was actually created.
func (r *AssignmentRepository) Insert(ctx context.Context, userID uuid.UUID, category string) (bool, error) {
	query := squirrel.Insert("category_assignments").
		Columns("user_id", "category").
		Values(userID, category).
		Suffix("ON CONFLICT (user_id, category) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

// Delete removes an assignment and returns how many rows were deleted.
func (r *AssignmentRepository) Delete(ctx context.Context, userID uuid.UUID, category string) (int64, error) {
	query := squirrel.Delete("category_assignments").
		Where(squirrel.Eq{"user_id": userID, "category": category}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
