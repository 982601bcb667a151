package repository

import (
	"context"

	"insightlens/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ReportRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReportRepository(db *pgxpool.Pool, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	query := squirrel.Insert("reports").
		Columns("id", "user_id", "product_id", "query", "answer", "tool_used", "created_at").
		Values(report.ID, report.UserID, report.ProductID, report.Query, report.Answer, report.ToolUsed, report.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ReportRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Report, error) {
	query := squirrel.Select("id", "user_id", "product_id", "query", "answer", "tool_used", "created_at").
		From("reports").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
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

	var reports []models.Report
	for rows.Next() {
		var rep models.Report
		if err := rows.Scan(&rep.ID, &rep.UserID, &rep.ProductID, &rep.Query, &rep.Answer, &rep.ToolUsed, &rep.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}

	return reports, rows.Err()
}
