package repository

import (
	"context"

	"insightlens/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ConversationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewConversationRepository(db *pgxpool.Pool, logger *zap.Logger) *ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one audit record. The log is append-only; nothing updates
// or deletes rows here.
func (r *ConversationRepository) Append(ctx context.Context, rec *models.ToolCallRecord) error {
	query := squirrel.Insert("tool_call_records").
		Columns("id", "user_id", "query", "tool_used", "tool_args", "answer", "has_chart", "created_at").
		Values(rec.ID, rec.UserID, rec.Query, rec.ToolUsed, rec.ToolArgs, rec.Answer, rec.HasChart, rec.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// RecentByUser returns the caller's latest turns, newest first.
func (r *ConversationRepository) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ToolCallRecord, error) {
	query := squirrel.Select("id", "user_id", "query", "tool_used", "tool_args", "answer", "has_chart", "created_at").
		From("tool_call_records").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
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

	var records []models.ToolCallRecord
	for rows.Next() {
		var rec models.ToolCallRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Query, &rec.ToolUsed, &rec.ToolArgs, &rec.Answer, &rec.HasChart, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
