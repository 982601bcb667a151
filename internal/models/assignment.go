package models

import (
	"time"

	"github.com/google/uuid"
)

// CategoryAssignment grants an analyst visibility into one category.
// The (user_id, category) pair is unique; re-assigning is a no-op.
type CategoryAssignment struct {
	ID        int64     `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Category  string    `db:"category"`
	CreatedAt time.Time `db:"created_at"`
}
