package models

import (
	"time"

	"github.com/google/uuid"
)

// Report is a chat answer the user chose to keep.
type Report struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	ProductID *int64    `db:"product_id"`
	Query     string    `db:"query"`
	Answer    string    `db:"answer"`
	ToolUsed  string    `db:"tool_used"`
	CreatedAt time.Time `db:"created_at"`
}
