package models

import (
	"time"

	"github.com/google/uuid"
)

// ToolCallRecord is the append-only audit trail of chat turns. It stores
// whether a chart was attached, never the chart payload itself.
type ToolCallRecord struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Query     string    `db:"query"`
	ToolUsed  string    `db:"tool_used"`
	ToolArgs  string    `db:"tool_args"`
	Answer    string    `db:"answer"`
	HasChart  bool      `db:"has_chart"`
	CreatedAt time.Time `db:"created_at"`
}
