package models

// Product is created by ingestion and immutable afterwards.
type Product struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Category string `db:"category"`
}
