package models

import "time"

const (
	SentimentHappy   = "happy"
	SentimentUnhappy = "unhappy"
)

// Review is an append-only fact. Sentiment is derived from the rating at
// ingestion time; when both are present the rating is authoritative.
type Review struct {
	ID           int64      `db:"id"`
	ProductID    int64      `db:"product_id"`
	Rating       float64    `db:"rating"`
	ReviewText   string     `db:"review_text"`
	Sentiment    string     `db:"sentiment"`
	HelpfulVotes int64      `db:"helpful_votes"`
	ReviewDate   *time.Time `db:"review_date"`
}

// SentimentFromRating maps a 1-5 rating to the stored sentiment label.
func SentimentFromRating(rating float64) string {
	if rating >= 4 {
		return SentimentHappy
	}
	return SentimentUnhappy
}
