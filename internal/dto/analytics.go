package dto

type NPSResponse struct {
	NPSScore int `json:"nps_score"`
}

type SentimentResponse struct {
	Happy   int64 `json:"happy"`
	Unhappy int64 `json:"unhappy"`
}

type CategoryPerformance struct {
	Category  string  `json:"category"`
	NPS       int     `json:"nps"`
	AvgRating float64 `json:"avg_rating"`
}

type ProductScore struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	NPS      int     `json:"nps"`
	Rating   float64 `json:"rating"`
}

type DashboardKPIs struct {
	NPS          int    `json:"nps"`
	TotalReviews int64  `json:"total_reviews"`
	HappyPct     int    `json:"happy_pct"`
	WorstProduct string `json:"worst_product"`
}

// Satisfaction uses the rating>=4 / rating<=3 split. This deliberately
// differs from the promoter/detractor split (>=4 / <=2) used for NPS.
type Satisfaction struct {
	Happy   int64 `json:"happy"`
	Unhappy int64 `json:"unhappy"`
}

type DashboardResponse struct {
	CategoryPerformance []CategoryPerformance `json:"category_performance"`
	TopProducts         []ProductScore        `json:"top_products"`
	BadProducts         []ProductScore        `json:"bad_products"`
	KPIs                DashboardKPIs         `json:"kpis"`
	Satisfaction        Satisfaction          `json:"satisfaction"`
	RatingDistribution  map[string]int64      `json:"rating_distribution"`
}

type TrendResponse struct {
	Category     string     `json:"category"`
	Labels       []string   `json:"labels"`
	NPSTrend     []int      `json:"nps_trend"`
	ReviewCounts []int64    `json:"review_counts"`
	ChartData    *ChartData `json:"chart_data"`
}
