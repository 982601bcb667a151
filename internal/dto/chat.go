package dto

type ChatRequest struct {
	Query            string `json:"query"`
	ContextProductID *int64 `json:"context_product_id"` // optional scoping hint
}

type ChatResponse struct {
	Answer    string         `json:"answer"`
	ToolUsed  string         `json:"tool_used"`
	ToolArgs  map[string]any `json:"tool_args"`
	ChartData *ChartData     `json:"chart_data"`
}

type HistoryEntry struct {
	Query     string `json:"query"`
	ToolUsed  string `json:"tool_used"`
	Answer    string `json:"answer"`
	HasChart  bool   `json:"has_chart"`
	Timestamp string `json:"timestamp"`
}

type InsightsRequest struct {
	Question  string  `json:"question"`
	Category  *string `json:"category"`
	ProductID *int64  `json:"product_id"`
}

type InsightsResponse struct {
	Insights    string `json:"insights"`
	ReviewCount int    `json:"review_count"`
}
