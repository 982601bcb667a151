package dto

type SaveReportRequest struct {
	Query     string `json:"query"`
	Answer    string `json:"answer"`
	ToolUsed  string `json:"tool_used"`
	ProductID *int64 `json:"product_id"`
}

type ReportResponse struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	Answer    string `json:"answer"`
	ToolUsed  string `json:"tool_used"`
	ProductID *int64 `json:"product_id"`
	CreatedAt string `json:"created_at"`
}
