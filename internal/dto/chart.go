package dto

const (
	ChartBar  = "bar"
	ChartLine = "line"
	ChartPie  = "pie"
)

// ChartData is a renderer-agnostic chart description. It is always derived
// from the numbers already present in a tool result, never recomputed from
// raw data, so the chart and the narrated answer cannot disagree.
type ChartData struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}
