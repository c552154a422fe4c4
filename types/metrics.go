package types

import "time"

// MetricsSnapshot is one structured sample from the system metrics source.
// Category maps are flattened into a single CSV row for the history export.
type MetricsSnapshot struct {
	Timestamp    time.Time          `json:"timestamp"`
	Uptime       string             `json:"uptime"`
	Board        string             `json:"board"`
	CPU          map[string]float64 `json:"cpu"`
	Temperatures map[string]float64 `json:"temperatures"`
	GPU          map[string]float64 `json:"gpu"`
	Memory       map[string]float64 `json:"memory"`
	Power        map[string]float64 `json:"power"`
}
