package models

import (
	"time"

	"eisim-progress/internal/analysis"
)

// ResultsResponse describes the shape of the parsed run.
type ResultsResponse struct {
	SourceDir string        `json:"source_dir"`
	Episodes  []EpisodeInfo `json:"episodes"`
	Agents    []string      `json:"agents"`
	Scenarios []string      `json:"scenarios"`
}

// EpisodeInfo is one episode folder in chronological order.
type EpisodeInfo struct {
	Index int       `json:"index"`
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
}

// ScenarioResponse carries both matrices of a scenario, row per episode and
// column per agent.
type ScenarioResponse struct {
	Scenario         string      `json:"scenario"`
	Episodes         []string    `json:"episodes"`
	Agents           []string    `json:"agents"`
	CumulativeReturn [][]float64 `json:"cumulative_return"`
	AvgPrice         [][]float64 `json:"avg_price"`
}

// TrendResponse is the platform trend of a scenario.
type TrendResponse struct {
	Scenario string       `json:"scenario"`
	Window   int          `json:"window"`
	Points   []TrendPoint `json:"points"`
}

type TrendPoint struct {
	Episode     int     `json:"episode"` // 1-based
	Name        string  `json:"name"`
	TotalReturn float64 `json:"total_return"`
	SMA         float64 `json:"sma"`
	Label       string  `json:"label"` // SMA formatted in millions
}

// RankResponse ranks the agents of a scenario by mean cumulative return.
type RankResponse struct {
	Scenario string                 `json:"scenario"`
	Rankings []analysis.RankedAgent `json:"rankings"`
}

type ReloadResponse struct {
	Cleared int `json:"cleared"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
