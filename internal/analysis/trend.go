package analysis

import (
	"fmt"

	"eisim-progress/internal/model"
)

// Trend is the smoothed whole-platform return of one scenario.
type Trend struct {
	Scenario     string    `json:"scenario" yaml:"scenario"`
	TotalReturns []float64 `json:"total_returns" yaml:"total_returns"`
	Smoothed     []float64 `json:"smoothed" yaml:"smoothed"`
	Window       int       `json:"window" yaml:"window"`
}

// PlatformTrend sums cumulative returns over agents per episode and smooths
// the sums.
func PlatformTrend(t *model.ScenarioTable, window int) (Trend, error) {
	totals := t.TotalReturns()
	smoothed, err := SMA(totals, window)
	if err != nil {
		return Trend{}, err
	}
	return Trend{
		Scenario:     t.Scenario,
		TotalReturns: totals,
		Smoothed:     smoothed,
		Window:       window,
	}, nil
}

// Trends computes PlatformTrend for every scenario in r, in scenario order.
func Trends(r *model.Results, window int) ([]Trend, error) {
	out := make([]Trend, 0, len(r.Scenarios))
	for _, s := range r.Scenarios {
		t, ok := r.Table(s)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, s)
		}
		tr, err := PlatformTrend(t, window)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}
