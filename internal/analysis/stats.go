package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"eisim-progress/internal/model"
)

var ErrUnknownScenario = errors.New("unknown scenario")

// AgentStats summarizes one agent's cumulative returns across the episodes
// of a scenario.
type AgentStats struct {
	Agent    string `json:"agent"`
	Scenario string `json:"scenario"`
	Episodes int    `json:"episodes"`

	FirstReturn float64 `json:"first_return"`
	FinalReturn float64 `json:"final_return"`
	MeanReturn  float64 `json:"mean_return"`
	MinReturn   float64 `json:"min_return"`
	MaxReturn   float64 `json:"max_return"`
	P05Return   float64 `json:"p05_return"`
	P95Return   float64 `json:"p95_return"`

	SpreadP95P05 float64 `json:"spread_p95_p05"`
	// Improvement is FinalReturn - FirstReturn: how much training moved the agent.
	Improvement float64 `json:"improvement"`

	MeanAvgPrice float64 `json:"mean_avg_price"`
}

// ComputeAgentStats returns one AgentStats per agent, in canonical agent
// order.
func ComputeAgentStats(r *model.Results, scenario string) ([]AgentStats, error) {
	t, ok := r.Table(scenario)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, scenario)
	}
	episodes, _ := t.Dims()
	out := make([]AgentStats, 0, len(r.Agents))
	for j, agent := range r.Agents {
		s := AgentStats{Agent: agent, Scenario: scenario, Episodes: episodes}
		if episodes == 0 {
			out = append(out, s)
			continue
		}
		returns := model.Column(t.CumulativeReturn, j)
		s.FirstReturn = returns[0]
		s.FinalReturn = returns[len(returns)-1]
		s.MeanReturn = stat.Mean(returns, nil)
		s.MinReturn = floats.Min(returns)
		s.MaxReturn = floats.Max(returns)
		s.Improvement = s.FinalReturn - s.FirstReturn

		sorted := append([]float64(nil), returns...)
		sort.Float64s(sorted)
		s.P05Return = percentileSorted(sorted, 0.05)
		s.P95Return = percentileSorted(sorted, 0.95)
		s.SpreadP95P05 = s.P95Return - s.P05Return

		s.MeanAvgPrice = stat.Mean(model.Column(t.AvgPrice, j), nil)
		out = append(out, s)
	}
	return out, nil
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
