package model

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ScenarioTable holds the per-episode, per-agent values of one scenario.
// Both matrices are (episodes x agents); row i is the i-th episode in
// chronological order and column j is Results.Agents[j].
type ScenarioTable struct {
	Scenario         string
	CumulativeReturn *mat.Dense
	AvgPrice         *mat.Dense
}

func NewScenarioTable(scenario string, episodes, agents int) *ScenarioTable {
	return &ScenarioTable{
		Scenario:         scenario,
		CumulativeReturn: newDense(episodes, agents),
		AvgPrice:         newDense(episodes, agents),
	}
}

// mat.NewDense panics on zero dimensions, an empty table is valid here.
func newDense(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(r, c, nil)
}

// Dims returns (episodes, agents).
func (t *ScenarioTable) Dims() (int, int) {
	if t.CumulativeReturn.IsEmpty() {
		return 0, 0
	}
	return t.CumulativeReturn.Dims()
}

// TotalReturns sums cumulative returns over agents, one value per episode.
// This is the whole-platform return series.
func (t *ScenarioTable) TotalReturns() []float64 {
	rows, cols := t.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			sum += t.CumulativeReturn.At(i, j)
		}
		out[i] = sum
	}
	return out
}

// Rows converts m into a row-major [][]float64 for serialization.
func Rows(m *mat.Dense) [][]float64 {
	if m == nil || m.IsEmpty() {
		return [][]float64{}
	}
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

// Column copies column j of m.
func Column(m *mat.Dense, j int) []float64 {
	if m == nil || m.IsEmpty() {
		return nil
	}
	return mat.Col(nil, j, m)
}

// Results is the aggregate result table for one training run.
type Results struct {
	Episodes  []EpisodeFolder
	Agents    []string
	Scenarios []string
	Tables    map[string]*ScenarioTable
}

// Table returns the table of a scenario.
func (r *Results) Table(scenario string) (*ScenarioTable, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.Tables[scenario]
	return t, ok
}

// AgentIndex returns the column of an agent, or -1.
func (r *Results) AgentIndex(agent string) int {
	for i, a := range r.Agents {
		if a == agent {
			return i
		}
	}
	return -1
}

// Validate checks that every matrix is
// (len(Episodes) x len(Agents)) and every scenario has a table.
func (r *Results) Validate() error {
	if r == nil {
		return fmt.Errorf("results are nil")
	}
	if len(r.Scenarios) != len(r.Tables) {
		return fmt.Errorf("%d scenarios but %d tables", len(r.Scenarios), len(r.Tables))
	}
	for _, s := range r.Scenarios {
		t, ok := r.Tables[s]
		if !ok {
			return fmt.Errorf("scenario %q has no table", s)
		}
		if len(r.Episodes) == 0 || len(r.Agents) == 0 {
			continue
		}
		for name, m := range map[string]*mat.Dense{"cumulative return": t.CumulativeReturn, "average price": t.AvgPrice} {
			rows, cols := m.Dims()
			if rows != len(r.Episodes) || cols != len(r.Agents) {
				return fmt.Errorf("scenario %q %s matrix is %dx%d, want %dx%d",
					s, name, rows, cols, len(r.Episodes), len(r.Agents))
			}
		}
	}
	return nil
}

// SortedScenarios returns the scenario names in lexical order.
func SortedScenarios(tables map[string]*ScenarioTable) []string {
	out := make([]string, 0, len(tables))
	for k := range tables {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
