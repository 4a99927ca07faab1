package data

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"eisim-progress/internal/filelock"
	"eisim-progress/internal/model"
)

// ResultsSnapshot is the JSON form of model.Results.
type ResultsSnapshot struct {
	RunID     string                   `json:"run_id,omitempty"`
	Episodes  []model.EpisodeFolder    `json:"episodes"`
	Agents    []string                 `json:"agents"`
	Scenarios []string                 `json:"scenarios"`
	Tables    map[string]TableSnapshot `json:"tables"`
}

// TableSnapshot holds both matrices of a scenario, row per episode.
type TableSnapshot struct {
	CumulativeReturn [][]float64 `json:"cumulative_return"`
	AvgPrice         [][]float64 `json:"avg_price"`
}

func NewSnapshot(runID string, r *model.Results) ResultsSnapshot {
	s := ResultsSnapshot{
		RunID:     runID,
		Episodes:  r.Episodes,
		Agents:    r.Agents,
		Scenarios: r.Scenarios,
		Tables:    make(map[string]TableSnapshot, len(r.Tables)),
	}
	for name, t := range r.Tables {
		s.Tables[name] = TableSnapshot{
			CumulativeReturn: model.Rows(t.CumulativeReturn),
			AvgPrice:         model.Rows(t.AvgPrice),
		}
	}
	return s
}

// Results rebuilds model.Results and checks its shape.
func (s ResultsSnapshot) Results() (*model.Results, error) {
	r := &model.Results{
		Episodes:  s.Episodes,
		Agents:    s.Agents,
		Scenarios: s.Scenarios,
		Tables:    make(map[string]*model.ScenarioTable, len(s.Tables)),
	}
	for name, ts := range s.Tables {
		t := model.NewScenarioTable(name, len(s.Episodes), len(s.Agents))
		if err := fill(t.CumulativeReturn, ts.CumulativeReturn); err != nil {
			return nil, fmt.Errorf("scenario %q cumulative return: %w", name, err)
		}
		if err := fill(t.AvgPrice, ts.AvgPrice); err != nil {
			return nil, fmt.Errorf("scenario %q average price: %w", name, err)
		}
		r.Tables[name] = t
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func fill(m *mat.Dense, rows [][]float64) error {
	if m.IsEmpty() {
		if len(rows) != 0 {
			return fmt.Errorf("%d rows for an empty table", len(rows))
		}
		return nil
	}
	r, c := m.Dims()
	if len(rows) != r {
		return fmt.Errorf("%d rows, want %d", len(rows), r)
	}
	for i, row := range rows {
		if len(row) != c {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), c)
		}
		m.SetRow(i, row)
	}
	return nil
}

func SaveResultsJSON(path, runID string, r *model.Results) error {
	raw, err := json.MarshalIndent(NewSnapshot(runID, r), "", "  ")
	if err != nil {
		return err
	}
	return filelock.AtomicWrite(path, raw)
}

func LoadResultsJSON(path string) (*model.Results, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s ResultsSnapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s.Results()
}
