package aggregate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eisim-progress/internal/model"
	"eisim-progress/internal/simlog"
)

const (
	ep0 = "2023-01-01_00-00-00"
	ep1 = "2023-01-01_00-05-00"
	ep2 = "2023-01-01_00-10-00"
)

// writeLog writes a log whose final cumulative profit is cum and whose
// prices average to price.
func writeLog(t *testing.T, root, episode, scenario, agent string, cum, price float64) {
	t.Helper()
	rows := simlog.Rows(1, []float64{price - 1, price + 1}, []float64{cum / 2, cum / 2})
	_, err := simlog.WriteAgentLog(root, episode, scenario, agent, rows)
	require.NoError(t, err)
}

func TestParse_Tables(t *testing.T) {
	root := t.TempDir()
	// Later episodes are written first and agents in non-ordinal order.
	for _, ep := range []string{ep2, ep0, ep1} {
		for _, sc := range []string{"B_X_1", "A_X_1"} {
			for _, agent := range []string{"dc10", "dc2", "dc1"} {
				ord, err := model.AgentOrdinal(agent)
				require.NoError(t, err)
				e, _ := model.ParseEpisodeFolder(ep)
				cum := float64(ord)*100 + float64(e.Start.Minute())
				writeLog(t, root, ep, sc, agent, cum, float64(ord))
			}
		}
	}

	out, err := NewParser(WithWorkers(2)).Parse(context.Background(), root)
	require.NoError(t, err)
	require.True(t, out.OK())
	require.NoError(t, out.Err())

	r := out.Results
	assert.Equal(t, []string{ep0, ep1, ep2}, model.EpisodeNames(r.Episodes))
	assert.Equal(t, []string{"dc1", "dc2", "dc10"}, r.Agents)
	assert.Equal(t, []string{"A_X_1", "B_X_1"}, r.Scenarios)
	require.NoError(t, r.Validate())

	table, ok := r.Table("A_X_1")
	require.True(t, ok)
	assert.Equal(t, [][]float64{
		{100, 200, 1000},
		{105, 205, 1005},
		{110, 210, 1010},
	}, model.Rows(table.CumulativeReturn))
	assert.Equal(t, []float64{10, 10, 10}, model.Column(table.AvgPrice, 2))
}

func TestParse_StableUnderCreationOrder(t *testing.T) {
	build := func(agents []string) *model.Results {
		root := t.TempDir()
		for _, ep := range []string{ep0, ep1} {
			for _, agent := range agents {
				ord, _ := model.AgentOrdinal(agent)
				writeLog(t, root, ep, "A_X_1", agent, float64(ord), 1)
			}
		}
		out, err := NewParser().Parse(context.Background(), root)
		require.NoError(t, err)
		require.True(t, out.OK())
		return out.Results
	}

	a := build([]string{"dc3", "dc1", "dc2"})
	b := build([]string{"dc2", "dc3", "dc1"})
	assert.Equal(t, a.Agents, b.Agents)
	assert.Equal(t, model.Rows(a.Tables["A_X_1"].CumulativeReturn), model.Rows(b.Tables["A_X_1"].CumulativeReturn))
}

func TestParse_ScenarioCountMismatch(t *testing.T) {
	root := t.TempDir()
	for _, sc := range []string{"A", "B", "C"} {
		writeLog(t, root, ep0, "S_"+sc, "dc1", 1, 1)
	}
	for _, sc := range []string{"A", "B", "C", "D"} {
		writeLog(t, root, ep1, "S_"+sc, "dc1", 1, 1)
	}

	out, err := NewParser().Parse(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, out.OK())
	assert.Nil(t, out.Results)
	require.NotNil(t, out.Mismatch)
	assert.Equal(t, ReasonScenarioCount, out.Mismatch.Reason)
	assert.Equal(t, 3, out.Mismatch.Want)
	assert.Equal(t, 4, out.Mismatch.Got)
	assert.Equal(t, filepath.Join(root, ep1), out.Mismatch.Path)
	assert.ErrorIs(t, out.Err(), ErrScenarioCountMismatch)
}

func TestParse_AgentCountMismatch(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, ep0, "A_X_1", "dc1", 1, 1)
	writeLog(t, root, ep0, "A_X_1", "dc2", 1, 1)
	writeLog(t, root, ep0, "B_X_1", "dc1", 1, 1)

	out, err := NewParser().Parse(context.Background(), root)
	require.NoError(t, err)
	require.NotNil(t, out.Mismatch)
	assert.Equal(t, ReasonAgentCount, out.Mismatch.Reason)
	assert.Equal(t, 2, out.Mismatch.Want)
	assert.Equal(t, 1, out.Mismatch.Got)
	assert.ErrorIs(t, out.Err(), ErrAgentCountMismatch)
}

func TestParse_NoEpisodes(t *testing.T) {
	out, err := NewParser().Parse(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, out.Mismatch)
	assert.Equal(t, ReasonNoEpisodes, out.Mismatch.Reason)
	assert.ErrorIs(t, out.Err(), ErrNoEpisodes)
}

func TestParse_NoScenarios(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ep0, "checkpoints"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ep1), 0o755))

	out, err := NewParser().Parse(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, out.OK())
	assert.Nil(t, out.Results)
	require.NotNil(t, out.Mismatch)
	assert.Equal(t, ReasonNoScenarios, out.Mismatch.Reason)
	assert.Equal(t, root, out.Mismatch.Path)
	assert.ErrorIs(t, out.Err(), ErrNoScenarios)
}

func TestParse_FatalErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, root string)
		want  error
	}{
		{
			name: "malformed episode name",
			setup: func(t *testing.T, root string) {
				writeLog(t, root, ep0, "A_X_1", "dc1", 1, 1)
				require.NoError(t, os.Mkdir(filepath.Join(root, "notes"), 0o755))
			},
			want: model.ErrMalformedEpisode,
		},
		{
			name: "agent without ordinal",
			setup: func(t *testing.T, root string) {
				writeLog(t, root, ep0, "A_X_1", "cloud", 1, 1)
			},
			want: model.ErrMalformedAgent,
		},
		{
			name: "scenario renamed between episodes",
			setup: func(t *testing.T, root string) {
				writeLog(t, root, ep0, "A_X_1", "dc1", 1, 1)
				writeLog(t, root, ep1, "B_X_1", "dc1", 1, 1)
			},
			want: ErrUnknownScenario,
		},
		{
			name: "agent renamed between episodes",
			setup: func(t *testing.T, root string) {
				writeLog(t, root, ep0, "A_X_1", "dc1", 1, 1)
				writeLog(t, root, ep1, "A_X_1", "dc2", 1, 1)
			},
			want: ErrUnknownAgent,
		},
		{
			name: "missing column",
			setup: func(t *testing.T, root string) {
				dir := filepath.Join(root, ep0, simlog.ScenarioDir("A_X_1"))
				require.NoError(t, os.MkdirAll(dir, 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, "dc1_log.csv"), []byte("SimTime,Price\n1,2\n"), 0o644))
			},
			want: ErrMissingColumn,
		},
		{
			name: "header only",
			setup: func(t *testing.T, root string) {
				_, err := simlog.WriteAgentLog(root, ep0, "A_X_1", "dc1", nil)
				require.NoError(t, err)
			},
			want: ErrEmptyLog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tt.setup(t, root)
			out, err := NewParser().Parse(context.Background(), root)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, out.Results)
			assert.Nil(t, out.Mismatch)
		})
	}
}

func TestParse_IgnoresHiddenAndUnmarkedEntries(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, ep0, "A_X_1", "dc1", 5, 1)
	scDir := filepath.Join(root, ep0, simlog.ScenarioDir("A_X_1"))
	require.NoError(t, os.WriteFile(filepath.Join(scDir, ".DS_Store"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, ep0, "Tasklogs_scenario_A_X_1"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, ".cache"), 0o755))

	out, err := NewParser().Parse(context.Background(), root)
	require.NoError(t, err)
	require.True(t, out.OK())
	assert.Equal(t, []string{"A_X_1"}, out.Results.Scenarios)
	assert.Equal(t, []string{"dc1"}, out.Results.Agents)
}

func TestParse_CustomColumns(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ep0, "Pricelogs_scenario_A")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dc1_log.csv"), []byte("t,p,total\n1,2,3\n2,4,9\n"), 0o644))

	out, err := NewParser(WithColumns("total", "p")).Parse(context.Background(), root)
	require.NoError(t, err)
	require.True(t, out.OK())
	table := out.Results.Tables["A"]
	assert.Equal(t, 9.0, table.CumulativeReturn.At(0, 0))
	assert.Equal(t, 3.0, table.AvgPrice.At(0, 0))
}

func TestParse_Cancelled(t *testing.T) {
	root := t.TempDir()
	_, err := simlog.Generate(root, simlog.RunSpec{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Episodes: 2,
		Scenarios: []string{"A_X_1"}, Agents: []string{"dc1"}, Steps: 2, EpisodeGap: time.Minute,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewParser().Parse(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScenarioAndAgentNames(t *testing.T) {
	assert.Equal(t, "A_B_10", ScenarioName("Pricelogs_scenario_A_B_10"))
	assert.Equal(t, "", ScenarioName("Pricelogs_scenario"))
	assert.Equal(t, "dc54", AgentName("dc54_log.csv"))
	assert.Equal(t, "dc54.csv", AgentName("dc54.csv"))
}
