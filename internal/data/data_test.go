package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"eisim-progress/internal/model"
)

func sampleResults() *model.Results {
	start := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	return &model.Results{
		Episodes: []model.EpisodeFolder{
			{Name: "2023-01-01_12-00-00", Start: start},
			{Name: "2023-01-01_12-05-00", Start: start.Add(5 * time.Minute)},
		},
		Agents:    []string{"dc1", "dc2", "dc10"},
		Scenarios: []string{"A_X_1", "B_X_1"},
		Tables: map[string]*model.ScenarioTable{
			"A_X_1": {
				Scenario:         "A_X_1",
				CumulativeReturn: mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}),
				AvgPrice:         mat.NewDense(2, 3, []float64{.1, .2, .3, .4, .5, .6}),
			},
			"B_X_1": {
				Scenario:         "B_X_1",
				CumulativeReturn: mat.NewDense(2, 3, []float64{-1, -2, -3, -4, -5, -6}),
				AvgPrice:         mat.NewDense(2, 3, []float64{1, 1, 1, 2, 2, 2}),
			},
		},
	}
}

func assertSameResults(t *testing.T, want, got *model.Results) {
	t.Helper()
	assert.Equal(t, model.EpisodeNames(want.Episodes), model.EpisodeNames(got.Episodes))
	for i := range want.Episodes {
		assert.True(t, want.Episodes[i].Start.Equal(got.Episodes[i].Start))
	}
	assert.Equal(t, want.Agents, got.Agents)
	assert.Equal(t, want.Scenarios, got.Scenarios)
	for _, s := range want.Scenarios {
		assert.Equal(t, model.Rows(want.Tables[s].CumulativeReturn), model.Rows(got.Tables[s].CumulativeReturn), s)
		assert.Equal(t, model.Rows(want.Tables[s].AvgPrice), model.Rows(got.Tables[s].AvgPrice), s)
	}
}

func TestResultsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")
	want := sampleResults()

	require.NoError(t, SaveResultsJSON(path, "run-1", want))
	got, err := LoadResultsJSON(path)
	require.NoError(t, err)
	assertSameResults(t, want, got)
}

func TestSnapshot_RejectsBadShape(t *testing.T) {
	s := NewSnapshot("", sampleResults())
	bad := s.Tables["A_X_1"]
	bad.AvgPrice = bad.AvgPrice[:1]
	s.Tables["A_X_1"] = bad

	_, err := s.Results()
	assert.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(filepath.Join(t.TempDir(), "db", "progress.db"))
	require.NoError(t, err)
	defer store.Close()

	want := sampleResults()
	require.NoError(t, store.SaveRun(ctx, "run-1", "/runs/a", want))
	// Saving again under the same ID replaces the run.
	require.NoError(t, store.SaveRun(ctx, "run-1", "/runs/a", want))

	got, err := store.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assertSameResults(t, want, got)

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "/runs/a", runs[0].SourceDir)
	assert.Equal(t, 2, runs[0].Episodes)
	assert.Equal(t, 3, runs[0].Agents)

	_, err = store.LoadRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")
	require.NoError(t, SaveSQLite(ctx, path, "run-2", "/runs/b", sampleResults()))

	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.LoadRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.Tables["A_X_1"].CumulativeReturn.At(1, 2))
}

func TestResultsCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewResultsCache(time.Minute)
	c.now = func() time.Time { return now }

	key := GenerateCacheKey(CacheKeyParams{Dir: "/runs/a/", Marker: "Pricelogs", CumulativeColumn: "CumulativeProfit", PriceColumn: "Price"})
	assert.Equal(t, key, GenerateCacheKey(CacheKeyParams{Dir: "/runs/a", Marker: "Pricelogs", CumulativeColumn: "CumulativeProfit", PriceColumn: "Price"}))
	assert.NotEqual(t, key, GenerateCacheKey(CacheKeyParams{Dir: "/runs/b", Marker: "Pricelogs", CumulativeColumn: "CumulativeProfit", PriceColumn: "Price"}))

	_, ok := c.Get(key)
	assert.False(t, ok)

	r := sampleResults()
	c.Set(key, r)
	got, ok := c.Get(key)
	assert.True(t, ok)
	assert.Same(t, r, got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(key)
	assert.False(t, ok, "expired entries are not served")
	assert.Equal(t, 1, c.Prune())

	c.Set(key, r)
	assert.Equal(t, 1, c.Clear())
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestResultsCache_Nil(t *testing.T) {
	var c *ResultsCache
	c.Set("k", sampleResults())
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Clear())
}
