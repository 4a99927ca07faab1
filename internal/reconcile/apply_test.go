package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eisim-progress/internal/filelock"
	"eisim-progress/internal/model"
	"eisim-progress/internal/simlog"
)

// tree creates episode folders with the given relative files.
func tree(t *testing.T, layout map[string][]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.MkdirAll(root, 0o755))
	for episode, files := range layout {
		require.NoError(t, os.MkdirAll(filepath.Join(root, episode), 0o755))
		for _, f := range files {
			p := filepath.Join(root, episode, f)
			require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
			require.NoError(t, os.WriteFile(p, []byte(f), 0o644))
		}
	}
	return root
}

// files lists every regular file under root as episode-relative paths.
func files(t *testing.T, root string) map[string][]string {
	t.Helper()
	out := map[string][]string{}
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		var list []string
		base := filepath.Join(root, e.Name())
		err := filepath.WalkDir(base, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, _ := filepath.Rel(base, p)
			list = append(list, rel)
			return nil
		})
		require.NoError(t, err)
		sort.Strings(list)
		out[e.Name()] = list
	}
	return out
}

func TestRun_MergesSplitEpisode(t *testing.T) {
	root := tree(t, map[string][]string{
		"2023-01-01_00-00-00": {"Pricelogs_scenario_A/dc1_log.csv", "Pricelogs_scenario_A/dc2_log.csv"},
		"2023-01-01_00-00-01": {"Pricelogs_scenario_B/dc1_log.csv", "Pricelogs_scenario_B/dc2_log.csv"},
		"2023-01-01_00-10-00": {"Pricelogs_scenario_A/dc1_log.csv", "Pricelogs_scenario_B/dc1_log.csv"},
	})

	plan, report, err := Run(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Len(t, plan.Merges, 1)
	assert.Equal(t, 1, report.Merges)
	assert.Len(t, report.Moves, 1, "the scenario folder moves as one entry")

	assert.Equal(t, map[string][]string{
		"2023-01-01_00-00-00": {
			"Pricelogs_scenario_A/dc1_log.csv", "Pricelogs_scenario_A/dc2_log.csv",
			"Pricelogs_scenario_B/dc1_log.csv", "Pricelogs_scenario_B/dc2_log.csv",
		},
		"2023-01-01_00-10-00": {"Pricelogs_scenario_A/dc1_log.csv", "Pricelogs_scenario_B/dc1_log.csv"},
	}, files(t, root))

	_, err = os.Stat(filepath.Join(root, "2023-01-01_00-00-01"))
	assert.True(t, os.IsNotExist(err), "merged folder must be removed")
}

func TestRun_Idempotent(t *testing.T) {
	root := t.TempDir()
	_, err := simlog.Generate(root, simlog.RunSpec{
		Start:         time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Episodes:      4,
		Scenarios:     []string{"A_X_1", "B_X_1", "C_X_1"},
		Agents:        []string{"dc1", "dc2"},
		Steps:         3,
		EpisodeGap:    time.Minute,
		SplitEpisodes: []int{0, 2},
	})
	require.NoError(t, err)

	_, report, err := Run(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Merges)

	plan, report, err := Run(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Zero(t, report.Merges)

	episodes, err := model.ListEpisodes(root)
	require.NoError(t, err)
	assert.Len(t, episodes, 4)
}

func TestRun_ChainEndsInFirstFolder(t *testing.T) {
	root := tree(t, map[string][]string{
		"2023-01-01_00-00-00": {"a.csv"},
		"2023-01-01_00-00-01": {"b.csv"},
		"2023-01-01_00-00-02": {"c.csv"},
	})

	_, report, err := Run(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Merges)
	assert.Equal(t, map[string][]string{
		"2023-01-01_00-00-00": {"a.csv", "b.csv", "c.csv"},
	}, files(t, root))
}

func TestRun_DryRunLeavesDiskUntouched(t *testing.T) {
	layout := map[string][]string{
		"2023-01-01_00-00-00": {"a.csv"},
		"2023-01-01_00-00-01": {"b.csv"},
	}
	root := tree(t, layout)

	plan, report, err := Run(context.Background(), root, Options{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, plan.Merges, 1)
	assert.Zero(t, report.Merges)
	assert.Equal(t, layout, files(t, root))
}

func TestRun_MalformedFolderIsFatal(t *testing.T) {
	root := tree(t, map[string][]string{
		"2023-01-01_00-00-00": {"a.csv"},
		"latest":              {"b.csv"},
	})

	_, _, err := Run(context.Background(), root, Options{})
	assert.ErrorIs(t, err, model.ErrMalformedEpisode)
}

func TestApply_CollisionMovesNothing(t *testing.T) {
	layout := map[string][]string{
		"2023-01-01_00-00-00": {"Pricelogs_scenario_A/dc1_log.csv"},
		"2023-01-01_00-00-01": {"Pricelogs_scenario_B/dc1_log.csv"},
		"2023-01-01_00-00-02": {"Pricelogs_scenario_A/dc2_log.csv"},
	}
	root := tree(t, layout)

	_, _, err := Run(context.Background(), root, Options{})
	assert.ErrorIs(t, err, ErrCollision)
	assert.Equal(t, layout, files(t, root))
}

func TestApply_MissingFolder(t *testing.T) {
	root := tree(t, map[string][]string{"2023-01-01_00-00-00": {"a.csv"}})
	plan := MergePlan{Merges: []Merge{{Source: "2023-01-01_00-00-01", Destination: "2023-01-01_00-00-00"}}}

	_, err := Apply(context.Background(), root, plan, Options{})
	assert.ErrorIs(t, err, ErrMissingFolder)
}

func TestApply_LockedDirectory(t *testing.T) {
	layout := map[string][]string{
		"2023-01-01_00-00-00": {"a.csv"},
		"2023-01-01_00-00-01": {"b.csv"},
	}
	root := tree(t, layout)

	held := filelock.ForDir(root)
	require.NoError(t, held.TryLock())
	defer held.Unlock()

	_, _, err := Run(context.Background(), root, Options{NoWait: true})
	assert.ErrorIs(t, err, filelock.ErrLocked)
	assert.Equal(t, layout, files(t, root))
}

func TestApply_CancelledContext(t *testing.T) {
	layout := map[string][]string{
		"2023-01-01_00-00-00": {"a.csv"},
		"2023-01-01_00-00-01": {"b.csv"},
	}
	root := tree(t, layout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Run(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, layout, files(t, root))
}

func TestJournal_Rollback(t *testing.T) {
	root := tree(t, map[string][]string{
		"2023-01-01_00-00-00": {"a.csv"},
		"2023-01-01_00-00-01": {"b.csv", "c.csv"},
	})
	src := filepath.Join(root, "2023-01-01_00-00-01")
	dst := filepath.Join(root, "2023-01-01_00-00-00")

	j := &journal{}
	for _, name := range []string{"b.csv", "c.csv"} {
		mv := Move{From: filepath.Join(src, name), To: filepath.Join(dst, name)}
		require.NoError(t, os.Rename(mv.From, mv.To))
		j.steps = append(j.steps, step{move: &mv})
	}
	require.NoError(t, os.Remove(src))
	j.steps = append(j.steps, step{removed: src})

	require.NoError(t, j.rollback())
	assert.Equal(t, map[string][]string{
		"2023-01-01_00-00-00": {"a.csv"},
		"2023-01-01_00-00-01": {"b.csv", "c.csv"},
	}, files(t, root))
}

func TestExecute_RollbackRestoresFolderMode(t *testing.T) {
	layout := map[string][]string{
		"2023-01-01_00-00-00": {"a.csv"},
		"2023-01-01_00-00-01": {"b.csv"},
		"2023-01-01_00-00-02": {"a.csv"},
	}
	root := tree(t, layout)
	src := filepath.Join(root, "2023-01-01_00-00-01")
	require.NoError(t, os.Chmod(src, 0o700))

	plan := MergePlan{Merges: []Merge{
		{Source: "2023-01-01_00-00-01", Destination: "2023-01-01_00-00-00"},
		{Source: "2023-01-01_00-00-02", Destination: "2023-01-01_00-00-00"},
	}}
	j := &journal{}
	var report ApplyReport
	err := execute(context.Background(), root, plan, j, &report)
	require.ErrorIs(t, err, ErrCollision)

	require.NoError(t, j.rollback())
	assert.Equal(t, layout, files(t, root))
	info, err := os.Stat(src)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}
