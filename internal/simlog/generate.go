package simlog

import (
	"fmt"
	"math/rand"
	"time"
)

// RunSpec describes a synthetic training run.
type RunSpec struct {
	Start     time.Time
	Episodes  int
	Scenarios []string
	Agents    []string
	Steps     int
	// EpisodeGap separates consecutive episode start times.
	EpisodeGap time.Duration
	// SplitEpisodes lists episode indexes whose scenarios are written into
	// two folders one second apart, as racing simulator threads do.
	SplitEpisodes []int
	Seed          int64
}

// Generate writes a run under root and returns the episode folder names
// written (split episodes contribute two).
func Generate(root string, run RunSpec) ([]string, error) {
	if run.EpisodeGap < 2*time.Second {
		return nil, fmt.Errorf("episode gap %s would itself look like a split", run.EpisodeGap)
	}
	rng := rand.New(rand.NewSource(run.Seed))
	split := make(map[int]bool, len(run.SplitEpisodes))
	for _, i := range run.SplitEpisodes {
		split[i] = true
	}

	var written []string
	for e := 0; e < run.Episodes; e++ {
		start := run.Start.Add(time.Duration(e) * run.EpisodeGap)
		first := EpisodeDir(start)
		written = append(written, first)
		second := first
		if split[e] && len(run.Scenarios) > 1 {
			second = EpisodeDir(start.Add(time.Second))
			written = append(written, second)
		}

		for si, scenario := range run.Scenarios {
			dir := first
			if si >= (len(run.Scenarios)+1)/2 {
				dir = second
			}
			for ai, agent := range run.Agents {
				prices := make([]float64, run.Steps)
				profits := make([]float64, run.Steps)
				for s := 0; s < run.Steps; s++ {
					prices[s] = rng.Float64()
					// Later episodes earn more so the trend is visible.
					profits[s] = prices[s] * float64(1+e) * float64(1+ai) * 10
				}
				if _, err := WriteAgentLog(root, dir, scenario, agent, Rows(1, prices, profits)); err != nil {
					return nil, err
				}
			}
		}
	}
	return written, nil
}
