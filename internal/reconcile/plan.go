// Package reconcile repairs episode output that the simulator split across
// two folders.
//
// Every simulation thread names its output folder after its own start time
// with one-second precision. When the second ticks over between threads of
// the same episode, the episode is written into two folders. Folders that
// start less than a threshold apart are treated as one episode: the later
// folder's contents are moved into its predecessor and the later folder is
// removed.
package reconcile

import (
	"time"

	"eisim-progress/internal/model"
)

// DefaultSplitThreshold is the largest start-time gap (exclusive) between two
// folders of one episode.
const DefaultSplitThreshold = 2 * time.Second

// Merge folds Source into Destination.
type Merge struct {
	Source      string        `json:"source" yaml:"source"`
	Destination string        `json:"destination" yaml:"destination"`
	Gap         time.Duration `json:"gap" yaml:"gap"`
}

// MergePlan is the pure description of a reconciliation. Merges are ordered
// by descending source position so applying them in order never touches a
// folder that a later merge still expects to find under its original name.
type MergePlan struct {
	Episodes  []model.EpisodeFolder `json:"episodes" yaml:"episodes"`
	Merges    []Merge               `json:"merges" yaml:"merges"`
	Deletions []string              `json:"deletions" yaml:"deletions"`
}

func (p MergePlan) Empty() bool { return len(p.Merges) == 0 }

// Survivors returns the episode folders left after the plan is applied, in
// chronological order.
func (p MergePlan) Survivors() []model.EpisodeFolder {
	gone := make(map[string]bool, len(p.Deletions))
	for _, d := range p.Deletions {
		gone[d] = true
	}
	out := make([]model.EpisodeFolder, 0, len(p.Episodes)-len(gone))
	for _, e := range p.Episodes {
		if !gone[e.Name] {
			out = append(out, e)
		}
	}
	return out
}

// Plan classifies every folder whose start time is less than threshold after
// its immediate predecessor as a split continuation of that predecessor.
//
// A run of several splits (A, B, C each within threshold of the previous)
// yields merges C->B then B->A, so A ends up holding all three.
func Plan(folders []model.EpisodeFolder, threshold time.Duration) MergePlan {
	sorted := append([]model.EpisodeFolder(nil), folders...)
	model.SortEpisodes(sorted)

	plan := MergePlan{Episodes: sorted}
	for i := len(sorted) - 1; i > 0; i-- {
		gap := sorted[i].Start.Sub(sorted[i-1].Start)
		if gap >= threshold {
			continue
		}
		plan.Merges = append(plan.Merges, Merge{
			Source:      sorted[i].Name,
			Destination: sorted[i-1].Name,
			Gap:         gap,
		})
		plan.Deletions = append(plan.Deletions, sorted[i].Name)
	}
	return plan
}
