package analysis

import (
	"sort"
)

type RankedAgent struct {
	Rank int `json:"rank"`
	AgentStats
}

// RankAgents sorts descending by MeanReturn. Equal means keep canonical
// agent order.
func RankAgents(stats []AgentStats) []RankedAgent {
	out := make([]RankedAgent, 0, len(stats))
	for _, s := range stats {
		out = append(out, RankedAgent{AgentStats: s})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MeanReturn > out[j].MeanReturn
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
