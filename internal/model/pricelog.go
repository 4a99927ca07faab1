package model

// Column names written by the simulator's price logger. One file per edge
// server agent and scenario, one row per price slot.
const (
	ColumnSimTime          = "SimTime"
	ColumnPrice            = "Price"
	ColumnProfit           = "Profit"
	ColumnCumulativeProfit = "CumulativeProfit"
	ColumnState            = "State"
)

// PriceLogHeader is the header row of a price log file.
var PriceLogHeader = []string{
	ColumnSimTime,
	ColumnPrice,
	ColumnProfit,
	ColumnCumulativeProfit,
	ColumnState,
}

// PriceLogRow is one price slot of an agent.
// State is the agent's observation, serialized as "[a; b; ...]" so it never
// collides with the CSV separator.
type PriceLogRow struct {
	SimTime          float64
	Price            float64
	Profit           float64
	CumulativeProfit float64
	State            string
}

// AgentEpisodeSummary is what one price log reduces to.
type AgentEpisodeSummary struct {
	// CumulativeReturn is the last recorded cumulative profit.
	CumulativeReturn float64
	// AvgPrice is the arithmetic mean of the price column.
	AvgPrice float64
	Steps    int
}
