// Package simlog writes episode output trees in the layout produced by the
// simulator's price logger:
//
//	<root>/<YYYY-MM-DD_HH-MM-SS>/Pricelogs_<scenario>/<agent>_log.csv
//
// The aggregation pipeline reads this layout back; tests and the demo use
// this package to produce it.
package simlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"eisim-progress/internal/model"
)

// LogFolderPrefix is prepended to the scenario name of a log folder.
const LogFolderPrefix = "Pricelogs_scenario_"

// EpisodeDir returns the folder name for an episode starting at t.
func EpisodeDir(t time.Time) string {
	return t.UTC().Format(model.EpisodeTimeLayout)
}

// ScenarioDir returns the log folder name of a scenario.
func ScenarioDir(scenario string) string {
	return LogFolderPrefix + scenario
}

// ScenarioName builds the scenario identifier the simulator uses:
// <algorithm>_<architecture>_<devices>.
func ScenarioName(algorithm, architecture string, devices int) string {
	return fmt.Sprintf("%s_%s_%d", algorithm, architecture, devices)
}

// LogFileName returns the price log file name of an agent.
func LogFileName(agent string) string {
	return agent + "_log.csv"
}

// WriteAgentLog writes rows for one agent of one scenario of one episode,
// creating folders as needed, and returns the file path.
func WriteAgentLog(root, episode, scenario, agent string, rows []model.PriceLogRow) (string, error) {
	dir := filepath.Join(root, episode, ScenarioDir(scenario))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, LogFileName(agent))
	if err := WriteCSV(path, rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteCSV writes a price log file with the standard header.
func WriteCSV(path string, rows []model.PriceLogRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(model.PriceLogHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatFloat(r.SimTime, 'f', -1, 64),
			strconv.FormatFloat(r.Price, 'f', -1, 64),
			strconv.FormatFloat(r.Profit, 'f', -1, 64),
			strconv.FormatFloat(r.CumulativeProfit, 'f', -1, 64),
			r.State,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Rows builds price log rows from per-slot prices and profits, accumulating
// profit the way the simulator does.
func Rows(slot float64, prices, profits []float64) []model.PriceLogRow {
	n := len(prices)
	if len(profits) < n {
		n = len(profits)
	}
	out := make([]model.PriceLogRow, n)
	cum := 0.0
	for i := 0; i < n; i++ {
		cum += profits[i]
		out[i] = model.PriceLogRow{
			SimTime:          slot * float64(i+1),
			Price:            prices[i],
			Profit:           profits[i],
			CumulativeProfit: cum,
			State:            FormatState([]float64{prices[i], profits[i]}),
		}
	}
	return out
}

// FormatState serializes an observation vector with ';' separators.
func FormatState(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'f', -1, 32)
	}
	return "[" + strings.Join(parts, "; ") + "]"
}
