package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"eisim-progress/internal/aggregate"
	"eisim-progress/internal/display"
	"eisim-progress/internal/pipeline"
	"eisim-progress/internal/report"
)

func runProgress(cmd *cobra.Command, e *env, args []string) error {
	outputDir := args[0]
	saveDir := e.cfg.Report.Dir
	if len(args) == 2 {
		saveDir = args[1]
	}

	res, err := pipeline.Run(cmd.Context(), outputDir, saveDir, e.pipelineOptions())
	if res != nil && res.Applied.Merges > 0 {
		e.console.Successf("Merged %d split episode folder(s), moved %d entries", res.Applied.Merges, len(res.Applied.Moves))
	}
	if err != nil {
		if errors.Is(err, pipeline.ErrNoResults) {
			e.console.Failf("Couldn't parse results from the provided output folder.")
			if res != nil && res.Outcome.Mismatch != nil {
				describeMismatch(e.console, res.Outcome.Mismatch)
			}
		}
		return err
	}

	r := res.Outcome.Results
	e.console.Headingf("%d episodes, %d agents, window %d", len(r.Episodes), len(r.Agents), e.cfg.Trend.WindowSize)
	rows := [][]string{{"SCENARIO", "FINAL TOTAL", "FINAL SMA", "EPISODES"}}
	for _, tr := range res.Trends {
		final, smoothed := 0.0, 0.0
		if n := len(tr.TotalReturns); n > 0 {
			final, smoothed = tr.TotalReturns[n-1], tr.Smoothed[n-1]
		}
		rows = append(rows, []string{
			tr.Scenario,
			report.FormatMillions(final),
			report.FormatMillions(smoothed),
			strconv.Itoa(len(tr.TotalReturns)),
		})
	}
	e.console.Table(rows)

	if res.Manifest != nil {
		e.console.Successf("Wrote %d scenario report(s) to %s (run %s)", len(res.Manifest.Scenarios), saveDir, res.Manifest.RunID)
	}
	return nil
}

func describeMismatch(c *display.Console, m *aggregate.Mismatch) {
	w := display.Warning{Title: string(m.Reason), Paths: []string{m.Path}}
	switch m.Reason {
	case aggregate.ReasonScenarioCount:
		w.Message = fmt.Sprintf("Expected %d scenario folders, found %d. Was the run interrupted?", m.Want, m.Got)
	case aggregate.ReasonAgentCount:
		w.Message = fmt.Sprintf("Expected %d agent logs, found %d.", m.Want, m.Got)
	case aggregate.ReasonNoScenarios:
		w.Message = "No price log folders found in any episode. Check input.log_folder_marker."
	default:
		w.Message = "No episode folders found."
	}
	c.Warn(w)
}
