package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"eisim-progress/internal/display"
	"eisim-progress/internal/logger"
	"eisim-progress/internal/pipeline"
	"eisim-progress/internal/report"
	"eisim-progress/internal/simlog"
)

// Demo:
// - Write a synthetic training run in the simulator's price-log layout,
//   with a few episodes split across two folders
// - Run the full pipeline over it: reconcile, parse, smooth, report
func main() {
	dir := flag.String("dir", "", "Directory to generate into (default: a temp dir)")
	episodes := flag.Int("episodes", 30, "Number of training episodes")
	steps := flag.Int("steps", 50, "Price slots per agent and episode")
	window := flag.Int("window", pipeline.CLIWindow, "Moving average window")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()
	if *episodes < 1 || *steps < 1 {
		fmt.Fprintln(os.Stderr, "--episodes and --steps must be >= 1")
		os.Exit(2)
	}

	root := *dir
	if root == "" {
		tmp, err := os.MkdirTemp("", "eisim-progress-demo-")
		if err != nil {
			panic(err)
		}
		root = tmp
	}
	output := filepath.Join(root, "output")
	save := filepath.Join(root, "plots")

	scenarios := []string{
		simlog.ScenarioName("DDPG", "EDGE_ONLY", 100),
		simlog.ScenarioName("DDPG", "HYBRID", 100),
		simlog.ScenarioName("PPO", "HYBRID", 100),
	}
	written, err := simlog.Generate(output, simlog.RunSpec{
		Start:         time.Now().UTC().Truncate(time.Second),
		Episodes:      *episodes,
		Scenarios:     scenarios,
		Agents:        []string{"dc1", "dc2", "dc3", "dc10"},
		Steps:         *steps,
		EpisodeGap:    90 * time.Second,
		SplitEpisodes: []int{0, *episodes / 2, *episodes - 1},
		Seed:          *seed,
	})
	if err != nil {
		panic(err)
	}

	con := display.NewConsole(os.Stdout)
	con.Infof("Generated %d episode folders under %s", len(written), output)

	res, err := pipeline.Run(context.Background(), output, save, pipeline.Options{
		Window: *window,
		HTML:   true,
		Logger: logger.New(os.Stderr, "info"),
	})
	if err != nil {
		con.Failf("%v", err)
		os.Exit(1)
	}

	con.Successf("Merged %d split folders", res.Applied.Merges)
	rows := [][]string{{"SCENARIO", "FIRST", "LAST", "LAST SMA"}}
	for _, tr := range res.Trends {
		n := len(tr.TotalReturns)
		rows = append(rows, []string{
			tr.Scenario,
			report.FormatMillions(tr.TotalReturns[0]),
			report.FormatMillions(tr.TotalReturns[n-1]),
			report.FormatMillions(tr.Smoothed[n-1]),
		})
	}
	con.Table(rows)
	fmt.Printf("\nReport: %s\n", filepath.Join(save, report.SummaryHTMLName))
}
