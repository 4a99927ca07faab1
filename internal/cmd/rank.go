package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"eisim-progress/internal/analysis"
	"eisim-progress/internal/pipeline"
	"eisim-progress/internal/report"
)

func newRankCommand(e *env) *cobra.Command {
	var (
		scenario string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "rank <output_dir>",
		Short: "Rank agents by mean cumulative return",
		Long: `Parse the episode logs as they are (no reconciliation) and print, per
scenario, the agents ordered by their mean cumulative return over episodes.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := pipeline.Analyze(cmd.Context(), args[0], e.pipelineOptions())
			if err != nil {
				return err
			}
			r := res.Outcome.Results

			scenarios := r.Scenarios
			if scenario != "" {
				if _, ok := r.Table(scenario); !ok {
					return fmt.Errorf("%w: %s", analysis.ErrUnknownScenario, scenario)
				}
				scenarios = []string{scenario}
			}

			for _, s := range scenarios {
				stats, err := analysis.ComputeAgentStats(r, s)
				if err != nil {
					return err
				}
				ranked := analysis.RankAgents(stats)
				if limit > 0 && limit < len(ranked) {
					ranked = ranked[:limit]
				}
				e.console.Headingf("%s (%d episodes)", s, len(r.Episodes))
				rows := [][]string{{"RANK", "AGENT", "MEAN", "FINAL", "IMPROVEMENT", "P05", "P95", "AVG PRICE"}}
				for _, a := range ranked {
					rows = append(rows, []string{
						strconv.Itoa(a.Rank),
						a.Agent,
						report.FormatMillions(a.MeanReturn),
						report.FormatMillions(a.FinalReturn),
						report.FormatMillions(a.Improvement),
						report.FormatMillions(a.P05Return),
						report.FormatMillions(a.P95Return),
						strconv.FormatFloat(a.MeanAvgPrice, 'f', 4, 64),
					})
				}
				e.console.Table(rows)
			}
			return nil
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&scenario, "scenario", "", "only rank this scenario")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many agents per scenario (0 = all)")
	return cmd
}
