package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"eisim-progress/internal/data"
	"eisim-progress/internal/pipeline"
)

func newExportCommand(e *env) *cobra.Command {
	var (
		dbPath   string
		jsonPath string
		runID    string
	)
	cmd := &cobra.Command{
		Use:   "export <output_dir>",
		Short: "Store the aggregate tables in SQLite and optionally JSON",
		Long: `Parse the episode logs as they are (no reconciliation) and store the
per-scenario tables under a run ID in a SQLite database (tables runs,
episodes, agents, scenarios, agent_results). --json additionally writes a
JSON snapshot.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := pipeline.Analyze(cmd.Context(), args[0], e.pipelineOptions())
			if err != nil {
				return err
			}
			if runID == "" {
				runID = uuid.NewString()
			}
			r := res.Outcome.Results

			if err := data.SaveSQLite(cmd.Context(), dbPath, runID, args[0], r); err != nil {
				return err
			}
			e.console.Successf("Stored run %s in %s", runID, dbPath)

			if jsonPath != "" {
				if err := data.SaveResultsJSON(jsonPath, runID, r); err != nil {
					return err
				}
				e.console.Successf("Wrote %s", jsonPath)
			}
			return nil
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")
	cmd.Flags().StringVar(&jsonPath, "json", "", "also write a JSON snapshot here")
	cmd.Flags().StringVar(&runID, "run-id", "", "run ID to store under (default: random UUID)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}
