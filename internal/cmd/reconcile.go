package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"eisim-progress/internal/reconcile"
)

func newReconcileCommand(e *env) *cobra.Command {
	var (
		dryRun bool
		noWait bool
		asYAML bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile <output_dir>",
		Short: "Merge split episode folders",
		Long: `Folders whose start times are less than reconcile.split_threshold apart
belong to one episode. Their contents are moved into the earliest folder and
the emptied folders are removed. With --dry-run only the plan is shown.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, applied, err := reconcile.Run(cmd.Context(), args[0], reconcile.Options{
				Threshold: e.cfg.Reconcile.SplitThreshold,
				DryRun:    dryRun,
				NoWait:    noWait,
				Logger:    e.log.Named("reconcile"),
				Metrics:   e.metrics,
			})
			if err != nil {
				return err
			}

			if asYAML {
				out, err := yaml.Marshal(struct {
					Plan    reconcile.MergePlan   `yaml:"plan"`
					Applied reconcile.ApplyReport `yaml:"applied"`
				}{plan, applied})
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}

			if plan.Empty() {
				e.console.Successf("No split episodes among %d folders", len(plan.Episodes))
				return nil
			}
			rows := [][]string{{"SOURCE", "DESTINATION", "GAP"}}
			for _, m := range plan.Merges {
				rows = append(rows, []string{m.Source, m.Destination, m.Gap.String()})
			}
			e.console.Table(rows)
			if dryRun {
				e.console.Infof("Dry run: %d merge(s) planned, nothing changed", len(plan.Merges))
				return nil
			}
			e.console.Successf("Merged %d folder(s), moved %d entries; %d episodes remain",
				applied.Merges, len(applied.Moves), len(plan.Survivors()))
			return nil
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the merge plan without changing anything")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "fail instead of waiting when another process holds <output_dir>.lock")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the plan and result as YAML")
	return cmd
}
