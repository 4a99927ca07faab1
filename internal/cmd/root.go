package cmd

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"eisim-progress/internal/config"
	"eisim-progress/internal/display"
	"eisim-progress/internal/logger"
	"eisim-progress/internal/metrics"
	"eisim-progress/internal/pipeline"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// UsageError marks bad invocations; the binary exits with status 2 on it.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// IsUsageError reports whether err came from a bad invocation.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// usageArgs turns a cobra argument validator's error into a UsageError.
func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

type globalFlags struct {
	configPath      string
	logLevel        string
	window          int
	metricsTextfile string
}

// env is the per-invocation state shared by every command.
type env struct {
	flags    globalFlags
	cfg      *config.Config
	log      logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Manager
	console  *display.Console
}

func (e *env) init(cmd *cobra.Command) error {
	cfg, err := config.LoadUnchecked(e.flags.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = e.flags.logLevel
	}
	if cmd.Flags().Changed("window") {
		cfg.Trend.WindowSize = e.flags.window
	}
	if err := cfg.Validate(); err != nil {
		return &UsageError{Err: err}
	}

	e.cfg = cfg
	e.log = logger.New(cmd.ErrOrStderr(), cfg.Log.Level)
	e.registry = prometheus.NewRegistry()
	e.metrics = metrics.NewManager(metrics.WithRegistry(e.registry))
	e.console = display.NewConsole(cmd.OutOrStdout())
	return nil
}

// finish writes the metrics textfile when one was requested.
func (e *env) finish() error {
	if e.flags.metricsTextfile == "" || e.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(e.flags.metricsTextfile, e.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (e *env) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Window:           e.cfg.Trend.WindowSize,
		SplitThreshold:   e.cfg.Reconcile.SplitThreshold,
		Marker:           e.cfg.Input.LogFolderMarker,
		CumulativeColumn: e.cfg.Input.CumulativeColumn,
		PriceColumn:      e.cfg.Input.PriceColumn,
		Workers:          e.cfg.Parser.Workers,
		HTML:             e.cfg.Report.HTML,
		Logger:           e.log,
		Metrics:          e.metrics,
	}
}

// NewRootCommand creates and returns the root cobra command
func NewRootCommand() *cobra.Command {
	e := &env{}
	cmd := &cobra.Command{
		Use:   "progress <output_dir> [save_dir]",
		Short: "Aggregate EISim training progress",
		Long: `progress reads the per-episode price logs of a multi-agent EISim training
run and reports the platform's return trend per scenario.

output_dir is mandatory, it provides a path to a folder that contains
training episodes. Split episode folders are merged first.
save_dir can be used to provide a path to a folder where the tables and
summary will be saved; without it the trend is only printed.`,
		Version: Version,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return &UsageError{Err: fmt.Errorf("usage: %s", cmd.UseLine())}
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(cmd, e, args)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.finish()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&e.flags.configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	pf.StringVar(&e.flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.IntVar(&e.flags.window, "window", pipeline.CLIWindow, "moving average window in episodes")
	pf.StringVar(&e.flags.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on success")

	cmd.AddCommand(newReconcileCommand(e))
	cmd.AddCommand(newRankCommand(e))
	cmd.AddCommand(newExportCommand(e))
	return cmd
}
