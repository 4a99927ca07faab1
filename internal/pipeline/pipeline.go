// Package pipeline runs the end-to-end progress report over one training
// output folder: reconcile split episodes, parse the logs, smooth the
// platform trend and write the report artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eisim-progress/internal/aggregate"
	"eisim-progress/internal/analysis"
	"eisim-progress/internal/logger"
	"eisim-progress/internal/metrics"
	"eisim-progress/internal/reconcile"
	"eisim-progress/internal/report"
)

// CLIWindow is the moving-average window of the command-line report.
const CLIWindow = 10

// ErrNoResults means the output folder did not parse into a consistent
// table. It wraps the aggregate mismatch error.
var ErrNoResults = errors.New("couldn't parse results from the provided output folder")

// Options configures Run. Zero values fall back to the package defaults.
type Options struct {
	Window           int
	SplitThreshold   time.Duration
	Marker           string
	CumulativeColumn string
	PriceColumn      string
	Workers          int
	HTML             bool
	NoWait           bool
	// SkipReconcile parses the tree as it is.
	SkipReconcile bool
	Logger        logger.Logger
	Metrics       *metrics.Manager
}

// Result is everything one run produced.
type Result struct {
	Plan     reconcile.MergePlan
	Applied  reconcile.ApplyReport
	Outcome  aggregate.Outcome
	Trends   []analysis.Trend
	Manifest *report.Manifest
}

func (o Options) window() int {
	if o.Window > 0 {
		return o.Window
	}
	return CLIWindow
}

// Parser builds the log tree parser these options describe.
func (o Options) Parser() *aggregate.Parser {
	return aggregate.NewParser(
		aggregate.WithMarker(o.Marker),
		aggregate.WithColumns(o.CumulativeColumn, o.PriceColumn),
		aggregate.WithWorkers(o.Workers),
		aggregate.WithLogger(logger.OrNop(o.Logger).Named("aggregate")),
		aggregate.WithMetrics(o.Metrics),
	)
}

// Analyze parses dir and computes the trends without touching disk.
func Analyze(ctx context.Context, dir string, opts Options) (*Result, error) {
	res := &Result{}
	out, err := opts.Parser().Parse(ctx, dir)
	if err != nil {
		return nil, err
	}
	res.Outcome = out
	if !out.OK() {
		return res, fmt.Errorf("%w: %w", ErrNoResults, out.Err())
	}
	res.Trends, err = analysis.Trends(out.Results, opts.window())
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Run reconciles outputDir, analyzes it and writes the report into saveDir.
// An empty saveDir only analyzes. Nothing is written when parsing does not
// yield results.
func Run(ctx context.Context, outputDir, saveDir string, opts Options) (*Result, error) {
	log := logger.OrNop(opts.Logger)

	var (
		plan    reconcile.MergePlan
		applied reconcile.ApplyReport
	)
	if !opts.SkipReconcile {
		var err error
		plan, applied, err = reconcile.Run(ctx, outputDir, reconcile.Options{
			Threshold: opts.SplitThreshold,
			NoWait:    opts.NoWait,
			Logger:    log.Named("reconcile"),
			Metrics:   opts.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("reconcile %s: %w", outputDir, err)
		}
	}

	res, err := Analyze(ctx, outputDir, opts)
	if res != nil {
		res.Plan, res.Applied = plan, applied
	}
	if err != nil || saveDir == "" {
		return res, err
	}

	w := report.NewWriter(saveDir, outputDir, opts.HTML, log.Named("report"))
	res.Manifest, err = w.Write(ctx, res.Outcome.Results, res.Trends, opts.window())
	if err != nil {
		return res, fmt.Errorf("write report: %w", err)
	}
	return res, nil
}
