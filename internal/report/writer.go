// Package report writes the numeric artifacts of a training run: per
// scenario CSV tables, a YAML manifest and a Markdown/HTML summary.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"eisim-progress/internal/analysis"
	"eisim-progress/internal/filelock"
	"eisim-progress/internal/logger"
	"eisim-progress/internal/model"
)

const (
	SummaryMarkdownName = "summary.md"
	SummaryHTMLName     = "summary.html"
)

// Writer writes report artifacts into Dir. The zero value writes into the
// current directory without HTML.
type Writer struct {
	Dir       string
	SourceDir string
	HTML      bool
	Logger    logger.Logger

	// now and newID are replaced in tests.
	now   func() time.Time
	newID func() string
}

func NewWriter(dir, sourceDir string, html bool, log logger.Logger) *Writer {
	return &Writer{Dir: dir, SourceDir: sourceDir, HTML: html, Logger: log}
}

// Write writes every artifact and returns the manifest describing them.
// trends must be in results.Scenarios order. Files are written atomically;
// a failure part way leaves earlier artifacts in place.
func (w *Writer) Write(ctx context.Context, results *model.Results, trends []analysis.Trend, window int) (*Manifest, error) {
	if err := results.Validate(); err != nil {
		return nil, err
	}
	if len(trends) != len(results.Scenarios) {
		return nil, fmt.Errorf("%d trends for %d scenarios", len(trends), len(results.Scenarios))
	}
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	log := logger.OrNop(w.Logger)

	m := &Manifest{
		RunID:       w.id(),
		GeneratedAt: w.clock().UTC(),
		SourceDir:   w.SourceDir,
		Window:      window,
		Episodes:    model.EpisodeNames(results.Episodes),
		Agents:      append([]string{}, results.Agents...),
	}

	for i, scenario := range results.Scenarios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, _ := results.Table(scenario)
		tr := trends[i]
		if tr.Scenario != scenario {
			return nil, fmt.Errorf("trend %d is for %q, want %q", i, tr.Scenario, scenario)
		}
		base := BaseName(scenario, len(results.Episodes))
		art := ScenarioArtifact{
			Name:             scenario,
			CumulativeReturn: base + "_cumulative_return.csv",
			AvgPrice:         base + "_avg_price.csv",
			Trend:            base + "_trend.csv",
		}
		if n := len(tr.TotalReturns); n > 0 {
			art.FinalTotal = tr.TotalReturns[n-1]
			art.FinalSmoothed = tr.Smoothed[n-1]
		}

		cum, err := EncodeMatrixCSV(results.Episodes, results.Agents, table.CumulativeReturn)
		if err != nil {
			return nil, err
		}
		price, err := EncodeMatrixCSV(results.Episodes, results.Agents, table.AvgPrice)
		if err != nil {
			return nil, err
		}
		trend, err := EncodeTrendCSV(results.Episodes, tr)
		if err != nil {
			return nil, err
		}
		for name, data := range map[string][]byte{
			art.CumulativeReturn: cum,
			art.AvgPrice:         price,
			art.Trend:            trend,
		} {
			if err := filelock.AtomicWrite(filepath.Join(dir, name), data); err != nil {
				return nil, err
			}
		}
		m.Scenarios = append(m.Scenarios, art)
		log.Debug(ctx, "wrote scenario tables", logger.String("scenario", scenario), logger.String("base", base))
	}

	md := RenderMarkdown(m, results, trends)
	if err := filelock.AtomicWrite(filepath.Join(dir, SummaryMarkdownName), md); err != nil {
		return nil, err
	}
	m.Summary = append(m.Summary, SummaryMarkdownName)
	if w.HTML {
		html, err := RenderHTML(md)
		if err != nil {
			return nil, fmt.Errorf("render summary: %w", err)
		}
		if err := filelock.AtomicWrite(filepath.Join(dir, SummaryHTMLName), html); err != nil {
			return nil, err
		}
		m.Summary = append(m.Summary, SummaryHTMLName)
	}

	data, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	if err := filelock.AtomicWrite(filepath.Join(dir, ManifestName), data); err != nil {
		return nil, err
	}
	log.Info(ctx, "report written",
		logger.String("dir", dir),
		logger.String("run_id", m.RunID),
		logger.Int("scenarios", len(m.Scenarios)))
	return m, nil
}

func (w *Writer) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

func (w *Writer) id() string {
	if w.newID != nil {
		return w.newID()
	}
	return uuid.NewString()
}
