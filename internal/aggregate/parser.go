// Package aggregate reads a reconciled episode tree into dense per-scenario
// tables of cumulative returns and average prices.
//
// Expected layout:
//
//	<dir>/<YYYY-MM-DD_HH-MM-SS>/<...Pricelogs...>/<agent>_<suffix>.csv
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"eisim-progress/internal/logger"
	"eisim-progress/internal/metrics"
	"eisim-progress/internal/model"
)

// Default settings matching the simulator's price logger.
const (
	DefaultMarker           = "Pricelogs"
	DefaultCumulativeColumn = model.ColumnCumulativeProfit
	DefaultPriceColumn      = model.ColumnPrice
)

var (
	// ErrUnknownScenario means a later episode has a scenario the first
	// episode did not.
	ErrUnknownScenario = errors.New("scenario not present in first episode")
	// ErrUnknownAgent means a scenario folder has an agent outside the
	// canonical agent order.
	ErrUnknownAgent = errors.New("agent not present in first scenario folder")
	// ErrDuplicate means two folders map to one scenario, or two files to
	// one agent, within the same parent.
	ErrDuplicate = errors.New("duplicate entry")
)

type Option func(*Parser)

// WithMarker sets the substring identifying log folders.
func WithMarker(marker string) Option {
	return func(p *Parser) {
		if marker != "" {
			p.marker = marker
		}
	}
}

// WithColumns sets the cumulative return and price column names.
func WithColumns(cumulative, price string) Option {
	return func(p *Parser) {
		if cumulative != "" {
			p.cumulativeColumn = cumulative
		}
		if price != "" {
			p.priceColumn = price
		}
	}
}

// WithWorkers bounds concurrent file reads. n <= 0 means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.log = l
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(p *Parser) { p.metrics = m }
}

// Parser walks episode trees. It holds no per-parse state and may be shared.
type Parser struct {
	marker           string
	cumulativeColumn string
	priceColumn      string
	workers          int
	log              logger.Logger
	metrics          *metrics.Manager
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		marker:           DefaultMarker,
		cumulativeColumn: DefaultCumulativeColumn,
		priceColumn:      DefaultPriceColumn,
		workers:          runtime.NumCPU(),
		log:              logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// readJob is one log file and the matrix cell it fills.
type readJob struct {
	path     string
	scenario string
	episode  int
	agent    int
}

// Parse reads every episode under dir. Shape problems come back as an
// Outcome with a Mismatch; malformed names and unreadable logs are errors.
func (p *Parser) Parse(ctx context.Context, dir string) (Outcome, error) {
	start := time.Now()
	out, err := p.parse(ctx, dir)
	switch {
	case err != nil:
		p.metrics.RecordParse(metrics.OutcomeError, time.Since(start))
	case out.Mismatch != nil:
		p.metrics.RecordParse(metrics.OutcomeMismatch, time.Since(start))
		p.log.Warn(ctx, "log tree shape mismatch",
			logger.String("reason", string(out.Mismatch.Reason)),
			logger.String("path", out.Mismatch.Path),
			logger.Int("want", out.Mismatch.Want),
			logger.Int("got", out.Mismatch.Got))
	default:
		p.metrics.RecordParse(metrics.OutcomeOK, time.Since(start))
		p.metrics.SetShape(len(out.Results.Episodes), len(out.Results.Agents))
		p.log.Info(ctx, "parsed log tree",
			logger.String("dir", dir),
			logger.Int("episodes", len(out.Results.Episodes)),
			logger.Int("scenarios", len(out.Results.Scenarios)),
			logger.Int("agents", len(out.Results.Agents)),
			logger.Duration("took", time.Since(start)))
	}
	return out, err
}

func (p *Parser) parse(ctx context.Context, dir string) (Outcome, error) {
	episodes, err := model.ListEpisodes(dir)
	if err != nil {
		return Outcome{}, err
	}
	if len(episodes) == 0 {
		return Outcome{Mismatch: &Mismatch{Reason: ReasonNoEpisodes, Path: dir}}, nil
	}

	var (
		scenarios     []string
		scenarioIndex map[string]bool
		agents        []string
		agentIndex    map[string]int
		haveAgents    bool
		jobs          []readJob
	)
	for i, ep := range episodes {
		epDir := filepath.Join(dir, ep.Name)
		folders, err := p.scenarioFolders(epDir)
		if err != nil {
			return Outcome{}, err
		}

		if i == 0 {
			scenarioIndex = make(map[string]bool, len(folders))
			for _, f := range folders {
				name := ScenarioName(f)
				if scenarioIndex[name] {
					return Outcome{}, fmt.Errorf("%s: scenario %q: %w", epDir, name, ErrDuplicate)
				}
				scenarioIndex[name] = true
				scenarios = append(scenarios, name)
			}
		} else if len(folders) != len(scenarios) {
			return Outcome{Mismatch: &Mismatch{
				Reason: ReasonScenarioCount, Path: epDir, Want: len(scenarios), Got: len(folders),
			}}, nil
		}

		seen := make(map[string]bool, len(folders))
		for _, f := range folders {
			scenario := ScenarioName(f)
			if !scenarioIndex[scenario] {
				return Outcome{}, fmt.Errorf("%s: %q: %w", epDir, scenario, ErrUnknownScenario)
			}
			if seen[scenario] {
				return Outcome{}, fmt.Errorf("%s: scenario %q: %w", epDir, scenario, ErrDuplicate)
			}
			seen[scenario] = true

			scDir := filepath.Join(epDir, f)
			files, err := agentFiles(scDir)
			if err != nil {
				return Outcome{}, err
			}

			if !haveAgents {
				haveAgents = true
				names := make([]string, len(files))
				for k, file := range files {
					names[k] = AgentName(file)
				}
				if agents, err = model.SortAgents(names); err != nil {
					return Outcome{}, fmt.Errorf("%s: %w", scDir, err)
				}
				agentIndex = make(map[string]int, len(agents))
				for k, a := range agents {
					if _, dup := agentIndex[a]; dup {
						return Outcome{}, fmt.Errorf("%s: agent %q: %w", scDir, a, ErrDuplicate)
					}
					agentIndex[a] = k
				}
			} else if len(files) != len(agents) {
				return Outcome{Mismatch: &Mismatch{
					Reason: ReasonAgentCount, Path: scDir, Want: len(agents), Got: len(files),
				}}, nil
			}

			placed := make(map[int]bool, len(files))
			for _, file := range files {
				col, ok := agentIndex[AgentName(file)]
				if !ok {
					return Outcome{}, fmt.Errorf("%s: %q: %w", scDir, AgentName(file), ErrUnknownAgent)
				}
				if placed[col] {
					return Outcome{}, fmt.Errorf("%s: agent %q: %w", scDir, AgentName(file), ErrDuplicate)
				}
				placed[col] = true
				jobs = append(jobs, readJob{
					path:     filepath.Join(scDir, file),
					scenario: scenario,
					episode:  i,
					agent:    col,
				})
			}
		}
	}

	if len(scenarios) == 0 {
		return Outcome{Mismatch: &Mismatch{Reason: ReasonNoScenarios, Path: dir}}, nil
	}

	results := &model.Results{
		Episodes:  episodes,
		Agents:    agents,
		Scenarios: scenarios,
		Tables:    make(map[string]*model.ScenarioTable, len(scenarios)),
	}
	if results.Agents == nil {
		results.Agents = []string{}
	}
	for _, s := range scenarios {
		results.Tables[s] = model.NewScenarioTable(s, len(episodes), len(agents))
	}

	if err := p.readAll(ctx, jobs, results); err != nil {
		return Outcome{}, err
	}
	if err := results.Validate(); err != nil {
		return Outcome{}, err
	}
	return Outcome{Results: results}, nil
}

// readAll reduces every log in parallel. Each job owns a distinct cell, so
// writes never overlap.
func (p *Parser) readAll(ctx context.Context, jobs []readJob, results *model.Results) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := ReadSummary(job.path, p.cumulativeColumn, p.priceColumn)
			if err != nil {
				return err
			}
			t := results.Tables[job.scenario]
			t.CumulativeReturn.Set(job.episode, job.agent, s.CumulativeReturn)
			t.AvgPrice.Set(job.episode, job.agent, s.AvgPrice)
			p.metrics.RecordLogFile()
			p.log.Debug(ctx, "read price log",
				logger.String("path", job.path),
				logger.Int("steps", s.Steps))
			return nil
		})
	}
	return g.Wait()
}

// scenarioFolders returns the sorted names of log folders in an episode.
func (p *Parser) scenarioFolders(epDir string) ([]string, error) {
	entries, err := os.ReadDir(epDir)
	if err != nil {
		return nil, fmt.Errorf("read episode %s: %w", epDir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && strings.Contains(e.Name(), p.marker) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// agentFiles returns the non-hidden regular files of a scenario folder.
func agentFiles(scDir string) ([]string, error) {
	entries, err := os.ReadDir(scDir)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", scDir, err)
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// ScenarioName drops the first two '_' tokens of a log folder name:
// "Pricelogs_scenario_A_B_10" is scenario "A_B_10".
func ScenarioName(folder string) string {
	parts := strings.Split(folder, "_")
	if len(parts) <= 2 {
		return ""
	}
	return strings.Join(parts[2:], "_")
}

// AgentName is the first '_' token of a log file name.
func AgentName(file string) string {
	name, _, _ := strings.Cut(file, "_")
	return name
}
