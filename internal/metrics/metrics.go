// Package metrics exposes Prometheus metrics for reconciliation and parsing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for parse_outcomes_total.
const (
	OutcomeOK       = "ok"
	OutcomeMismatch = "mismatch"
	OutcomeError    = "error"
)

// Option configures a Manager.
type Option func(*Manager)

func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers all metrics on r instead of the default registerer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// Manager owns the pipeline metrics. A nil *Manager is valid and records
// nothing, so components can take one optionally.
type Manager struct {
	namespace string
	registry  prometheus.Registerer

	mergesApplied  prometheus.Counter
	entriesMoved   prometheus.Counter
	logFilesParsed prometheus.Counter
	parseOutcomes  *prometheus.CounterVec
	parseDuration  prometheus.Histogram
	episodes       prometheus.Gauge
	agents         prometheus.Gauge
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "eisim_progress",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.mergesApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "reconcile",
		Name:      "merges_applied_total",
		Help:      "Split episode folders merged into their predecessor",
	})
	m.entriesMoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "reconcile",
		Name:      "entries_moved_total",
		Help:      "Filesystem entries moved between episode folders",
	})
	m.logFilesParsed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "parser",
		Name:      "log_files_parsed_total",
		Help:      "Agent price log files reduced to episode summaries",
	})
	m.parseOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "parser",
		Name:      "parse_outcomes_total",
		Help:      "Parse runs by outcome",
	}, []string{"outcome"})
	m.parseDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "parser",
		Name:      "parse_duration_seconds",
		Help:      "Wall time of a full log tree parse",
		Buckets:   prometheus.DefBuckets,
	})
	m.episodes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "episodes",
		Help:      "Episodes in the last successful parse",
	})
	m.agents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "agents",
		Help:      "Agents in the last successful parse",
	})
	return m
}

func (m *Manager) RecordMerges(merges, entries int) {
	if m == nil {
		return
	}
	m.mergesApplied.Add(float64(merges))
	m.entriesMoved.Add(float64(entries))
}

func (m *Manager) RecordLogFile() {
	if m == nil {
		return
	}
	m.logFilesParsed.Inc()
}

func (m *Manager) RecordParse(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.parseOutcomes.WithLabelValues(outcome).Inc()
	m.parseDuration.Observe(d.Seconds())
}

func (m *Manager) SetShape(episodes, agents int) {
	if m == nil {
		return
	}
	m.episodes.Set(float64(episodes))
	m.agents.Set(float64(agents))
}
