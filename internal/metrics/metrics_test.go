package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(WithRegistry(reg), WithNamespace("test"))

	m.RecordMerges(1, 3)
	m.RecordMerges(1, 2)
	m.RecordLogFile()
	m.RecordParse(OutcomeOK, 150*time.Millisecond)
	m.RecordParse(OutcomeMismatch, time.Millisecond)
	m.SetShape(12, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.mergesApplied))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.entriesMoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logFilesParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.parseOutcomes.WithLabelValues(OutcomeMismatch)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.episodes))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.agents))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_reconcile_merges_applied_total")
	assert.Contains(t, names, "test_parser_parse_duration_seconds")
}

func TestManager_NilIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.RecordMerges(1, 1)
		m.RecordLogFile()
		m.RecordParse(OutcomeError, time.Second)
		m.SetShape(1, 1)
	})
}
