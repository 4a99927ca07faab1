package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")
	ctx := context.Background()

	l.Info(ctx, "hidden")
	l.Warn(ctx, "shown", String("dir", "/tmp/out"), Int("merges", 2))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "dir=/tmp/out")
	assert.Contains(t, out, "merges=2")
}

func TestNamedAndWith(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug").Named("reconcile").With(String("run", "abc"))

	l.Debug(context.Background(), "planning", Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "component=reconcile")
	assert.Contains(t, out, "run=abc")
	assert.Contains(t, out, "error=boom")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)
	l.Error(context.Background(), "discarded")
}
