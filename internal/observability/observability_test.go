package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dshills/prchanges/internal/observability"
)

func TestNewLogger_JSONWithTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := observability.NewLogger(observability.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.DebugContext(ctx, "fetching", slog.String("commit", "abc"))
	span.End()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "fetching", rec["msg"])
	assert.Equal(t, "prchanges", rec["service"])
	assert.Equal(t, "abc", rec["commit"])
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := observability.NewLogger(observability.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestNewLogger_BadConfig(t *testing.T) {
	t.Parallel()

	_, err := observability.NewLogger(observability.LogConfig{Format: "xml"}, &bytes.Buffer{})
	require.ErrorIs(t, err, observability.ErrUnknownLogFormat)

	_, err = observability.NewLogger(observability.LogConfig{Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	m.ObserveFetch(observability.FetchCommit, observability.OutcomeOK, 20*time.Millisecond)
	m.ObserveFetch(observability.FetchCommit, observability.OutcomeOK, 30*time.Millisecond)
	m.ObserveFetch(observability.FetchRequest, observability.OutcomeError, time.Second)
	m.AddPatches(5)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.ObserveBundle(observability.OutcomeCancelled)

	count, err := testutil.GatherAndCount(reg, "prchanges_diff_fetches_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	expected := `
# HELP prchanges_cache_lookups_total Commit diff cache lookups by result.
# TYPE prchanges_cache_lookups_total counter
prchanges_cache_lookups_total{result="hit"} 1
prchanges_cache_lookups_total{result="miss"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "prchanges_cache_lookups_total"))

	_, err = observability.NewMetrics(reg)
	require.Error(t, err, "registering twice must fail")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *observability.Metrics
	m.ObserveFetch(observability.FetchCommit, observability.OutcomeOK, time.Millisecond)
	m.AddPatches(1)
	m.CacheLookup(true)
	m.ObserveBundle(observability.OutcomeOK)
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	m.AddPatches(3)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, observability.WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "prchanges_file_patches_parsed_total 3")
}
