package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Iron-Ham/fleet/internal/logging"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), nil, "", "fleet", "test", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInstallLogger(t *testing.T) {
	t.Cleanup(func() { otel.SetErrorHandler(otel.ErrorHandlerFunc(func(error) {})) })

	var buf bytes.Buffer
	InstallLogger(logging.NewWriterLogger(&buf, logging.LevelInfo))

	otel.Handle(errors.New("export refused: 503"))

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN","msg":"opentelemetry error"`)
	assert.Contains(t, out, `"component":"otel"`)
	assert.Contains(t, out, "export refused: 503")
}

type setup struct {
	reader *sdkmetric.ManualReader
	spans  *tracetest.SpanRecorder
	in     *Instruments
	mp     *sdkmetric.MeterProvider
}

func newSetup(t *testing.T) setup {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})
	return setup{
		reader: reader,
		spans:  spans,
		mp:     mp,
		in:     NewInstruments(mp.Meter("test"), tp.Tracer("test")),
	}
}

func collect(t *testing.T, r *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, r.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", agg)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestInstrumentsCounters(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	s.in.TaskStarted(ctx, "echo")
	s.in.TaskStarted(ctx, "echo")
	s.in.TaskStarted(ctx, "sleep")
	s.in.TaskRejected(ctx, "sleep")
	s.in.TaskFinished(ctx, "echo", OutcomeCompleted, 2*time.Second)
	s.in.TaskFinished(ctx, "echo", OutcomeFailed, time.Second)
	s.in.TaskFinished(ctx, "sleep", OutcomeCancelled, time.Second)

	got := collect(t, s.reader)
	assert.Equal(t, int64(3), sumOf(t, got["fleet.tasks.started"]))
	assert.Equal(t, int64(1), sumOf(t, got["fleet.tasks.rejected"]))
	assert.Equal(t, int64(1), sumOf(t, got["fleet.tasks.completed"]))
	assert.Equal(t, int64(1), sumOf(t, got["fleet.tasks.failed"]))
	assert.Equal(t, int64(1), sumOf(t, got["fleet.tasks.cancelled"]))

	hist, ok := got["fleet.task.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 2.0, hist.DataPoints[0].Sum, 1e-9)
}

func TestNilInstruments(t *testing.T) {
	var in *Instruments
	ctx := context.Background()
	assert.NotPanics(t, func() {
		in.TaskStarted(ctx, "x")
		in.TaskRejected(ctx, "x")
		in.TaskFinished(ctx, "x", OutcomeCompleted, time.Second)
		spanCtx, span := in.StartTaskSpan(ctx, "agent_1", "x")
		assert.NotNil(t, spanCtx)
		EndTaskSpan(span, OutcomeFailed, errors.New("boom"))
	})
}

func TestTaskSpan(t *testing.T) {
	s := newSetup(t)

	_, span := s.in.StartTaskSpan(context.Background(), "agent_1", "echo")
	EndTaskSpan(span, OutcomeFailed, errors.New("boom"))

	ended := s.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "agent.task", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)

	attrs := map[string]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "agent_1", attrs["fleet.agent_id"])
	assert.Equal(t, "echo", attrs["fleet.agent_type"])
	assert.Equal(t, "failed", attrs["fleet.outcome"])
}

type fixedGauges struct{ agents, running int }

func (g fixedGauges) AgentCount() int   { return g.agents }
func (g fixedGauges) RunningTasks() int { return g.running }

func TestRegisterGauges(t *testing.T) {
	s := newSetup(t)
	require.NoError(t, RegisterGauges(s.mp.Meter("gauges"), fixedGauges{agents: 4, running: 2}))

	got := collect(t, s.reader)
	for name, want := range map[string]int64{
		"fleet.agents.registered": 4,
		"fleet.agents.running":    2,
	} {
		g, ok := got[name].(metricdata.Gauge[int64])
		require.True(t, ok, "%s: got %T", name, got[name])
		require.Len(t, g.DataPoints, 1)
		assert.Equal(t, want, g.DataPoints[0].Value, name)
	}
}
