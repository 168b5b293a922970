package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Outcome labels a finished task.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Instruments holds the orchestrator's counters, histogram and tracer.
// A nil *Instruments is valid and records nothing.
type Instruments struct {
	tracer trace.Tracer

	started   metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
	cancelled metric.Int64Counter
	rejected  metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewInstruments creates the task instruments on meter. Instrument creation
// errors are ignored and leave a no-op instrument in place.
func NewInstruments(meter metric.Meter, tracer trace.Tracer) *Instruments {
	in := &Instruments{tracer: tracer}
	in.started, _ = meter.Int64Counter("fleet.tasks.started",
		metric.WithDescription("Tasks admitted and started"))
	in.completed, _ = meter.Int64Counter("fleet.tasks.completed",
		metric.WithDescription("Tasks whose work returned successfully"))
	in.failed, _ = meter.Int64Counter("fleet.tasks.failed",
		metric.WithDescription("Tasks whose work returned an error"))
	in.cancelled, _ = meter.Int64Counter("fleet.tasks.cancelled",
		metric.WithDescription("Tasks stopped before finishing"))
	in.rejected, _ = meter.Int64Counter("fleet.tasks.rejected",
		metric.WithDescription("Task starts rejected by admission control"))
	in.duration, _ = meter.Float64Histogram("fleet.task.duration",
		metric.WithDescription("Task execution time"),
		metric.WithUnit("s"))
	return in
}

// Default builds instruments on the global providers.
func Default() *Instruments {
	return NewInstruments(Meter(ScopeName), Tracer(ScopeName))
}

func agentAttrs(agentType string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("fleet.agent_type", agentType))
}

// TaskStarted counts an admitted task.
func (in *Instruments) TaskStarted(ctx context.Context, agentType string) {
	if in == nil || in.started == nil {
		return
	}
	in.started.Add(ctx, 1, agentAttrs(agentType))
}

// TaskRejected counts a start refused for capacity.
func (in *Instruments) TaskRejected(ctx context.Context, agentType string) {
	if in == nil || in.rejected == nil {
		return
	}
	in.rejected.Add(ctx, 1, agentAttrs(agentType))
}

// TaskFinished counts a finished task by outcome. Duration is recorded for
// completed tasks only, matching the per-agent average execution time.
func (in *Instruments) TaskFinished(ctx context.Context, agentType string, outcome Outcome, d time.Duration) {
	if in == nil {
		return
	}
	attrs := agentAttrs(agentType)
	switch outcome {
	case OutcomeCompleted:
		if in.completed != nil {
			in.completed.Add(ctx, 1, attrs)
		}
		if in.duration != nil {
			in.duration.Record(ctx, d.Seconds(), attrs)
		}
	case OutcomeFailed:
		if in.failed != nil {
			in.failed.Add(ctx, 1, attrs)
		}
	case OutcomeCancelled:
		if in.cancelled != nil {
			in.cancelled.Add(ctx, 1, attrs)
		}
	}
}

// StartTaskSpan opens the span covering one task execution.
func (in *Instruments) StartTaskSpan(ctx context.Context, agentID, agentType string) (context.Context, trace.Span) {
	if in == nil || in.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return in.tracer.Start(ctx, "agent.task",
		trace.WithAttributes(
			attribute.String("fleet.agent_id", agentID),
			attribute.String("fleet.agent_type", agentType),
		),
	)
}

// EndTaskSpan closes span with the outcome and, for failures, the error.
func EndTaskSpan(span trace.Span, outcome Outcome, err error) {
	span.SetAttributes(attribute.String("fleet.outcome", string(outcome)))
	if outcome == OutcomeFailed && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Gauges reports live registry sizes for the observable gauges.
type Gauges interface {
	AgentCount() int
	RunningTasks() int
}

// RegisterGauges registers fleet.agents.registered and fleet.agents.running
// on meter, observed from g at collection time.
func RegisterGauges(meter metric.Meter, g Gauges) error {
	if _, err := meter.Int64ObservableGauge("fleet.agents.registered",
		metric.WithDescription("Agents currently in the registry"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(g.AgentCount()))
			return nil
		}),
	); err != nil {
		return err
	}

	_, err := meter.Int64ObservableGauge("fleet.agents.running",
		metric.WithDescription("Tasks currently executing"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(g.RunningTasks()))
			return nil
		}),
	)
	return err
}
