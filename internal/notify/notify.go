// Package notify delivers orchestrator events to external consumers.
//
// The orchestrator only knows the [Emitter] contract, whose Emit must never
// block. [Dispatcher] is the production Emitter: it buffers events in a
// bounded queue and forwards them from a single goroutine to a [Notifier],
// which may be slow or fail. Adapters fan events out to the in-process
// event bus ([BusNotifier]), WebSocket clients ([Hub]), a Redis stream
// ([RedisStream]) or the log ([LogNotifier]); [Multi] combines them.
package notify

import (
	"context"

	"github.com/Iron-Ham/fleet/internal/errors"
	"github.com/Iron-Ham/fleet/internal/event"
)

// Emitter accepts events without blocking the caller.
type Emitter interface {
	Emit(e event.Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(e event.Event)

// Emit calls f(e).
func (f EmitterFunc) Emit(e event.Event) { f(e) }

// Discard is an Emitter that drops every event.
var Discard Emitter = EmitterFunc(func(event.Event) {})

// Notifier delivers a single event. Implementations may block and may fail;
// callers on the orchestration path go through a Dispatcher instead.
type Notifier interface {
	Notify(ctx context.Context, e event.Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, e event.Event) error

// Notify calls f(ctx, e).
func (f NotifierFunc) Notify(ctx context.Context, e event.Event) error { return f(ctx, e) }

// Multi fans an event out to every notifier in order. All notifiers are
// attempted; their errors are joined.
type Multi []Notifier

// Notify delivers e to each notifier.
func (m Multi) Notify(ctx context.Context, e event.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BusNotifier publishes events on an in-process event bus.
type BusNotifier struct {
	Bus *event.Bus
}

// NewBusNotifier wraps bus as a Notifier.
func NewBusNotifier(bus *event.Bus) *BusNotifier {
	return &BusNotifier{Bus: bus}
}

// Notify publishes e synchronously. Handler panics are contained by the bus.
func (b *BusNotifier) Notify(_ context.Context, e event.Event) error {
	b.Bus.Publish(e)
	return nil
}

type emitterKey struct{}

// WithEmitter returns a context that carries em so that agent work can
// report progress events.
func WithEmitter(ctx context.Context, em Emitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, em)
}

// FromContext returns the Emitter stored by WithEmitter, or Discard.
func FromContext(ctx context.Context) Emitter {
	if em, ok := ctx.Value(emitterKey{}).(Emitter); ok && em != nil {
		return em
	}
	return Discard
}
