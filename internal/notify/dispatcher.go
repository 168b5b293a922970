package notify

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/fleet/internal/event"
	"github.com/Iron-Ham/fleet/internal/logging"
)

// DefaultQueueSize is the queue capacity used when none is configured.
const DefaultQueueSize = 1024

// DefaultNotifyTimeout bounds a single Notify call.
const DefaultNotifyTimeout = 5 * time.Second

// Dispatcher is a non-blocking Emitter backed by a bounded queue.
// A single goroutine drains the queue into the wrapped Notifier, so events
// reach the notifier in the order they were emitted.
type Dispatcher struct {
	notifier Notifier
	logger   *logging.Logger
	timeout  time.Duration

	mu     sync.RWMutex // guards closed against concurrent Emit/Close
	closed bool
	queue  chan event.Event
	done   chan struct{}

	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher, *int)

// WithQueueSize sets the queue capacity. Values below 1 are ignored.
func WithQueueSize(n int) DispatcherOption {
	return func(_ *Dispatcher, size *int) {
		if n > 0 {
			*size = n
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *logging.Logger) DispatcherOption {
	return func(d *Dispatcher, _ *int) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithNotifyTimeout bounds each Notify call. Zero disables the bound.
func WithNotifyTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher, _ *int) {
		d.timeout = timeout
	}
}

// NewDispatcher starts a dispatcher forwarding to n.
func NewDispatcher(n Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		notifier: n,
		logger:   logging.NopLogger(),
		timeout:  DefaultNotifyTimeout,
		done:     make(chan struct{}),
	}
	size := DefaultQueueSize
	for _, opt := range opts {
		opt(d, &size)
	}
	d.logger = d.logger.WithComponent("notify")
	d.queue = make(chan event.Event, size)

	go d.loop()
	return d
}

// Emit enqueues e. If the queue is full or the dispatcher is closed the event
// is dropped and counted.
func (d *Dispatcher) Emit(e event.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}
	select {
	case d.queue <- e:
	default:
		n := d.dropped.Add(1)
		d.logger.Warn("event queue full, dropping event",
			"event_type", e.EventType(),
			"dropped_total", n)
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.logger.Error("notifier panicked",
				"event_type", e.EventType(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.notifier.Notify(ctx, e); err != nil {
		d.failed.Add(1)
		d.logger.Warn("event delivery failed",
			"event_type", e.EventType(),
			"error", err.Error())
		return
	}
	d.delivered.Add(1)
}

// Close stops accepting events and waits until queued events have been
// delivered or ctx is done. It is safe to call more than once.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: drain queue: %w", ctx.Err())
	}
}

// Stats reports delivery counters.
type Stats struct {
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
	Queued    int    `json:"queued"`
}

// Stats returns a snapshot of the dispatcher's counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Failed:    d.failed.Load(),
		Queued:    len(d.queue),
	}
}
