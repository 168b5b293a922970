package event

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/fleet/internal/logging"
)

// Handler is a function that handles an event.
type Handler func(Event)

// Filter selects the events a subscription receives.
type Filter func(Event) bool

// OfType matches events whose type is one of types.
func OfType(types ...string) Filter {
	return func(e Event) bool {
		return slices.Contains(types, e.EventType())
	}
}

// ForAgent matches events whose payload names agentID.
func ForAgent(agentID string) Filter {
	return func(e Event) bool {
		return AgentIDOf(e) == agentID
	}
}

// AgentIDOf returns the agent_id carried in e's payload, or "" for
// fleet-wide events such as agent_metrics_updated.
func AgentIDOf(e Event) string {
	id, _ := e.Payload()["agent_id"].(string)
	return id
}

type subscription struct {
	id      string
	filter  Filter // nil matches everything
	handler Handler
}

// Bus is a synchronous in-process pub-sub bus. Subscribers are called on
// the publishing goroutine in the order they subscribed.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID atomic.Uint64
	logger *logging.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusLogger sets the logger used to report panicking handlers.
func WithBusLogger(l *logging.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l.WithComponent("event-bus")
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for one event type and returns an ID for
// Unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	return b.SubscribeFunc(OfType(eventType), handler)
}

// SubscribeAll registers handler for every event.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.SubscribeFunc(nil, handler)
}

// SubscribeAgent registers handler for the events of a single agent.
func (b *Bus) SubscribeAgent(agentID string, handler Handler) string {
	return b.SubscribeFunc(ForAgent(agentID), handler)
}

// SubscribeFunc registers handler for the events filter accepts. A nil
// filter accepts all events.
func (b *Bus) SubscribeFunc(filter Filter, handler Handler) string {
	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))

	b.mu.Lock()
	b.subs = append(b.subs, subscription{id: id, filter: filter, handler: handler})
	b.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription. It reports whether id was found.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.IndexFunc(b.subs, func(s subscription) bool { return s.id == id })
	if i < 0 {
		return false
	}
	b.subs = slices.Delete(b.subs, i, i+1)
	return true
}

// Publish delivers event to every matching subscriber. A panicking handler
// is logged and skipped; the remaining handlers still run.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.filter != nil && !s.filter(event) {
			continue
		}
		b.safeCall(s.handler, event)
	}
}

func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event_type", event.EventType(),
				"agent_id", AgentIDOf(event),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	handler(event)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
