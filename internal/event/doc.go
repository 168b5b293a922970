// Package event defines the lifecycle and progress events published by the
// fleet orchestrator and by agent work, together with the pub-sub bus that
// distributes them in-process.
//
// # Main Types
//
//   - [Event]: Interface that all events implement, providing EventType(), Timestamp() and Payload()
//   - [Envelope]: The {"type", "payload"} wire form, see [ToEnvelope] and [Unmarshal]
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Lifecycle events, emitted by the orchestrator once per state transition:
//   - [AgentRegisteredEvent], [AgentUnregisteredEvent]
//   - [AgentStatusChangedEvent]: idle to running, running to completed
//   - [AgentFailedEvent], [AgentCancelledEvent]
//   - [MetricsUpdatedEvent], [ManagerShutdownEvent]
//
// Progress events, emitted by agent work while a task runs:
//   - [AgentStartedEvent], [AgentThinkingEvent]
//   - [ToolExecutingEvent], [ToolCompletedEvent]
//   - [AgentCompletedEvent]
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously and protected against panics; a panicking handler is logged
// and does not prevent other handlers from being called.
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithBusLogger(logger))
//
//	bus.Subscribe(event.TypeAgentFailed, func(e event.Event) {
//	    failed := e.(event.AgentFailedEvent)
//	    log.Printf("agent %s failed: %s", failed.AgentID, failed.Error)
//	})
//
//	bus.SubscribeAll(func(e event.Event) {
//	    data, _ := event.Marshal(e)
//	    fmt.Println(string(data))
//	})
package event
