package event

import (
	"maps"
	"time"

	"github.com/Iron-Ham/fleet/internal/agent"
)

// Event types emitted by the orchestrator.
const (
	TypeAgentRegistered    = "agent_registered"
	TypeAgentUnregistered  = "agent_unregistered"
	TypeAgentStatusChanged = "agent_status_changed"
	TypeAgentFailed        = "agent_failed"
	TypeAgentCancelled     = "agent_cancelled"
	TypeMetricsUpdated     = "agent_metrics_updated"
	TypeManagerShutdown    = "agent_manager_shutdown"
)

// Event types emitted by agent work while a task runs.
const (
	TypeAgentStarted   = "agent_started"
	TypeAgentThinking  = "agent_thinking"
	TypeToolExecuting  = "tool_executing"
	TypeToolCompleted  = "tool_completed"
	TypeAgentCompleted = "agent_completed"
)

// LifecycleTypes lists the orchestrator's event types in declaration order.
func LifecycleTypes() []string {
	return []string{
		TypeAgentRegistered, TypeAgentUnregistered, TypeAgentStatusChanged,
		TypeAgentFailed, TypeAgentCancelled, TypeMetricsUpdated, TypeManagerShutdown,
	}
}

// ProgressTypes lists the event types produced by agent work.
func ProgressTypes() []string {
	return []string{
		TypeAgentStarted, TypeAgentThinking, TypeToolExecuting,
		TypeToolCompleted, TypeAgentCompleted,
	}
}

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns the wire type, e.g. "agent_registered".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// Payload returns the event's wire payload. It always carries a
	// "timestamp" key in RFC 3339 format.
	Payload() map[string]any
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func (e baseEvent) Payload() map[string]any {
	return e.payload()
}

// payload starts a payload map holding the formatted timestamp.
func (e baseEvent) payload() map[string]any {
	return map[string]any{"timestamp": FormatTime(e.timestamp)}
}

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return newBaseEventAt(eventType, time.Now())
}

// newBaseEventAt creates a baseEvent stamped with at. A zero at means now.
func newBaseEventAt(eventType string, at time.Time) baseEvent {
	if at.IsZero() {
		at = time.Now()
	}
	return baseEvent{
		eventType: eventType,
		timestamp: at.UTC(),
	}
}

// FormatTime renders t the way payload timestamps are encoded.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// -----------------------------------------------------------------------------
// Lifecycle Events
// -----------------------------------------------------------------------------

// AgentRegisteredEvent is emitted when an agent joins the registry.
type AgentRegisteredEvent struct {
	baseEvent
	AgentID   string
	AgentType string
	Status    agent.Status
	Metadata  map[string]any
}

// NewAgentRegisteredEvent creates an AgentRegisteredEvent from the new
// record, stamped with its creation time.
func NewAgentRegisteredEvent(r agent.Record) AgentRegisteredEvent {
	md := make(map[string]any, len(r.Metadata))
	maps.Copy(md, r.Metadata)
	return AgentRegisteredEvent{
		baseEvent: newBaseEventAt(TypeAgentRegistered, r.CreatedAt),
		AgentID:   r.ID,
		AgentType: r.Type,
		Status:    r.Status,
		Metadata:  md,
	}
}

func (e AgentRegisteredEvent) Payload() map[string]any {
	p := e.payload()
	p["agent_id"] = e.AgentID
	p["agent_type"] = e.AgentType
	p["status"] = e.Status.String()
	p["metadata"] = e.Metadata
	return p
}

// AgentUnregisteredEvent is emitted when an agent leaves the registry.
type AgentUnregisteredEvent struct {
	baseEvent
	AgentID string
}

// NewAgentUnregisteredEvent creates an AgentUnregisteredEvent.
func NewAgentUnregisteredEvent(agentID string, at time.Time) AgentUnregisteredEvent {
	return AgentUnregisteredEvent{
		baseEvent: newBaseEventAt(TypeAgentUnregistered, at),
		AgentID:   agentID,
	}
}

func (e AgentUnregisteredEvent) Payload() map[string]any {
	p := e.payload()
	p["agent_id"] = e.AgentID
	return p
}

// AgentStatusChangedEvent is emitted for the idle to running and running to
// completed transitions. Failure and cancellation have their own events.
type AgentStatusChangedEvent struct {
	baseEvent
	AgentID   string
	OldStatus agent.Status
	NewStatus agent.Status
}

// NewAgentStatusChangedEvent creates an AgentStatusChangedEvent.
func NewAgentStatusChangedEvent(agentID string, oldStatus, newStatus agent.Status, at time.Time) AgentStatusChangedEvent {
	return AgentStatusChangedEvent{
		baseEvent: newBaseEventAt(TypeAgentStatusChanged, at),
		AgentID:   agentID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
}

func (e AgentStatusChangedEvent) Payload() map[string]any {
	p := e.payload()
	p["agent_id"] = e.AgentID
	p["old_status"] = e.OldStatus.String()
	p["new_status"] = e.NewStatus.String()
	return p
}

// AgentFailedEvent is emitted when an agent's work returns an error.
type AgentFailedEvent struct {
	baseEvent
	AgentID string
	Status  agent.Status
	Error   string
}

// NewAgentFailedEvent creates an AgentFailedEvent carrying the error text.
func NewAgentFailedEvent(agentID string, errMsg string, at time.Time) AgentFailedEvent {
	return AgentFailedEvent{
		baseEvent: newBaseEventAt(TypeAgentFailed, at),
		AgentID:   agentID,
		Status:    agent.StatusFailed,
		Error:     errMsg,
	}
}

func (e AgentFailedEvent) Payload() map[string]any {
	p := e.payload()
	p["agent_id"] = e.AgentID
	p["status"] = e.Status.String()
	p["error"] = e.Error
	return p
}

// AgentCancelledEvent is emitted when a running task is stopped.
type AgentCancelledEvent struct {
	baseEvent
	AgentID string
	Status  agent.Status
}

// NewAgentCancelledEvent creates an AgentCancelledEvent.
func NewAgentCancelledEvent(agentID string, at time.Time) AgentCancelledEvent {
	return AgentCancelledEvent{
		baseEvent: newBaseEventAt(TypeAgentCancelled, at),
		AgentID:   agentID,
		Status:    agent.StatusCancelled,
	}
}

func (e AgentCancelledEvent) Payload() map[string]any {
	p := e.payload()
	p["agent_id"] = e.AgentID
	p["status"] = e.Status.String()
	return p
}

// MetricsUpdatedEvent carries a system metrics snapshot.
type MetricsUpdatedEvent struct {
	baseEvent
	SystemMetrics agent.SystemMetrics
}

// NewMetricsUpdatedEvent creates a MetricsUpdatedEvent.
func NewMetricsUpdatedEvent(sm agent.SystemMetrics, at time.Time) MetricsUpdatedEvent {
	return MetricsUpdatedEvent{
		baseEvent:     newBaseEventAt(TypeMetricsUpdated, at),
		SystemMetrics: sm,
	}
}

func (e MetricsUpdatedEvent) Payload() map[string]any {
	p := e.payload()
	p["system_metrics"] = e.SystemMetrics.ToMap()
	return p
}

// ManagerShutdownEvent is emitted once when the orchestrator shuts down.
type ManagerShutdownEvent struct {
	baseEvent
	AgentsAffected int
}

// NewManagerShutdownEvent creates a ManagerShutdownEvent.
func NewManagerShutdownEvent(agentsAffected int, at time.Time) ManagerShutdownEvent {
	return ManagerShutdownEvent{
		baseEvent:      newBaseEventAt(TypeManagerShutdown, at),
		AgentsAffected: agentsAffected,
	}
}

func (e ManagerShutdownEvent) Payload() map[string]any {
	p := e.payload()
	p["agents_affected"] = e.AgentsAffected
	return p
}

// -----------------------------------------------------------------------------
// Progress Events
// -----------------------------------------------------------------------------

// AgentStartedEvent is emitted by work when it begins processing a task.
type AgentStartedEvent struct {
	baseEvent
	AgentID string
	Task    map[string]any
}

// NewAgentStartedEvent creates an AgentStartedEvent.
func NewAgentStartedEvent(agentID string, task map[string]any) AgentStartedEvent {
	return AgentStartedEvent{
		baseEvent: newBaseEvent(TypeAgentStarted),
		AgentID:   agentID,
		Task:      task,
	}
}

func (e AgentStartedEvent) Payload() map[string]any {
	p := e.payload()
	p["agent_id"] = e.AgentID
	p["task"] = e.Task
	return p
}

// AgentThinkingEvent reports intermediate reasoning output.
type AgentThinkingEvent struct {
	baseEvent
	AgentID string
	Message string
}

// NewAgentThinkingEvent creates an AgentThinkingEvent.
func NewAgentThinkingEvent(agentID, message string) AgentThinkingEvent {
	return AgentThinkingEvent{
		baseEvent: newBaseEvent(TypeAgentThinking),
		AgentID:   agentID,
		Message:   message,
	}
}

func (e AgentThinkingEvent) Payload() map[string]any {
	p := e.payload()
	p["agent_id"] = e.AgentID
	p["message"] = e.Message
	return p
}

// ToolExecutingEvent is emitted before work invokes a tool.
type ToolExecutingEvent struct {
	baseEvent
	AgentID string
	Tool    string
	Input   map[string]any
}

// NewToolExecutingEvent creates a ToolExecutingEvent.
func NewToolExecutingEvent(agentID, tool string, input map[string]any) ToolExecutingEvent {
	return ToolExecutingEvent{
		baseEvent: newBaseEvent(TypeToolExecuting),
		AgentID:   agentID,
		Tool:      tool,
		Input:     input,
	}
}

func (e ToolExecutingEvent) Payload() map[string]any {
	p := e.payload()
	p["agent_id"] = e.AgentID
	p["tool"] = e.Tool
	p["input"] = e.Input
	return p
}

// ToolCompletedEvent is emitted after a tool returns.
type ToolCompletedEvent struct {
	baseEvent
	AgentID string
	Tool    string
	Output  any
	Error   string // empty on success
}

// NewToolCompletedEvent creates a ToolCompletedEvent. A nil err marks success.
func NewToolCompletedEvent(agentID, tool string, output any, err error) ToolCompletedEvent {
	e := ToolCompletedEvent{
		baseEvent: newBaseEvent(TypeToolCompleted),
		AgentID:   agentID,
		Tool:      tool,
		Output:    output,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func (e ToolCompletedEvent) Payload() map[string]any {
	p := e.payload()
	p["agent_id"] = e.AgentID
	p["tool"] = e.Tool
	p["output"] = e.Output
	p["success"] = e.Error == ""
	if e.Error != "" {
		p["error"] = e.Error
	}
	return p
}

// AgentCompletedEvent is emitted by work when it has produced its result.
type AgentCompletedEvent struct {
	baseEvent
	AgentID string
	Result  map[string]any
}

// NewAgentCompletedEvent creates an AgentCompletedEvent.
func NewAgentCompletedEvent(agentID string, result map[string]any) AgentCompletedEvent {
	return AgentCompletedEvent{
		baseEvent: newBaseEvent(TypeAgentCompleted),
		AgentID:   agentID,
		Result:    result,
	}
}

func (e AgentCompletedEvent) Payload() map[string]any {
	p := e.payload()
	p["agent_id"] = e.AgentID
	p["result"] = e.Result
	return p
}
