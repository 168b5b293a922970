// Package orchestrator registers agents, runs their tasks under a
// concurrency limit, tracks per-agent state and metrics, and emits one
// lifecycle event per state transition.
//
// All registry and task bookkeeping is guarded by a single mutex. Agent work
// runs in its own goroutine outside the lock and is stopped cooperatively by
// cancelling its context. Events are handed to a non-blocking
// [notify.Emitter] while the lock is held, so the events of one agent reach
// the emitter in transition order. A panicking emitter is logged and does
// not affect the transition. Event timestamps come from the orchestrator's
// clock.
//
// State machine:
//
//	Idle ──StartTask──▶ Running ──▶ Completed | Failed | Cancelled
//	  ▲                                         │
//	  └────────────CleanupCompletedTasks────────┘
package orchestrator

import (
	"cmp"
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/fleet/internal/agent"
	"github.com/Iron-Ham/fleet/internal/errors"
	"github.com/Iron-Ham/fleet/internal/event"
	"github.com/Iron-Ham/fleet/internal/logging"
	"github.com/Iron-Ham/fleet/internal/notify"
	"github.com/Iron-Ham/fleet/internal/telemetry"
)

type entry struct {
	record agent.Record
	work   agent.Work

	// unregistering counts Unregister calls waiting for the task to stop.
	// StartTask and CleanupCompletedTasks leave such an entry alone.
	unregistering int
}

// Orchestrator owns the agent registry and the in-flight task map.
type Orchestrator struct {
	emitter     notify.Emitter
	logger      *logging.Logger
	instruments *telemetry.Instruments
	now         func() time.Time

	mu            sync.Mutex
	agents        map[string]*entry
	tasks         map[string]*Task
	running       int // tasks whose work has not returned
	maxConcurrent int
}

// New creates an empty orchestrator.
func New(opts ...Option) *Orchestrator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Orchestrator{
		emitter:       cfg.emitter,
		logger:        cfg.logger.WithComponent("orchestrator"),
		instruments:   cfg.instruments,
		now:           cfg.clock,
		agents:        make(map[string]*entry),
		tasks:         make(map[string]*Task),
		maxConcurrent: cfg.maxConcurrent,
	}
}

// Register adds an idle agent backed by work and returns its identifier.
// The metadata map is copied.
func (o *Orchestrator) Register(agentType string, work agent.Work, metadata map[string]any) (string, error) {
	if agentType == "" {
		return "", errors.NewValidationError("agent type must not be empty").WithField("agent_type")
	}
	if work == nil {
		return "", errors.NewValidationError("agent work must not be nil").WithField("work")
	}

	id := agent.NewID()
	rec := agent.NewRecord(id, agentType, metadata, o.now())

	o.mu.Lock()
	o.agents[id] = &entry{record: rec, work: work}
	o.emit(event.NewAgentRegisteredEvent(rec))
	o.mu.Unlock()

	o.logger.Info("agent registered", "agent_id", id, "agent_type", agentType)
	return id, nil
}

// Unregister removes an agent. A running task is cancelled first and
// Unregister waits for it to finish; meanwhile the agent cannot be started
// again. It returns false if the agent is unknown, in which case no event is
// emitted. If ctx ends before the task stops the agent stays registered.
func (o *Orchestrator) Unregister(ctx context.Context, agentID string) (bool, error) {
	o.mu.Lock()
	e, ok := o.agents[agentID]
	if !ok {
		o.mu.Unlock()
		return false, nil
	}
	e.unregistering++
	t := o.tasks[agentID]
	if t != nil && !t.finished {
		t.stopRequested = true
		t.cancel()
	}
	o.mu.Unlock()

	if t != nil {
		select {
		case <-t.done:
		case <-ctx.Done():
			o.mu.Lock()
			e.unregistering--
			o.mu.Unlock()
			return false, errors.Wrapf(ctx.Err(), "unregister %s: waiting for task", agentID)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.agents[agentID] != e {
		// Removed concurrently while we waited.
		return false, nil
	}
	delete(o.agents, agentID)
	delete(o.tasks, agentID)
	o.emit(event.NewAgentUnregisteredEvent(agentID, o.now()))

	o.logger.Info("agent unregistered", "agent_id", agentID)
	return true, nil
}

// StartTask runs the agent's work on task in a new goroutine and returns
// the task handle. It fails with a NotFoundError for an unknown agent, an
// InvalidStateError if the agent is not idle, and a CapacityError when the
// concurrency limit is reached.
//
// The task inherits ctx's values but not its cancellation; use StopTask to
// cancel it.
func (o *Orchestrator) StartTask(ctx context.Context, agentID string, task agent.TaskData) (*Task, error) {
	if task == nil {
		task = agent.TaskData{}
	}

	o.mu.Lock()
	e, ok := o.agents[agentID]
	if !ok {
		o.mu.Unlock()
		return nil, errors.NewAgentNotFoundError(agentID)
	}
	if e.unregistering > 0 {
		o.mu.Unlock()
		return nil, errors.NewInvalidStateError(agentID, "unregistering", agent.StatusIdle.String())
	}
	if e.record.Status != agent.StatusIdle {
		status := e.record.Status
		o.mu.Unlock()
		return nil, errors.NewInvalidStateError(agentID, status.String(), agent.StatusIdle.String())
	}
	if o.running >= o.maxConcurrent {
		limit, running := o.maxConcurrent, o.running
		o.mu.Unlock()
		o.instruments.TaskRejected(ctx, e.record.Type)
		o.logger.Warn("task rejected at capacity",
			"agent_id", agentID, "running", running, "limit", limit)
		return nil, errors.NewCapacityError(limit, running)
	}

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	taskCtx = notify.WithEmitter(agent.WithID(taskCtx, agentID), notify.EmitterFunc(o.emit))

	now := o.now()
	t := &Task{
		agentID:   agentID,
		agentType: e.record.Type,
		startedAt: now,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	o.tasks[agentID] = t
	o.running++
	e.record.Status = agent.StatusRunning
	e.record.UpdatedAt = now
	o.emit(event.NewAgentStatusChangedEvent(agentID, agent.StatusIdle, agent.StatusRunning, now))
	work := e.work
	o.mu.Unlock()

	o.instruments.TaskStarted(ctx, t.agentType)
	o.logger.Info("task started", "agent_id", agentID, "agent_type", t.agentType)

	go o.run(taskCtx, t, work, task)
	return t, nil
}

func (o *Orchestrator) run(ctx context.Context, t *Task, work agent.Work, task agent.TaskData) {
	ctx, span := o.instruments.StartTaskSpan(ctx, t.agentID, t.agentType)
	result, err := execute(ctx, work, task)
	o.finish(ctx, t, result, err, span)
}

// execute calls the work and converts a panic into an error.
func execute(ctx context.Context, work agent.Work, task agent.TaskData) (result agent.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent work panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return work.Execute(ctx, task)
}

// finish records the task outcome. A requested stop wins over whatever the
// work returned.
func (o *Orchestrator) finish(ctx context.Context, t *Task, result agent.Result, workErr error, span trace.Span) {
	now := o.now()
	elapsed := now.Sub(t.startedAt)

	var outcome telemetry.Outcome

	o.mu.Lock()
	o.running--
	t.finished = true
	e, exists := o.agents[t.agentID]

	switch {
	case t.stopRequested:
		outcome = telemetry.OutcomeCancelled
		t.err = errors.NewCancellationError(t.agentID, context.Canceled)
		if exists {
			e.record.Status = agent.StatusCancelled
			e.record.Metrics.RecordActivity(now)
			o.emit(event.NewAgentCancelledEvent(t.agentID, now))
		}
	case workErr != nil:
		outcome = telemetry.OutcomeFailed
		t.err = errors.NewExecutionError(t.agentID, workErr)
		if exists {
			e.record.Status = agent.StatusFailed
			e.record.Metrics.RecordFailure(now)
			o.emit(event.NewAgentFailedEvent(t.agentID, workErr.Error(), now))
		}
	default:
		outcome = telemetry.OutcomeCompleted
		t.result = result
		if exists {
			e.record.Status = agent.StatusCompleted
			e.record.Metrics.RecordCompletion(elapsed, now)
			o.emit(event.NewAgentStatusChangedEvent(t.agentID, agent.StatusRunning, agent.StatusCompleted, now))
		}
	}
	if exists {
		e.record.UpdatedAt = now
	}
	o.mu.Unlock()

	o.instruments.TaskFinished(ctx, t.agentType, outcome, elapsed)
	telemetry.EndTaskSpan(span, outcome, workErr)

	log := o.logger.WithAgent(t.agentID)
	switch outcome {
	case telemetry.OutcomeFailed:
		log.Log(errors.GetSeverity(t.err).Level(), "task failed",
			"duration_s", elapsed.Seconds(), "error", workErr.Error())
	case telemetry.OutcomeCancelled:
		log.Log(errors.GetSeverity(t.err).Level(), "task cancelled", "duration_s", elapsed.Seconds())
	default:
		log.Info("task completed", "duration_s", elapsed.Seconds())
	}

	t.cancel()
	close(t.done)
}

// StopTask cancels the agent's in-flight task and waits until its outcome
// has been recorded. It returns false if the agent has no unfinished task.
func (o *Orchestrator) StopTask(ctx context.Context, agentID string) (bool, error) {
	o.mu.Lock()
	t, ok := o.tasks[agentID]
	if !ok || t.finished {
		o.mu.Unlock()
		return false, nil
	}
	t.stopRequested = true
	t.cancel()
	o.mu.Unlock()

	select {
	case <-t.done:
	case <-ctx.Done():
		return false, errors.Wrapf(ctx.Err(), "stop task %s: waiting for cancellation", agentID)
	}

	o.mu.Lock()
	if o.tasks[agentID] == t {
		delete(o.tasks, agentID)
	}
	o.mu.Unlock()

	return true, nil
}

// GetAgentInfo returns a copy of the agent's record.
func (o *Orchestrator) GetAgentInfo(agentID string) (agent.Record, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.agents[agentID]
	if !ok {
		return agent.Record{}, false
	}
	return e.record.Clone(), true
}

// ListAgents returns copies of all records, oldest first. When statuses are
// given only agents in one of them are returned.
func (o *Orchestrator) ListAgents(statuses ...agent.Status) []agent.Record {
	o.mu.Lock()
	out := make([]agent.Record, 0, len(o.agents))
	for _, e := range o.agents {
		if len(statuses) > 0 && !slices.Contains(statuses, e.record.Status) {
			continue
		}
		out = append(out, e.record.Clone())
	}
	o.mu.Unlock()

	slices.SortFunc(out, func(a, b agent.Record) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// CleanupCompletedTasks drops finished task handles and returns every
// agent in a terminal state to idle, emitting a status change for each.
// It returns the number of agents reset.
func (o *Orchestrator) CleanupCompletedTasks() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	for id, t := range o.tasks {
		if t.finished {
			delete(o.tasks, id)
		}
	}

	now := o.now()
	cleaned := 0
	for id, e := range o.agents {
		if e.unregistering > 0 || !e.record.Status.IsTerminal() {
			continue
		}
		if _, inFlight := o.tasks[id]; inFlight {
			continue
		}
		old := e.record.Status
		e.record.Status = agent.StatusIdle
		e.record.UpdatedAt = now
		o.emit(event.NewAgentStatusChangedEvent(id, old, agent.StatusIdle, now))
		cleaned++
	}

	if cleaned > 0 {
		o.logger.Debug("cleaned up finished tasks", "count", cleaned)
	}
	return cleaned
}

// Shutdown emits agent_manager_shutdown, cancels every in-flight task
// concurrently and waits for them, then clears the registry. Cancellation
// outcomes are not reported to the caller. If ctx ends first the registry is
// still cleared and ctx's error is returned. The orchestrator can be reused
// afterwards.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	affected := len(o.agents)
	o.emit(event.NewManagerShutdownEvent(affected, o.now()))

	var pending []*Task
	for _, t := range o.tasks {
		if !t.finished {
			t.stopRequested = true
			pending = append(pending, t)
		}
	}
	o.mu.Unlock()

	o.logger.Info("shutting down", "agents", affected, "in_flight", len(pending))

	var wg conc.WaitGroup
	for _, t := range pending {
		wg.Go(func() {
			t.cancel()
			<-t.done
		})
	}

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()

	var err error
	select {
	case <-waited:
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "shutdown: waiting for tasks")
		o.logger.Warn("shutdown deadline reached before all tasks stopped")
	}

	o.mu.Lock()
	o.agents = make(map[string]*entry)
	o.tasks = make(map[string]*Task)
	o.mu.Unlock()

	return err
}

// emit hands e to the emitter. A panic in the emitter is logged and
// swallowed so the caller's state transition still completes.
func (o *Orchestrator) emit(e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("event emitter panicked",
				"event_type", e.EventType(),
				"agent_id", event.AgentIDOf(e),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	o.emitter.Emit(e)
}

// MaxConcurrentAgents returns the current admission limit.
func (o *Orchestrator) MaxConcurrentAgents() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.maxConcurrent
}

// SetMaxConcurrentAgents changes the admission limit. Tasks already running
// are unaffected when the limit shrinks.
func (o *Orchestrator) SetMaxConcurrentAgents(n int) error {
	if n < 1 {
		return errors.NewValidationError("max concurrent agents must be at least 1").
			WithField("max_concurrent_agents").WithValue(n)
	}
	o.mu.Lock()
	old := o.maxConcurrent
	o.maxConcurrent = n
	o.mu.Unlock()

	if old != n {
		o.logger.Info("admission limit changed", "old", old, "new", n)
	}
	return nil
}

// RunningTasks returns the number of tasks whose work has not returned.
func (o *Orchestrator) RunningTasks() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// AgentCount returns the number of registered agents.
func (o *Orchestrator) AgentCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.agents)
}
