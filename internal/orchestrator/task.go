package orchestrator

import (
	"context"
	"time"

	"github.com/Iron-Ham/fleet/internal/agent"
)

// Task is the handle for one in-flight execution of an agent's work.
// Fields below the divider are guarded by the orchestrator's mutex; result
// and err are written once before done is closed.
type Task struct {
	agentID   string
	agentType string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	result agent.Result
	err    error

	// guarded by Orchestrator.mu
	stopRequested bool
	finished      bool
}

// AgentID returns the agent the task runs on.
func (t *Task) AgentID() string { return t.agentID }

// StartedAt returns when the task was admitted.
func (t *Task) StartedAt() time.Time { return t.startedAt }

// Done is closed once the task's bookkeeping is complete and the agent's
// record reflects the outcome.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx is done. A failed task returns
// an *errors.ExecutionError that unwraps to the work's original error; a
// cancelled task returns an *errors.CancellationError.
func (t *Task) Wait(ctx context.Context) (agent.Result, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Finished reports whether the task has completed, without blocking.
func (t *Task) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
