// Package agent defines the data model shared by the orchestrator and its
// collaborators: agent records, per-agent metrics, the status enum, the work
// contract agents implement, and the system-wide metrics rollup.
package agent

import (
	"context"
	"encoding/hex"
	"maps"
	"time"

	"github.com/google/uuid"
)

// IDPrefix prefixes every generated agent identifier.
const IDPrefix = "agent_"

// TaskData is the input handed to an agent's work for one task.
type TaskData map[string]any

// Result is the value produced by an agent's work on success.
type Result map[string]any

// Work is the externally supplied capability that performs a task.
// Implementations must return promptly once ctx is cancelled; the
// orchestrator waits for Execute to return before a stop completes.
type Work interface {
	Execute(ctx context.Context, task TaskData) (Result, error)
}

// WorkFunc adapts an ordinary function to the Work interface.
type WorkFunc func(ctx context.Context, task TaskData) (Result, error)

// Execute calls f(ctx, task).
func (f WorkFunc) Execute(ctx context.Context, task TaskData) (Result, error) {
	return f(ctx, task)
}

// NewID returns a collision-free agent identifier: IDPrefix followed by 32
// hex characters of a random 128-bit value.
func NewID() string {
	u := uuid.New()
	return IDPrefix + hex.EncodeToString(u[:])
}

// Metrics accumulates the performance statistics of one agent.
type Metrics struct {
	AgentID              string     `json:"agent_id"`
	TasksCompleted       int        `json:"tasks_completed"`
	TasksFailed          int        `json:"tasks_failed"`
	TotalExecutionTime   float64    `json:"total_execution_time"`   // seconds
	AverageExecutionTime float64    `json:"average_execution_time"` // seconds
	MemoryUsage          *float64   `json:"memory_usage,omitempty"` // informational, set by callers
	LastActivity         *time.Time `json:"last_activity"`
}

// RecordCompletion adds a successful task of the given duration.
func (m *Metrics) RecordCompletion(d time.Duration, at time.Time) {
	m.TasksCompleted++
	m.TotalExecutionTime += d.Seconds()
	m.recomputeAverage()
	m.touch(at)
}

// RecordFailure counts a failed task.
func (m *Metrics) RecordFailure(at time.Time) {
	m.TasksFailed++
	m.touch(at)
}

// RecordActivity updates LastActivity without touching counters, e.g. when a
// task is cancelled.
func (m *Metrics) RecordActivity(at time.Time) {
	m.touch(at)
}

func (m *Metrics) touch(at time.Time) {
	t := at
	m.LastActivity = &t
}

func (m *Metrics) recomputeAverage() {
	if m.TasksCompleted == 0 {
		m.AverageExecutionTime = 0
		return
	}
	m.AverageExecutionTime = m.TotalExecutionTime / float64(m.TasksCompleted)
}

// Clone returns a copy that shares no pointers with m.
func (m Metrics) Clone() Metrics {
	out := m
	if m.MemoryUsage != nil {
		v := *m.MemoryUsage
		out.MemoryUsage = &v
	}
	if m.LastActivity != nil {
		t := *m.LastActivity
		out.LastActivity = &t
	}
	return out
}

// Record describes one registered agent.
type Record struct {
	ID        string         `json:"agent_id"`
	Type      string         `json:"agent_type"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata"`
	Metrics   Metrics        `json:"metrics"`
}

// NewRecord builds an idle record for a freshly registered agent.
func NewRecord(id, agentType string, metadata map[string]any, now time.Time) Record {
	md := make(map[string]any, len(metadata))
	maps.Copy(md, metadata)
	return Record{
		ID:        id,
		Type:      agentType,
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  md,
		Metrics:   Metrics{AgentID: id},
	}
}

// Clone returns a deep copy of r. The metadata map is copied one level deep.
func (r Record) Clone() Record {
	out := r
	out.Metadata = make(map[string]any, len(r.Metadata))
	maps.Copy(out.Metadata, r.Metadata)
	out.Metrics = r.Metrics.Clone()
	return out
}
