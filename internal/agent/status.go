package agent

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a registered agent.
type Status int

const (
	// StatusIdle means the agent is registered and can accept a task.
	StatusIdle Status = iota
	// StatusRunning means a task is executing on the agent.
	StatusRunning
	// StatusPaused is reserved. No orchestrator operation moves an agent
	// into or out of it.
	StatusPaused
	// StatusCompleted means the last task finished successfully.
	StatusCompleted
	// StatusFailed means the last task's work returned an error.
	StatusFailed
	// StatusCancelled means the last task was stopped on purpose.
	StatusCancelled
)

var statusNames = [...]string{
	StatusIdle:      "idle",
	StatusRunning:   "running",
	StatusPaused:    "paused",
	StatusCompleted: "completed",
	StatusFailed:    "failed",
	StatusCancelled: "cancelled",
}

// String returns the lower-case status name.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// IsTerminal reports whether the status ends a task: completed, failed or
// cancelled. Terminal agents return to idle via cleanup.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseStatus converts a status name (case-insensitive) to a Status.
func ParseStatus(name string) (Status, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown agent status %q", name)
}

// AllStatuses returns every defined status in declaration order.
func AllStatuses() []Status {
	return []Status{StatusIdle, StatusRunning, StatusPaused, StatusCompleted, StatusFailed, StatusCancelled}
}

// MarshalText encodes the status as its name, so JSON and YAML carry
// "running" rather than an integer.
func (s Status) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid agent status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
