package styles

import (
	"testing"

	"github.com/Iron-Ham/fleet/internal/agent"
)

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status   agent.Status
		expected string // Expected color hex value
	}{
		{agent.StatusIdle, "#9CA3AF"},
		{agent.StatusRunning, "#10B981"},
		{agent.StatusPaused, "#60A5FA"},
		{agent.StatusCompleted, "#A78BFA"},
		{agent.StatusFailed, "#F87171"},
		{agent.StatusCancelled, "#FB923C"},
		{agent.Status(99), "#9CA3AF"}, // Should fall back to idle gray
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			got := StatusColor(tt.status)
			if string(got) != tt.expected {
				t.Errorf("StatusColor(%v) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestStatusIcon(t *testing.T) {
	tests := []struct {
		status   agent.Status
		expected string
	}{
		{agent.StatusIdle, "○"},
		{agent.StatusRunning, "●"},
		{agent.StatusPaused, "⏸"},
		{agent.StatusCompleted, "✓"},
		{agent.StatusFailed, "✗"},
		{agent.StatusCancelled, "⊘"},
		{agent.Status(99), "?"},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := StatusIcon(tt.status); got != tt.expected {
				t.Errorf("StatusIcon(%v) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestStatusStyleRendersText(t *testing.T) {
	got := StatusStyle(agent.StatusRunning).Render("running")
	if got == "" {
		t.Error("StatusStyle().Render() returned empty string")
	}
}
