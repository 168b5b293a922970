package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/fleet/internal/agent"
)

type fakeSource struct {
	mu       sync.Mutex
	agents   []agent.Record
	err      error
	statuses [][]agent.Status
}

func (f *fakeSource) ListAgents(_ context.Context, statuses ...agent.Status) ([]agent.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, statuses)
	if f.err != nil {
		return nil, f.err
	}
	return f.agents, nil
}

func (f *fakeSource) SystemMetrics(context.Context) (agent.SystemMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return agent.Aggregate(f.agents), f.err
}

func testRecords() []agent.Record {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := agent.NewRecord("agent_aaa", "echo", nil, now)
	b := agent.NewRecord("agent_bbb", "sleep", nil, now)
	b.Status = agent.StatusRunning
	c := agent.NewRecord("agent_ccc", "fail", nil, now)
	c.Status = agent.StatusFailed
	c.Metrics.RecordFailure(now)
	return []agent.Record{a, b, c}
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// poll runs the model's pending fetch command and feeds the result back.
func poll(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.fetch()()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestDashboardShowsAgents(t *testing.T) {
	src := &fakeSource{agents: testRecords()}
	m := poll(t, NewDashboard(src, time.Second))

	view := m.View()
	for _, want := range []string{"agent_aaa", "agent_bbb", "agent_ccc", "running", "failed", "filter: all"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
	if m.loading {
		t.Error("loading should be false after a snapshot")
	}
}

func TestDashboardEmpty(t *testing.T) {
	m := poll(t, NewDashboard(&fakeSource{}, 0))
	if !strings.Contains(m.View(), "No agents.") {
		t.Errorf("View() should report no agents:\n%s", m.View())
	}
	if m.interval != DefaultRefreshInterval {
		t.Errorf("interval = %v, want %v", m.interval, DefaultRefreshInterval)
	}
}

func TestDashboardFilterCycles(t *testing.T) {
	src := &fakeSource{agents: testRecords()}
	m := NewDashboard(src, time.Second)

	next, cmd := m.Update(keyPress("f"))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("filter key should trigger a fetch")
	}
	_ = cmd()

	if got := m.filterName(); got != "running" {
		t.Errorf("filterName() = %q, want %q", got, "running")
	}
	src.mu.Lock()
	last := src.statuses[len(src.statuses)-1]
	src.mu.Unlock()
	if len(last) != 1 || last[0] != agent.StatusRunning {
		t.Errorf("ListAgents statuses = %v, want [running]", last)
	}

	for range len(filters) - 1 {
		next, _ = m.Update(keyPress("f"))
		m = next.(Model)
	}
	if got := m.filterName(); got != "all" {
		t.Errorf("filterName() after full cycle = %q, want all", got)
	}
}

func TestDashboardError(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	m := poll(t, NewDashboard(src, time.Second))

	if !strings.Contains(m.View(), "connection refused") {
		t.Errorf("View() should show the error:\n%s", m.View())
	}

	// A later successful poll clears it
	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()
	m = poll(t, m)
	if m.err != nil {
		t.Errorf("err = %v, want nil after successful poll", m.err)
	}
}

func TestDashboardQuit(t *testing.T) {
	m := NewDashboard(&fakeSource{}, time.Second)
	next, cmd := m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("quit key should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key should return tea.Quit")
	}
	if next.(Model).View() != "" {
		t.Error("View() should be empty after quitting")
	}
}

func TestDashboardTickFetches(t *testing.T) {
	src := &fakeSource{agents: testRecords()}
	m := NewDashboard(src, time.Second)

	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick should trigger a fetch")
	}
	if _, ok := cmd().(snapshotMsg); !ok {
		t.Error("fetch should produce a snapshot")
	}
}

func TestAgentTable(t *testing.T) {
	recs := testRecords()
	out := AgentTable(recs, time.Date(2026, 1, 2, 3, 5, 5, 0, time.UTC))

	for _, want := range []string{"AGENT", "STATUS", "agent_aaa", "echo", "idle", "1m ago", "-"} {
		if !strings.Contains(out, want) {
			t.Errorf("AgentTable() missing %q:\n%s", want, out)
		}
	}
}

func TestSince(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	tests := []struct {
		in   *time.Time
		want string
	}{
		{nil, "-"},
		{at(0), "just now"},
		{at(42 * time.Second), "42s ago"},
		{at(5 * time.Minute), "5m ago"},
		{at(3 * time.Hour), "3h ago"},
	}
	for _, tt := range tests {
		if got := since(tt.in, now); got != tt.want {
			t.Errorf("since() = %q, want %q", got, tt.want)
		}
	}
}
