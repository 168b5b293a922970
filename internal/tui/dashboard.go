// Package tui renders fleet state in the terminal: the agent table used by
// the CLI and the live dashboard behind `fleet watch`.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/fleet/internal/agent"
	"github.com/Iron-Ham/fleet/internal/tui/styles"
)

// DefaultRefreshInterval is how often the dashboard polls the server.
const DefaultRefreshInterval = time.Second

// Source provides the dashboard's data. *client.Client satisfies it.
type Source interface {
	ListAgents(ctx context.Context, statuses ...agent.Status) ([]agent.Record, error)
	SystemMetrics(ctx context.Context) (agent.SystemMetrics, error)
}

type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Filter  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Filter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Filter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "cycle status filter")),
}

// filters is the cycle order for the status filter; nil means all agents.
var filters = []*agent.Status{
	nil,
	statusPtr(agent.StatusRunning),
	statusPtr(agent.StatusIdle),
	statusPtr(agent.StatusCompleted),
	statusPtr(agent.StatusFailed),
	statusPtr(agent.StatusCancelled),
}

func statusPtr(s agent.Status) *agent.Status { return &s }

// snapshotMsg carries one successful poll.
type snapshotMsg struct {
	agents  []agent.Record
	metrics agent.SystemMetrics
	at      time.Time
}

// errMsg carries a failed poll.
type errMsg struct{ err error }

// tickMsg schedules the next poll.
type tickMsg time.Time

// Model is the Bubbletea model for the live dashboard.
type Model struct {
	src      Source
	interval time.Duration
	now      func() time.Time

	agents  []agent.Record
	metrics agent.SystemMetrics
	updated time.Time
	err     error

	filter   int
	loading  bool
	quitting bool
	width    int

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewDashboard creates a dashboard polling src every interval.
func NewDashboard(src Source, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.Primary
	return Model{
		src:      src,
		interval: interval,
		now:      time.Now,
		loading:  true,
		spinner:  sp,
		help:     help.New(),
		keys:     defaultKeys,
	}
}

// Init starts the spinner and the first poll.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch())
}

// Update handles key presses, poll results and ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			return m, m.fetch()
		case key.Matches(msg, m.keys.Filter):
			m.filter = (m.filter + 1) % len(filters)
			m.loading = true
			return m, m.fetch()
		}
		return m, nil

	case snapshotMsg:
		m.agents = msg.agents
		m.metrics = msg.metrics
		m.updated = msg.at
		m.err = nil
		m.loading = false
		return m, m.tick()

	case errMsg:
		m.err = msg.err
		m.loading = false
		return m, m.tick()

	case tickMsg:
		return m, m.fetch()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render("Fleet"))
	b.WriteString("\n")

	b.WriteString(SystemSummary(m.metrics))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.ErrorMsg.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	if len(m.agents) == 0 {
		b.WriteString(styles.Muted.Render("No agents."))
		b.WriteString("\n")
	} else {
		b.WriteString(AgentTable(m.agents, m.now()))
		b.WriteString("\n")
	}

	status := "filter: " + m.filterName()
	if !m.updated.IsZero() {
		status += fmt.Sprintf("  updated %s", m.updated.Format("15:04:05"))
	}
	if m.loading {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(styles.StatusBar.Render(status))
	b.WriteString("\n")
	b.WriteString(styles.HelpBar.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) filterName() string {
	if f := filters[m.filter]; f != nil {
		return f.String()
	}
	return "all"
}

func (m Model) fetch() tea.Cmd {
	src, now, interval := m.src, m.now, m.interval
	var statuses []agent.Status
	if f := filters[m.filter]; f != nil {
		statuses = []agent.Status{*f}
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), interval+5*time.Second)
		defer cancel()

		agents, err := src.ListAgents(ctx, statuses...)
		if err != nil {
			return errMsg{err}
		}
		sm, err := src.SystemMetrics(ctx)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg{agents: agents, metrics: sm, at: now()}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
