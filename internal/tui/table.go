package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Iron-Ham/fleet/internal/agent"
	"github.com/Iron-Ham/fleet/internal/tui/styles"
)

const statusColumn = 2

// AgentTable renders agents as a bordered table. now is used for the
// "last activity" column.
func AgentTable(agents []agent.Record, now time.Time) string {
	rows := make([][]string, len(agents))
	for i, a := range agents {
		rows[i] = []string{
			a.ID,
			a.Type,
			styles.StatusIcon(a.Status) + " " + a.Status.String(),
			fmt.Sprintf("%d", a.Metrics.TasksCompleted),
			fmt.Sprintf("%d", a.Metrics.TasksFailed),
			fmt.Sprintf("%.2f", a.Metrics.AverageExecutionTime),
			since(a.Metrics.LastActivity, now),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.BorderColor)).
		Headers("AGENT", "TYPE", "STATUS", "DONE", "FAILED", "AVG (s)", "LAST ACTIVITY").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeader
			}
			if col == statusColumn && row >= 0 && row < len(agents) {
				return styles.TableCell.Inherit(styles.StatusStyle(agents[row].Status))
			}
			return styles.TableCell
		})
	return t.String()
}

// SystemSummary renders the fleet-wide metrics on one line.
func SystemSummary(sm agent.SystemMetrics) string {
	return fmt.Sprintf("%s agents  %s running  %s idle  %s completed  %s failed  %s success",
		styles.Text.Render(fmt.Sprintf("%d", sm.TotalAgents)),
		styles.StatusStyle(agent.StatusRunning).Render(fmt.Sprintf("%d", sm.RunningAgents)),
		styles.StatusStyle(agent.StatusIdle).Render(fmt.Sprintf("%d", sm.IdleAgents)),
		styles.StatusStyle(agent.StatusCompleted).Render(fmt.Sprintf("%d", sm.TotalTasksCompleted)),
		styles.StatusStyle(agent.StatusFailed).Render(fmt.Sprintf("%d", sm.TotalTasksFailed)),
		styles.Secondary.Render(fmt.Sprintf("%.0f%%", sm.SuccessRate*100)),
	)
}

func since(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	d := now.Sub(*t)
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
