// Package styles holds the lipgloss palette shared by the CLI tables and the
// watch dashboard.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/fleet/internal/agent"
)

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Agent status colors
	StatusIdle      = lipgloss.Color("#9CA3AF") // Gray
	StatusRunning   = lipgloss.Color("#10B981") // Green
	StatusPaused    = lipgloss.Color("#60A5FA") // Blue
	StatusCompleted = lipgloss.Color("#A78BFA") // Purple
	StatusFailed    = lipgloss.Color("#F87171") // Red
	StatusCancelled = lipgloss.Color("#FB923C") // Orange

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	// Header
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor).
		MarginBottom(1).
		PaddingBottom(1)

	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			Padding(0, 1)

	TableCell = lipgloss.NewStyle().
			Padding(0, 1)

	// Footer / status bar
	StatusBar = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(SurfaceColor).
			Padding(0, 1)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Error message
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// Success message
	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)
)

// StatusColor returns the color for an agent status.
func StatusColor(s agent.Status) lipgloss.Color {
	switch s {
	case agent.StatusRunning:
		return StatusRunning
	case agent.StatusPaused:
		return StatusPaused
	case agent.StatusCompleted:
		return StatusCompleted
	case agent.StatusFailed:
		return StatusFailed
	case agent.StatusCancelled:
		return StatusCancelled
	default:
		return StatusIdle
	}
}

// StatusStyle returns a bold style in the status color.
func StatusStyle(s agent.Status) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(StatusColor(s))
}

// StatusIcon returns a single-glyph marker for an agent status.
func StatusIcon(s agent.Status) string {
	switch s {
	case agent.StatusIdle:
		return "○"
	case agent.StatusRunning:
		return "●"
	case agent.StatusPaused:
		return "⏸"
	case agent.StatusCompleted:
		return "✓"
	case agent.StatusFailed:
		return "✗"
	case agent.StatusCancelled:
		return "⊘"
	default:
		return "?"
	}
}
