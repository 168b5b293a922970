package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/fleet/internal/tui"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of a running server",
	Long: `Open a live dashboard that polls a running fleet server.

Keys: r refresh, f cycle the status filter, q quit.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", tui.DefaultRefreshInterval, "polling interval")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	p := tea.NewProgram(
		tui.NewDashboard(apiClient(), watchInterval),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
