package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/fleet/internal/agent"
	"github.com/Iron-Ham/fleet/internal/tui"
	"github.com/Iron-Ham/fleet/internal/tui/styles"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List and manage agents on a running server",
	Long: `List and manage agents on a running fleet server.

Without a subcommand, lists agents. Use --status to filter
(e.g. --status running,failed) and --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runAgentsList,
}

var agentsCreateCmd = &cobra.Command{
	Use:   "create <agent-type>",
	Short: "Register a new agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsCreate,
}

var agentsStartCmd = &cobra.Command{
	Use:   "start <agent-id>",
	Short: "Start a task on an idle agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsStart,
}

var agentsStopCmd = &cobra.Command{
	Use:   "stop <agent-id>",
	Short: "Cancel an agent's running task",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsStop,
}

var agentsRemoveCmd = &cobra.Command{
	Use:     "remove <agent-id>",
	Aliases: []string{"rm"},
	Short:   "Unregister an agent, cancelling its task",
	Args:    cobra.ExactArgs(1),
	RunE:    runAgentsRemove,
}

var agentsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reset finished agents to idle",
	Args:  cobra.NoArgs,
	RunE:  runAgentsCleanup,
}

var (
	agentsStatus   string
	agentsJSON     bool
	createMetadata string
	startData      string
)

func init() {
	agentsCmd.Flags().StringVar(&agentsStatus, "status", "", "comma-separated statuses to show")
	agentsCmd.Flags().BoolVar(&agentsJSON, "json", false, "print agents as JSON")
	agentsCreateCmd.Flags().StringVar(&createMetadata, "metadata", "", "agent metadata as a JSON object")
	agentsStartCmd.Flags().StringVar(&startData, "data", "", "task data as a JSON object")

	agentsCmd.AddCommand(agentsCreateCmd)
	agentsCmd.AddCommand(agentsStartCmd)
	agentsCmd.AddCommand(agentsStopCmd)
	agentsCmd.AddCommand(agentsRemoveCmd)
	agentsCmd.AddCommand(agentsCleanupCmd)
}

// parseStatuses splits a comma-separated --status value.
func parseStatuses(raw string) ([]agent.Status, error) {
	var out []agent.Status
	for name := range strings.SplitSeq(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s, err := agent.ParseStatus(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// parseObject decodes a JSON object flag. Empty means nil.
func parseObject(flag, raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("--%s must be a JSON object: %w", flag, err)
	}
	return m, nil
}

func runAgentsList(cmd *cobra.Command, _ []string) error {
	statuses, err := parseStatuses(agentsStatus)
	if err != nil {
		return err
	}

	agents, err := apiClient().ListAgents(cmd.Context(), statuses...)
	if err != nil {
		return err
	}
	return printAgents(cmd.OutOrStdout(), agents, agentsJSON, time.Now())
}

func printAgents(w io.Writer, agents []agent.Record, asJSON bool, now time.Time) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if agents == nil {
			agents = []agent.Record{}
		}
		return enc.Encode(agents)
	}

	if len(agents) == 0 {
		_, err := fmt.Fprintln(w, styles.Muted.Render("No agents."))
		return err
	}
	_, err := fmt.Fprintln(w, tui.AgentTable(agents, now))
	return err
}

func runAgentsCreate(cmd *cobra.Command, args []string) error {
	md, err := parseObject("metadata", createMetadata)
	if err != nil {
		return err
	}
	id, err := apiClient().Register(cmd.Context(), args[0], md)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runAgentsStart(cmd *cobra.Command, args []string) error {
	data, err := parseObject("data", startData)
	if err != nil {
		return err
	}
	resp, err := apiClient().StartTask(cmd.Context(), args[0], data)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s at %s\n",
		styles.SuccessMsg.Render("started"), resp.AgentID, resp.StartedAt.Format(time.RFC3339))
	return nil
}

func runAgentsStop(cmd *cobra.Command, args []string) error {
	if err := apiClient().StopTask(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styles.Warning.Render("cancelled"), args[0])
	return nil
}

func runAgentsRemove(cmd *cobra.Command, args []string) error {
	if err := apiClient().Unregister(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
	return nil
}

func runAgentsCleanup(cmd *cobra.Command, _ []string) error {
	n, err := apiClient().Cleanup(cmd.Context())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reset %d agent(s) to idle\n", n)
	return nil
}
