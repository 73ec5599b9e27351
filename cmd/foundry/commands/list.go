package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Danish137/cerina-protocol-foundry/internal/printer"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

var (
	listJSON  bool
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Long: `List sessions known to the server, newest first.

For each session, displays:
  • Session ID
  • Status and phase
  • Iteration count
  • Age
  • Intent (truncated)

Use --json for machine-readable output.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of sessions to show")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client := newAPIClient()

	sessions, err := client.listSessions(ctx, listLimit)
	if err != nil {
		return printer.Error(
			"failed to list sessions",
			err.Error(),
			[]string{"Check the server is running:\n  foundryd"},
		)
	}

	if len(sessions) == 0 {
		if listJSON {
			fmt.Println("[]")
		} else {
			fmt.Println("No sessions found.")
			fmt.Println()
			fmt.Println("Run 'foundry create --intent \"...\"' to start one.")
		}
		return nil
	}

	if listJSON {
		data, err := json.MarshalIndent(sessions, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	outputSessionTable(sessions)
	return nil
}

func outputSessionTable(sessions []*blackboard.Session) {
	// Print header
	fmt.Printf("%-36s %-18s %-18s %-5s %-8s %s\n", "SESSION", "STATUS", "PHASE", "ITER", "AGE", "INTENT")

	// Print rows
	for _, s := range sessions {
		intent := s.Intent
		if len(intent) > 40 {
			intent = intent[:37] + "..."
		}

		iter := fmt.Sprintf("%d/%d", s.IterationCount, s.MaxIterations)
		age := formatAge(time.Since(time.UnixMilli(s.CreatedAtMs)))

		fmt.Printf("%-36s %-18s %-18s %-5s %-8s %s\n", s.ID, s.Status, s.Phase, iter, age, intent)
	}
}

func formatAge(d time.Duration) string {
	d = d.Round(time.Second)

	hours := d / time.Hour
	d -= hours * time.Hour

	minutes := d / time.Minute
	d -= minutes * time.Minute

	seconds := d / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
