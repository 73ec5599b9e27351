package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Danish137/cerina-protocol-foundry/internal/printer"
)

var (
	createIntent string
	createWatch  bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new protocol authoring session",
	Long: `Create a new protocol authoring session by submitting an intent.

The server drafts, reviews, and refines the protocol in the background.
Every session ends at a human approval gate: once the quality gates pass
(or the revision ceiling is hit), the workflow suspends until you run
'foundry approve'.

Examples:
  # Create a session and return immediately
  foundry create --intent "An exposure hierarchy protocol for social anxiety"

  # Create and follow the workflow live
  foundry create --watch --intent "A sleep hygiene protocol for insomnia"`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createIntent, "intent", "i", "", "What the protocol should address (required)")
	createCmd.Flags().BoolVarP(&createWatch, "watch", "w", false, "Stream workflow events after creating")
	createCmd.MarkFlagRequired("intent")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client := newAPIClient()

	resp, err := client.createSession(ctx, createIntent)
	if err != nil {
		return printer.Error(
			"failed to create session",
			err.Error(),
			[]string{
				"Check the server is running:\n  foundryd",
				"Or point at a different server:\n  foundry create --server http://host:8080 --intent \"...\"",
			},
		)
	}

	printer.Success("Session created: %s\n", resp.SessionID)

	if createWatch {
		printer.Info("\n")
		return streamSession(ctx, client, resp.SessionID)
	}

	printer.Info("\nNext steps:\n")
	printer.Info("  • Follow progress:   foundry watch %s\n", resp.SessionID)
	printer.Info("  • Inspect state:     foundry state %s\n", resp.SessionID)
	printer.Info("  • Approve when done: foundry approve %s\n", resp.SessionID)

	return nil
}
