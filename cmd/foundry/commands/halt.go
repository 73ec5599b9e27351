package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Danish137/cerina-protocol-foundry/internal/printer"
)

var haltCmd = &cobra.Command{
	Use:   "halt <session-id>",
	Short: "Halt a running session for review",
	Long: `Halt a running session at the next step boundary.

The current step is allowed to finish; no further steps start. The session
suspends at the human review gate in whatever state it reached, and can
then be inspected and approved like any other awaiting session. Halting a
session that is already suspended is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runHalt,
}

func init() {
	rootCmd.AddCommand(haltCmd)
}

func runHalt(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client := newAPIClient()

	session, err := client.halt(ctx, args[0])
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusNotFound:
				return printer.Error(
					fmt.Sprintf("session '%s' not found", args[0]),
					"No session with that ID exists on this server.",
					[]string{"List sessions:\n  foundry list"},
				)
			case http.StatusConflict:
				return printer.Error(
					"session already finished",
					apiErr.Message,
					[]string{fmt.Sprintf("Inspect the final state:\n  foundry state %s", args[0])},
				)
			}
		}
		return err
	}

	printer.Success("Session halted: %s\n", session.ID)
	printer.Info("\nNext steps:\n")
	printer.Info("  • Review the draft: foundry state %s\n", session.ID)
	printer.Info("  • Approve it:       foundry approve %s\n", session.ID)

	return nil
}
