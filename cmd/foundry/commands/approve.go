package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/Danish137/cerina-protocol-foundry/internal/printer"
)

var (
	approveContent string
	approveFile    string
)

var approveCmd = &cobra.Command{
	Use:   "approve <session-id>",
	Short: "Approve a session awaiting human review",
	Long: `Approve a session that is suspended at the human review gate.

Approval finalizes the session: the workflow records the decision, marks
the session completed, and closes its event stream. Optionally the draft
can be edited on the way through - pass the edited protocol with --content
or --file and the edit is recorded as a new draft version authored by you.

Examples:
  # Approve the draft as-is
  foundry approve 4f1c...

  # Approve with inline edits
  foundry approve 4f1c... --content "## Revised protocol..."

  # Approve with edits from a file
  foundry approve 4f1c... --file protocol.md`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

func init() {
	approveCmd.Flags().StringVarP(&approveContent, "content", "c", "", "Edited protocol content to approve instead of the current draft")
	approveCmd.Flags().StringVarP(&approveFile, "file", "f", "", "Read edited protocol content from a file")
	approveCmd.MarkFlagsMutuallyExclusive("content", "file")
	rootCmd.AddCommand(approveCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client := newAPIClient()

	content := approveContent
	if approveFile != "" {
		data, err := os.ReadFile(approveFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", approveFile, err)
		}
		content = string(data)
	}

	session, err := client.approve(ctx, args[0], content)
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
					"session is not awaiting approval",
					apiErr.Message,
					[]string{
						fmt.Sprintf("Check where the workflow is:\n  foundry state %s", args[0]),
						fmt.Sprintf("Or force the review gate:\n  foundry halt %s", args[0]),
					},
				)
			}
		}
		return err
	}

	printer.Success("Session approved and finalized: %s\n", session.ID)
	if session.HumanEdits != "" {
		printer.Info("Your edits were recorded as the final draft version.\n")
	}
	printer.Info("\nFinal protocol:\n\n%s\n", session.CurrentDraft)

	return nil
}
