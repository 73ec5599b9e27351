package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Danish137/cerina-protocol-foundry/internal/printer"
)

var stateJSON bool

var stateCmd = &cobra.Command{
	Use:   "state <session-id>",
	Short: "Show the full state of a session",
	Long: `Show the full state of a session: status, phase, iteration count,
scores, the current draft, and the complete agent note log.

Use --json for machine-readable output.`,
	Args: cobra.ExactArgs(1),
	RunE: runState,
}

func init() {
	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client := newAPIClient()

	session, err := client.getSession(ctx, args[0])
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return printer.Error(
				fmt.Sprintf("session '%s' not found", args[0]),
				"No session with that ID exists on this server.",
				[]string{"List sessions:\n  foundry list"},
			)
		}
		return err
	}

	if stateJSON {
		data, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			return err
		}
		printer.Println(string(data))
		return nil
	}

	renderSession(session)
	return nil
}
