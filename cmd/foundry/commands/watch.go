package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Danish137/cerina-protocol-foundry/internal/printer"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Stream a session's workflow events live",
	Long: `Stream a session's workflow events live over the server's SSE endpoint.

The first event carries the current state, so attaching mid-workflow (or to
a finished session) is always consistent. New agent notes, draft versions,
and phase transitions are printed as they happen. The stream ends when the
session completes or on Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client := newAPIClient()
	return streamSession(ctx, client, args[0])
}

// streamSession consumes the SSE stream and renders each event incrementally.
// Shared by 'watch' and 'create --watch'.
func streamSession(ctx context.Context, client *apiClient, id string) error {
	body, err := client.stream(ctx, id)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return printer.Error(
				fmt.Sprintf("session '%s' not found", id),
				"No session with that ID exists on this server.",
				[]string{"List sessions:\n  foundry list"},
			)
		}
		return err
	}
	defer body.Close()

	printer.Info("Watching session %s (Ctrl+C to stop)\n\n", id)

	// Notes and draft versions are append-only, so rendered counts are all
	// the cursor we need to print only what's new.
	var notesSeen, draftsSeen int
	var lastPhase blackboard.Phase

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		// The event kind travels inside the JSON payload too, so only the
		// data lines need parsing.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event blackboard.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			printer.Warning("skipping malformed event: %v\n", err)
			continue
		}

		if done := renderEvent(&event, &notesSeen, &draftsSeen, &lastPhase); done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stream closed unexpectedly: %w", err)
	}
	return nil
}

// renderEvent prints the new notes and drafts an event's snapshot carries and
// reports whether the stream is finished.
func renderEvent(event *blackboard.Event, notesSeen, draftsSeen *int, lastPhase *blackboard.Phase) bool {
	s := event.Session
	if s == nil {
		return false
	}

	if s.Phase != *lastPhase {
		printer.Step("phase: %s (iteration %d/%d)\n", s.Phase, s.IterationCount, s.MaxIterations)
		*lastPhase = s.Phase
	}

	for i := *notesSeen; i < len(s.Notes); i++ {
		renderNote(&s.Notes[i])
	}
	*notesSeen = len(s.Notes)

	if len(s.DraftHistory) > *draftsSeen {
		latest := s.DraftHistory[len(s.DraftHistory)-1]
		printer.Info("\n--- Draft v%d (%s) ---\n%s\n\n", latest.Version, latest.Author, latest.Content)
		*draftsSeen = len(s.DraftHistory)
	}

	if len(s.Scores) > 0 && event.Kind != blackboard.EventStateUpdate {
		printer.Info("scores: %s\n", formatScores(s.Scores))
	}

	switch event.Kind {
	case blackboard.EventHalted:
		printer.Warning("session suspended for human review\n")
		printer.Info("\nNext steps:\n")
		printer.Info("  • Review the draft: foundry state %s\n", s.ID)
		printer.Info("  • Approve it:       foundry approve %s\n", s.ID)
		return false

	case blackboard.EventComplete:
		if s.Status == blackboard.StatusFailed {
			printer.Warning("session failed: %s\n", s.FailureCause)
		} else {
			printer.Success("session completed\n")
		}
		return true
	}

	return false
}
