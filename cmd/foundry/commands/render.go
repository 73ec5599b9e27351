package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/Danish137/cerina-protocol-foundry/internal/printer"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// renderSession prints a human-readable summary of a session snapshot.
func renderSession(s *blackboard.Session) {
	printer.Printf("Session:    %s\n", s.ID)
	printer.Printf("Intent:     %s\n", s.Intent)
	printer.Printf("Status:     %s", s.Status)
	if s.Halted && s.Status == blackboard.StatusAwaitingApproval {
		printer.Printf(" (halted)")
	}
	printer.Printf("\n")
	printer.Printf("Phase:      %s\n", s.Phase)
	printer.Printf("Iteration:  %d/%d\n", s.IterationCount, s.MaxIterations)

	if len(s.Scores) > 0 {
		printer.Printf("Scores:     %s\n", formatScores(s.Scores))
	}

	if s.FailureCause != "" {
		printer.Printf("Failure:    %s\n", s.FailureCause)
	}

	printer.Printf("Updated:    %s\n", formatTimestamp(s.UpdatedAtMs))

	if s.CurrentDraft != "" {
		printer.Printf("\n--- Current draft (v%d) ---\n%s\n", len(s.DraftHistory), s.CurrentDraft)
	}

	if len(s.Notes) > 0 {
		printer.Printf("\n--- Notes (%d) ---\n", len(s.Notes))
		for i := range s.Notes {
			renderNote(&s.Notes[i])
		}
	}
}

// renderNote prints one agent note, colored by priority.
func renderNote(n *blackboard.AgentNote) {
	author := string(n.Author)
	if n.Target != "" {
		author = fmt.Sprintf("%s → %s", n.Author, n.Target)
	}

	line := fmt.Sprintf("[%s] %s: %s\n", formatTimestamp(n.CreatedAtMs), author, n.Text)
	switch n.Priority {
	case blackboard.PriorityCritical:
		printer.Warning("%s", line)
	case blackboard.PriorityWarning:
		printer.Step("%s", line)
	default:
		printer.Printf("  %s", line)
	}
}

func formatScores(scores map[blackboard.ScoreName]float64) string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, string(name))
	}
	sort.Strings(names)

	out := ""
	for i, name := range names {
		if i > 0 {
			out += "  "
		}
		out += fmt.Sprintf("%s=%.2f", name, scores[blackboard.ScoreName(name)])
	}
	return out
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("15:04:05")
}
