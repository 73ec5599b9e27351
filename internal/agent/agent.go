// Package agent implements the step executors of the drafting workflow:
// Drafter, SafetyGuardian, and ClinicalCritic. Each executor is a pure
// function of a session snapshot plus its generator backend - it never
// mutates the snapshot, and communicates results exclusively through a
// StateDelta the engine applies.
package agent

import (
	"context"
	"time"

	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// StateDelta is the partial state update one executor produces.
type StateDelta struct {
	Draft  *string                          // Replacement draft, nil when unchanged
	Scores map[blackboard.ScoreName]float64 // Score assignments for this step's dimensions
	Notes  []blackboard.AgentNote           // New blackboard notes attributed to the step
}

// Executor is the single capability all steps are polymorphic over:
// consume a session snapshot, produce a partial state update.
type Executor interface {
	// Name returns the step's blackboard identity.
	Name() blackboard.AgentName

	// Execute produces a StateDelta from the snapshot. On internal failure
	// (unreachable generator, malformed output) it returns an error carrying
	// a human-readable cause; the engine preserves the last-good state.
	Execute(ctx context.Context, snapshot *blackboard.Session) (*StateDelta, error)
}

// note builds a timestamped AgentNote.
func note(author, target blackboard.AgentName, priority blackboard.Priority, text string) blackboard.AgentNote {
	return blackboard.AgentNote{
		Author:      author,
		Target:      target,
		Priority:    priority,
		Text:        text,
		CreatedAtMs: time.Now().UnixMilli(),
	}
}
