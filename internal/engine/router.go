package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// Router is the supervisor's decision logic. It is evaluated in the Deciding
// phase and selects the next phase: another revision loop, the human approval
// gate, or (after approval) finalization.
type Router struct {
	thresholds map[blackboard.ScoreName]float64
}

// NewRouter creates a router with the given score gates. Every threshold
// dimension is required: a draft with a missing score never passes.
func NewRouter(thresholds map[blackboard.ScoreName]float64) *Router {
	return &Router{thresholds: thresholds}
}

// Decision is the outcome of one Deciding evaluation.
type Decision struct {
	Next               blackboard.Phase
	IncrementIteration bool
	Notes              []blackboard.AgentNote
}

// Decide applies the routing rule, in precedence order:
//
//  1. Iteration ceiling reached: force the human checkpoint regardless of
//     scores, with a System note citing the ceiling.
//  2. All required scores present and at threshold: route to approval.
//  3. Otherwise: request a revision, carrying the unmet dimensions forward as
//     feedback for the next drafting pass.
//
// Decide never mutates the session; the engine applies the decision.
func (r *Router) Decide(s *blackboard.Session) Decision {
	now := time.Now().UnixMilli()

	if s.IterationCount >= s.MaxIterations {
		return Decision{
			Next: blackboard.PhaseAwaitingApproval,
			Notes: []blackboard.AgentNote{{
				Author:      blackboard.AgentSystem,
				Priority:    blackboard.PriorityWarning,
				Text:        fmt.Sprintf("Iteration ceiling of %d reached; escalating to human review regardless of scores", s.MaxIterations),
				CreatedAtMs: now,
			}},
		}
	}

	unmet := r.unmetDimensions(s)
	if len(unmet) == 0 {
		return Decision{
			Next: blackboard.PhaseAwaitingApproval,
			Notes: []blackboard.AgentNote{{
				Author:      blackboard.AgentSupervisor,
				Priority:    blackboard.PriorityInfo,
				Text:        "All quality thresholds met; draft is ready for human review",
				CreatedAtMs: now,
			}},
		}
	}

	return Decision{
		Next:               blackboard.PhaseRevising,
		IncrementIteration: true,
		Notes: []blackboard.AgentNote{{
			Author:      blackboard.AgentSupervisor,
			Target:      blackboard.AgentDrafter,
			Priority:    blackboard.PriorityWarning,
			Text:        fmt.Sprintf("Revision requested; unmet dimensions: %s", strings.Join(unmet, ", ")),
			CreatedAtMs: now,
		}},
	}
}

// unmetDimensions returns a sorted description of every required dimension
// that is missing or below threshold.
func (r *Router) unmetDimensions(s *blackboard.Session) []string {
	var unmet []string
	for name, threshold := range r.thresholds {
		score, ok := s.Scores[name]
		if !ok {
			unmet = append(unmet, fmt.Sprintf("%s (not yet measured)", name))
			continue
		}
		if score < threshold {
			unmet = append(unmet, fmt.Sprintf("%s (%.2f < %.2f)", name, score, threshold))
		}
	}
	sort.Strings(unmet)
	return unmet
}
