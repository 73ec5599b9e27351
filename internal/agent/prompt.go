package agent

import (
	"fmt"
	"strings"

	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// Prompt construction for the three executors. Instructions are system-level
// guidance for the generator; inputs carry the session-specific material.

const drafterInstruction = `You are the Drafter, a CBT protocol writer. Write a complete,
self-contained cognitive behavioral therapy exercise for the stated request.
Use warm, validating language, numbered steps, and always include guidance
for readers in crisis. When feedback is provided, revise the previous draft
to address every point.`

const safetyInstruction = `You are the SafetyGuardian, a clinical safety reviewer. Assess the
exercise below for risk: missing crisis escalation guidance, advice that
could harm a vulnerable reader, or overreach beyond self-help. Reply with a
short assessment, then end with a single-line JSON object containing your
score, for example {"safety": 0.85}.`

const clinicalInstruction = `You are the ClinicalCritic, a CBT quality reviewer. Assess the exercise
below for empathic tone and clinical soundness of its cognitive
restructuring steps. Reply with a short assessment, then end with a
single-line JSON object containing both scores, for example
{"empathy": 0.8, "clinical": 0.75}.`

// BuildDrafterInput assembles the drafter's input: the user intent, plus the
// previous draft and outstanding feedback when revising.
func BuildDrafterInput(s *blackboard.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Request: %s\n", s.Intent)

	if s.CurrentDraft == "" {
		return b.String()
	}

	b.WriteString("\nPrevious draft:\n")
	b.WriteString(s.CurrentDraft)
	b.WriteString("\n")

	feedback := FeedbackNotes(s)
	if len(feedback) > 0 {
		b.WriteString("\nFeedback:\n")
		for _, n := range feedback {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", n.Priority, n.Author, n.Text)
		}
	}

	return b.String()
}

// FeedbackNotes returns the warning and critical notes addressed to the
// Drafter that postdate the latest draft version. These are the unmet-score
// notes the supervisor carries forward into the next drafting pass.
func FeedbackNotes(s *blackboard.Session) []blackboard.AgentNote {
	var since int64
	if n := len(s.DraftHistory); n > 0 {
		since = s.DraftHistory[n-1].CreatedAtMs
	}

	var feedback []blackboard.AgentNote
	for _, n := range s.Notes {
		if n.CreatedAtMs < since {
			continue
		}
		if n.Priority == blackboard.PriorityInfo {
			continue
		}
		if n.Target != "" && n.Target != blackboard.AgentDrafter {
			continue
		}
		feedback = append(feedback, n)
	}
	return feedback
}
