package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// OfflineGenerator is a deterministic, dependency-free backend. It produces a
// templated CBT exercise draft and heuristic quality scores, which keeps the
// whole workflow runnable without network access or API keys. Scores improve
// when the draft carries the structural elements the heuristics look for, so
// revision loops converge.
type OfflineGenerator struct{}

// NewOfflineGenerator creates the offline backend.
func NewOfflineGenerator() *OfflineGenerator {
	return &OfflineGenerator{}
}

// Generate implements Generator. Behavior is keyed off the requesting agent:
// the drafter receives prose, the reviewers receive scores.
func (g *OfflineGenerator) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch req.Agent {
	case blackboard.AgentDrafter:
		return &Response{Text: g.draft(req.Input)}, nil

	case blackboard.AgentSafetyGuardian:
		score, remarks := g.scoreSafety(req.Input)
		return &Response{
			Text:   remarks,
			Scores: map[blackboard.ScoreName]float64{blackboard.ScoreSafety: score},
		}, nil

	case blackboard.AgentClinicalCritic:
		empathy, clinical, remarks := g.scoreClinical(req.Input)
		return &Response{
			Text: remarks,
			Scores: map[blackboard.ScoreName]float64{
				blackboard.ScoreEmpathy:  empathy,
				blackboard.ScoreClinical: clinical,
			},
		}, nil

	default:
		return nil, fmt.Errorf("offline generator has no behavior for agent %q", req.Agent)
	}
}

func (g *OfflineGenerator) draft(input string) string {
	var b strings.Builder

	b.WriteString("# Guided Exercise\n\n")
	b.WriteString("This exercise was prepared for the following request: ")
	b.WriteString(strings.TrimSpace(firstLine(input)))
	b.WriteString("\n\n")
	b.WriteString("You are not alone in this, and working through it at your own pace is okay.\n\n")
	b.WriteString("## Steps\n\n")
	b.WriteString("1. Find a quiet place and take three slow breaths.\n")
	b.WriteString("2. Write down the thought that is troubling you, exactly as it appears.\n")
	b.WriteString("3. Ask yourself: what evidence supports this thought? What evidence does not?\n")
	b.WriteString("4. Write a kinder, more balanced version of the thought.\n")
	b.WriteString("5. Note one small action you can take in the next day.\n\n")

	// Feedback lines appear below the intent when the drafter is revising;
	// acknowledge them so the revision visibly changes.
	if strings.Contains(input, "Feedback:") {
		b.WriteString("## Revision notes\n\n")
		b.WriteString("This version was revised to address reviewer feedback on tone and safety.\n\n")
	}

	b.WriteString("If you feel unsafe or in crisis, stop this exercise and contact your local emergency number or a crisis line immediately.\n")

	return b.String()
}

func (g *OfflineGenerator) scoreSafety(draft string) (float64, string) {
	score := 0.55
	lower := strings.ToLower(draft)

	if strings.Contains(lower, "crisis") || strings.Contains(lower, "emergency") {
		score += 0.30
	}
	if strings.Contains(lower, "at your own pace") {
		score += 0.10
	}

	if score > 1.0 {
		score = 1.0
	}

	if score < 0.8 {
		return score, "The draft lacks an explicit crisis escalation path; add guidance for readers who feel unsafe."
	}
	return score, "The draft includes appropriate safety guidance."
}

func (g *OfflineGenerator) scoreClinical(draft string) (float64, float64, string) {
	empathy := 0.45
	clinical := 0.45
	lower := strings.ToLower(draft)

	if strings.Contains(lower, "not alone") || strings.Contains(lower, "kinder") {
		empathy += 0.35
	}
	if strings.Contains(lower, "evidence") {
		clinical += 0.30
	}
	if strings.Contains(lower, "## steps") {
		clinical += 0.10
	}

	if empathy > 1.0 {
		empathy = 1.0
	}
	if clinical > 1.0 {
		clinical = 1.0
	}

	remarks := "The exercise structure is sound."
	if empathy < 0.7 {
		remarks = "The tone reads as clinical and detached; add validating language."
	} else if clinical < 0.7 {
		remarks = "The cognitive restructuring steps need a clearer evidence-examination stage."
	}

	return empathy, clinical, remarks
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
