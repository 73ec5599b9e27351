package agent

import (
	"context"
	"fmt"

	"github.com/Danish137/cerina-protocol-foundry/internal/generator"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// SafetyGuardian scores the current draft's safety dimension. When the score
// falls below the configured threshold it leaves a warning note addressed to
// the Drafter so the next revision pass can act on it.
type SafetyGuardian struct {
	gen       generator.Generator
	threshold float64
}

// NewSafetyGuardian creates the safety review executor.
func NewSafetyGuardian(gen generator.Generator, threshold float64) *SafetyGuardian {
	return &SafetyGuardian{gen: gen, threshold: threshold}
}

// Name implements Executor.
func (g *SafetyGuardian) Name() blackboard.AgentName {
	return blackboard.AgentSafetyGuardian
}

// Execute implements Executor.
func (g *SafetyGuardian) Execute(ctx context.Context, snapshot *blackboard.Session) (*StateDelta, error) {
	if snapshot.CurrentDraft == "" {
		return nil, fmt.Errorf("safety review requires a draft")
	}

	resp, err := g.gen.Generate(ctx, &generator.Request{
		Agent:       blackboard.AgentSafetyGuardian,
		Instruction: safetyInstruction,
		Input:       snapshot.CurrentDraft,
	})
	if err != nil {
		return nil, fmt.Errorf("safety review generation failed: %w", err)
	}

	score, ok := resp.Scores[blackboard.ScoreSafety]
	if !ok {
		return nil, fmt.Errorf("safety review returned no safety score")
	}
	if score < 0.0 || score > 1.0 {
		return nil, fmt.Errorf("safety review returned out-of-range score %v", score)
	}

	delta := &StateDelta{
		Scores: map[blackboard.ScoreName]float64{blackboard.ScoreSafety: score},
	}

	if score < g.threshold {
		text := fmt.Sprintf("Safety score %.2f below threshold %.2f", score, g.threshold)
		if resp.Text != "" {
			text = fmt.Sprintf("%s: %s", text, resp.Text)
		}
		delta.Notes = append(delta.Notes,
			note(blackboard.AgentSafetyGuardian, blackboard.AgentDrafter, blackboard.PriorityWarning, text))
	} else {
		text := fmt.Sprintf("Safety review passed with score %.2f", score)
		delta.Notes = append(delta.Notes,
			note(blackboard.AgentSafetyGuardian, "", blackboard.PriorityInfo, text))
	}

	return delta, nil
}
