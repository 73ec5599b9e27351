package agent

import (
	"context"
	"fmt"

	"github.com/Danish137/cerina-protocol-foundry/internal/generator"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// ClinicalCritic scores the current draft's empathy and clinical-quality
// dimensions, leaving warning notes for the Drafter on any dimension below
// its threshold.
type ClinicalCritic struct {
	gen               generator.Generator
	empathyThreshold  float64
	clinicalThreshold float64
}

// NewClinicalCritic creates the clinical critique executor.
func NewClinicalCritic(gen generator.Generator, empathyThreshold, clinicalThreshold float64) *ClinicalCritic {
	return &ClinicalCritic{
		gen:               gen,
		empathyThreshold:  empathyThreshold,
		clinicalThreshold: clinicalThreshold,
	}
}

// Name implements Executor.
func (c *ClinicalCritic) Name() blackboard.AgentName {
	return blackboard.AgentClinicalCritic
}

// Execute implements Executor.
func (c *ClinicalCritic) Execute(ctx context.Context, snapshot *blackboard.Session) (*StateDelta, error) {
	if snapshot.CurrentDraft == "" {
		return nil, fmt.Errorf("clinical critique requires a draft")
	}

	resp, err := c.gen.Generate(ctx, &generator.Request{
		Agent:       blackboard.AgentClinicalCritic,
		Instruction: clinicalInstruction,
		Input:       snapshot.CurrentDraft,
	})
	if err != nil {
		return nil, fmt.Errorf("clinical critique generation failed: %w", err)
	}

	empathy, hasEmpathy := resp.Scores[blackboard.ScoreEmpathy]
	clinical, hasClinical := resp.Scores[blackboard.ScoreClinical]
	if !hasEmpathy || !hasClinical {
		return nil, fmt.Errorf("clinical critique returned incomplete scores (empathy=%v, clinical=%v)", hasEmpathy, hasClinical)
	}
	for name, score := range resp.Scores {
		if score < 0.0 || score > 1.0 {
			return nil, fmt.Errorf("clinical critique returned out-of-range %s score %v", name, score)
		}
	}

	delta := &StateDelta{
		Scores: map[blackboard.ScoreName]float64{
			blackboard.ScoreEmpathy:  empathy,
			blackboard.ScoreClinical: clinical,
		},
	}

	addWarning := func(name blackboard.ScoreName, score, threshold float64) {
		text := fmt.Sprintf("%s score %.2f below threshold %.2f", name, score, threshold)
		if resp.Text != "" {
			text = fmt.Sprintf("%s: %s", text, resp.Text)
		}
		delta.Notes = append(delta.Notes,
			note(blackboard.AgentClinicalCritic, blackboard.AgentDrafter, blackboard.PriorityWarning, text))
	}

	if empathy < c.empathyThreshold {
		addWarning(blackboard.ScoreEmpathy, empathy, c.empathyThreshold)
	}
	if clinical < c.clinicalThreshold {
		addWarning(blackboard.ScoreClinical, clinical, c.clinicalThreshold)
	}

	if len(delta.Notes) == 0 {
		text := fmt.Sprintf("Clinical critique passed (empathy %.2f, clinical %.2f)", empathy, clinical)
		delta.Notes = append(delta.Notes,
			note(blackboard.AgentClinicalCritic, "", blackboard.PriorityInfo, text))
	}

	return delta, nil
}
