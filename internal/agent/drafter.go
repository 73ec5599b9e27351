package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Danish137/cerina-protocol-foundry/internal/generator"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// Drafter produces and revises the exercise draft. On revision passes it
// folds the reviewers' outstanding feedback notes into its input.
type Drafter struct {
	gen generator.Generator
}

// NewDrafter creates the drafting executor.
func NewDrafter(gen generator.Generator) *Drafter {
	return &Drafter{gen: gen}
}

// Name implements Executor.
func (d *Drafter) Name() blackboard.AgentName {
	return blackboard.AgentDrafter
}

// Execute implements Executor.
func (d *Drafter) Execute(ctx context.Context, snapshot *blackboard.Session) (*StateDelta, error) {
	resp, err := d.gen.Generate(ctx, &generator.Request{
		Agent:       blackboard.AgentDrafter,
		Instruction: drafterInstruction,
		Input:       BuildDrafterInput(snapshot),
	})
	if err != nil {
		return nil, fmt.Errorf("drafter generation failed: %w", err)
	}

	draft := strings.TrimSpace(resp.Text)
	if draft == "" {
		return nil, fmt.Errorf("drafter generation returned an empty draft")
	}

	text := fmt.Sprintf("Drafted version %d", len(snapshot.DraftHistory)+1)
	if feedback := FeedbackNotes(snapshot); len(feedback) > 0 {
		text = fmt.Sprintf("%s addressing %d feedback note(s)", text, len(feedback))
	}

	return &StateDelta{
		Draft: &draft,
		Notes: []blackboard.AgentNote{
			note(blackboard.AgentDrafter, "", blackboard.PriorityInfo, text),
		},
	}, nil
}
