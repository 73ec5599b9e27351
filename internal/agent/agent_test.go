package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danish137/cerina-protocol-foundry/internal/generator"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

func makeSnapshot() *blackboard.Session {
	now := time.Now().UnixMilli()
	return &blackboard.Session{
		ID:            uuid.New().String(),
		Intent:        "An exercise for social anxiety",
		Status:        blackboard.StatusRunning,
		Phase:         blackboard.PhaseDrafting,
		MaxIterations: 5,
		DraftHistory:  []blackboard.DraftVersion{},
		Scores:        map[blackboard.ScoreName]float64{},
		Notes:         []blackboard.AgentNote{},
		CreatedAtMs:   now,
		UpdatedAtMs:   now,
	}
}

func TestDrafterFirstPass(t *testing.T) {
	gen := generator.NewScriptedGenerator().
		Expect(&generator.Response{Text: "# Exercise\n\nBreathe."}, nil)

	d := NewDrafter(gen)
	assert.Equal(t, blackboard.AgentDrafter, d.Name())

	delta, err := d.Execute(context.Background(), makeSnapshot())
	require.NoError(t, err)

	require.NotNil(t, delta.Draft)
	assert.Equal(t, "# Exercise\n\nBreathe.", *delta.Draft)
	require.Len(t, delta.Notes, 1)
	assert.Equal(t, blackboard.AgentDrafter, delta.Notes[0].Author)
	assert.Equal(t, blackboard.PriorityInfo, delta.Notes[0].Priority)
	assert.Contains(t, delta.Notes[0].Text, "Drafted version 1")

	// First pass input carries the intent only
	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Input, "An exercise for social anxiety")
	assert.NotContains(t, calls[0].Input, "Previous draft")
}

func TestDrafterRevisionCarriesFeedback(t *testing.T) {
	gen := generator.NewScriptedGenerator().
		Expect(&generator.Response{Text: "revised draft"}, nil)

	s := makeSnapshot()
	s.CurrentDraft = "first draft"
	s.DraftHistory = []blackboard.DraftVersion{
		{Content: "first draft", Author: blackboard.AgentDrafter, Version: 1, CreatedAtMs: 100},
	}
	s.Notes = []blackboard.AgentNote{
		// Older than the draft: not feedback
		{Author: blackboard.AgentSupervisor, Target: blackboard.AgentDrafter, Priority: blackboard.PriorityWarning, Text: "stale note", CreatedAtMs: 50},
		// Info notes are never feedback
		{Author: blackboard.AgentSafetyGuardian, Priority: blackboard.PriorityInfo, Text: "looks fine", CreatedAtMs: 150},
		// Addressed elsewhere: not for the drafter
		{Author: blackboard.AgentSupervisor, Target: blackboard.AgentSupervisor, Priority: blackboard.PriorityWarning, Text: "internal", CreatedAtMs: 150},
		// Actual feedback
		{Author: blackboard.AgentSafetyGuardian, Target: blackboard.AgentDrafter, Priority: blackboard.PriorityWarning, Text: "add crisis guidance", CreatedAtMs: 150},
	}

	delta, err := NewDrafter(gen).Execute(context.Background(), s)
	require.NoError(t, err)

	assert.Contains(t, delta.Notes[0].Text, "addressing 1 feedback note(s)")

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Input, "Previous draft:\nfirst draft")
	assert.Contains(t, calls[0].Input, "add crisis guidance")
	assert.NotContains(t, calls[0].Input, "stale note")
	assert.NotContains(t, calls[0].Input, "looks fine")
	assert.NotContains(t, calls[0].Input, "internal")
}

func TestDrafterErrors(t *testing.T) {
	t.Run("generator failure", func(t *testing.T) {
		gen := generator.NewScriptedGenerator().
			Expect(nil, fmt.Errorf("%w: connection refused", generator.ErrUnavailable))

		_, err := NewDrafter(gen).Execute(context.Background(), makeSnapshot())
		require.Error(t, err)
		assert.ErrorIs(t, err, generator.ErrUnavailable)
	})

	t.Run("empty draft", func(t *testing.T) {
		gen := generator.NewScriptedGenerator().
			Expect(&generator.Response{Text: "   \n  "}, nil)

		_, err := NewDrafter(gen).Execute(context.Background(), makeSnapshot())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty draft")
	})
}

func TestDrafterDoesNotMutateSnapshot(t *testing.T) {
	gen := generator.NewScriptedGenerator().
		Expect(&generator.Response{Text: "new draft"}, nil)

	s := makeSnapshot()
	s.CurrentDraft = "old draft"

	_, err := NewDrafter(gen).Execute(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, "old draft", s.CurrentDraft)
	assert.Empty(t, s.Notes)
	assert.Empty(t, s.DraftHistory)
}

func TestSafetyGuardian(t *testing.T) {
	snapshotWithDraft := func() *blackboard.Session {
		s := makeSnapshot()
		s.CurrentDraft = "# Exercise"
		return s
	}

	t.Run("passing score leaves info note", func(t *testing.T) {
		gen := generator.NewScriptedGenerator().Expect(&generator.Response{
			Text:   "Safe.",
			Scores: map[blackboard.ScoreName]float64{blackboard.ScoreSafety: 0.92},
		}, nil)

		delta, err := NewSafetyGuardian(gen, 0.8).Execute(context.Background(), snapshotWithDraft())
		require.NoError(t, err)

		assert.Equal(t, 0.92, delta.Scores[blackboard.ScoreSafety])
		require.Len(t, delta.Notes, 1)
		assert.Equal(t, blackboard.PriorityInfo, delta.Notes[0].Priority)
		assert.Empty(t, delta.Notes[0].Target)
	})

	t.Run("low score leaves warning addressed to drafter", func(t *testing.T) {
		gen := generator.NewScriptedGenerator().Expect(&generator.Response{
			Text:   "Missing crisis guidance.",
			Scores: map[blackboard.ScoreName]float64{blackboard.ScoreSafety: 0.55},
		}, nil)

		delta, err := NewSafetyGuardian(gen, 0.8).Execute(context.Background(), snapshotWithDraft())
		require.NoError(t, err)

		assert.Equal(t, 0.55, delta.Scores[blackboard.ScoreSafety])
		require.Len(t, delta.Notes, 1)
		assert.Equal(t, blackboard.PriorityWarning, delta.Notes[0].Priority)
		assert.Equal(t, blackboard.AgentDrafter, delta.Notes[0].Target)
		assert.Contains(t, delta.Notes[0].Text, "Missing crisis guidance")
	})

	t.Run("missing score is an error", func(t *testing.T) {
		gen := generator.NewScriptedGenerator().Expect(&generator.Response{Text: "no score"}, nil)

		_, err := NewSafetyGuardian(gen, 0.8).Execute(context.Background(), snapshotWithDraft())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no safety score")
	})

	t.Run("out-of-range score is an error", func(t *testing.T) {
		gen := generator.NewScriptedGenerator().Expect(&generator.Response{
			Scores: map[blackboard.ScoreName]float64{blackboard.ScoreSafety: 1.4},
		}, nil)

		_, err := NewSafetyGuardian(gen, 0.8).Execute(context.Background(), snapshotWithDraft())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out-of-range")
	})

	t.Run("requires a draft", func(t *testing.T) {
		gen := generator.NewScriptedGenerator()
		_, err := NewSafetyGuardian(gen, 0.8).Execute(context.Background(), makeSnapshot())
		require.Error(t, err)
		assert.Empty(t, gen.Calls())
	})
}

func TestClinicalCritic(t *testing.T) {
	snapshotWithDraft := func() *blackboard.Session {
		s := makeSnapshot()
		s.CurrentDraft = "# Exercise"
		return s
	}

	t.Run("both passing leaves single info note", func(t *testing.T) {
		gen := generator.NewScriptedGenerator().Expect(&generator.Response{
			Scores: map[blackboard.ScoreName]float64{
				blackboard.ScoreEmpathy:  0.8,
				blackboard.ScoreClinical: 0.75,
			},
		}, nil)

		delta, err := NewClinicalCritic(gen, 0.7, 0.7).Execute(context.Background(), snapshotWithDraft())
		require.NoError(t, err)

		assert.Equal(t, 0.8, delta.Scores[blackboard.ScoreEmpathy])
		assert.Equal(t, 0.75, delta.Scores[blackboard.ScoreClinical])
		require.Len(t, delta.Notes, 1)
		assert.Equal(t, blackboard.PriorityInfo, delta.Notes[0].Priority)
	})

	t.Run("one warning per unmet dimension", func(t *testing.T) {
		gen := generator.NewScriptedGenerator().Expect(&generator.Response{
			Text: "Tone is cold.",
			Scores: map[blackboard.ScoreName]float64{
				blackboard.ScoreEmpathy:  0.5,
				blackboard.ScoreClinical: 0.6,
			},
		}, nil)

		delta, err := NewClinicalCritic(gen, 0.7, 0.7).Execute(context.Background(), snapshotWithDraft())
		require.NoError(t, err)

		require.Len(t, delta.Notes, 2)
		for _, n := range delta.Notes {
			assert.Equal(t, blackboard.PriorityWarning, n.Priority)
			assert.Equal(t, blackboard.AgentDrafter, n.Target)
		}
		assert.Contains(t, delta.Notes[0].Text, "empathy")
		assert.Contains(t, delta.Notes[1].Text, "clinical")
	})

	t.Run("incomplete scores are an error", func(t *testing.T) {
		gen := generator.NewScriptedGenerator().Expect(&generator.Response{
			Scores: map[blackboard.ScoreName]float64{blackboard.ScoreEmpathy: 0.8},
		}, nil)

		_, err := NewClinicalCritic(gen, 0.7, 0.7).Execute(context.Background(), snapshotWithDraft())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "incomplete scores")
	})

	t.Run("requires a draft", func(t *testing.T) {
		gen := generator.NewScriptedGenerator()
		_, err := NewClinicalCritic(gen, 0.7, 0.7).Execute(context.Background(), makeSnapshot())
		require.Error(t, err)
		assert.Empty(t, gen.Calls())
	})
}
