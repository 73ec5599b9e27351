package blackboard

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestSession builds a minimal valid session for tests
func makeTestSession() *Session {
	now := time.Now().UnixMilli()
	return &Session{
		ID:            uuid.New().String(),
		Intent:        "An exercise for intrusive thoughts",
		Status:        StatusRunning,
		Phase:         PhaseDrafting,
		MaxIterations: 5,
		DraftHistory:  []DraftVersion{},
		Scores:        map[ScoreName]float64{},
		Notes:         []AgentNote{},
		CreatedAtMs:   now,
		UpdatedAtMs:   now,
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusAwaitingApproval.Terminal())
	assert.False(t, StatusHalted.Terminal())
}

func TestStatusValidate(t *testing.T) {
	valid := []Status{StatusRunning, StatusAwaitingApproval, StatusHalted, StatusCompleted, StatusFailed}
	for _, s := range valid {
		assert.NoError(t, s.Validate(), "status %q should be valid", s)
	}

	assert.Error(t, Status("paused").Validate())
	assert.Error(t, Status("").Validate())
}

func TestPhaseValidate(t *testing.T) {
	valid := []Phase{
		PhaseDrafting, PhaseReviewing, PhaseCritiquing, PhaseDeciding,
		PhaseRevising, PhaseAwaitingApproval, PhaseFinalizing,
	}
	for _, p := range valid {
		assert.NoError(t, p.Validate(), "phase %q should be valid", p)
	}

	assert.Error(t, Phase("dreaming").Validate())
}

func TestAgentNameValidate(t *testing.T) {
	t.Run("well-known names are known", func(t *testing.T) {
		assert.True(t, AgentDrafter.Known())
		assert.True(t, AgentSupervisor.Known())
		assert.True(t, AgentSystem.Known())
	})

	t.Run("custom step names are valid but not known", func(t *testing.T) {
		custom := AgentName("ToneChecker")
		assert.NoError(t, custom.Validate())
		assert.False(t, custom.Known())
	})

	t.Run("empty name is invalid", func(t *testing.T) {
		assert.Error(t, AgentName("").Validate())
	})
}

func TestAgentNoteValidate(t *testing.T) {
	note := AgentNote{
		Author:      AgentSafetyGuardian,
		Target:      AgentDrafter,
		Priority:    PriorityWarning,
		Text:        "Safety score below threshold",
		CreatedAtMs: time.Now().UnixMilli(),
	}
	assert.NoError(t, note.Validate())

	t.Run("rejects empty text", func(t *testing.T) {
		bad := note
		bad.Text = ""
		assert.Error(t, bad.Validate())
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		bad := note
		bad.Priority = "urgent"
		assert.Error(t, bad.Validate())
	})
}

func TestSessionValidate(t *testing.T) {
	t.Run("valid session", func(t *testing.T) {
		assert.NoError(t, makeTestSession().Validate())
	})

	t.Run("rejects non-UUID ID", func(t *testing.T) {
		s := makeTestSession()
		s.ID = "not-a-uuid"
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid session ID")
	})

	t.Run("rejects empty intent", func(t *testing.T) {
		s := makeTestSession()
		s.Intent = ""
		assert.Error(t, s.Validate())
	})

	t.Run("rejects negative iteration count", func(t *testing.T) {
		s := makeTestSession()
		s.IterationCount = -1
		assert.Error(t, s.Validate())
	})

	t.Run("rejects max iterations below one", func(t *testing.T) {
		s := makeTestSession()
		s.MaxIterations = 0
		assert.Error(t, s.Validate())
	})

	t.Run("rejects out-of-range score", func(t *testing.T) {
		s := makeTestSession()
		s.Scores[ScoreSafety] = 1.5
		assert.Error(t, s.Validate())
	})

	t.Run("rejects invalid note", func(t *testing.T) {
		s := makeTestSession()
		s.Notes = append(s.Notes, AgentNote{Author: AgentDrafter, Priority: PriorityInfo, Text: ""})
		assert.Error(t, s.Validate())
	})
}

func TestSessionClone(t *testing.T) {
	s := makeTestSession()
	s.CurrentDraft = "original draft"
	s.DraftHistory = []DraftVersion{{Content: "original draft", Author: AgentDrafter, Version: 1}}
	s.Scores[ScoreSafety] = 0.9
	s.Notes = []AgentNote{{Author: AgentDrafter, Priority: PriorityInfo, Text: "Drafted version 1", CreatedAtMs: 1}}

	clone := s.Clone()

	// Clone matches the original
	assert.Equal(t, s.ID, clone.ID)
	assert.Equal(t, s.CurrentDraft, clone.CurrentDraft)
	assert.Equal(t, s.DraftHistory, clone.DraftHistory)
	assert.Equal(t, s.Scores, clone.Scores)
	assert.Equal(t, s.Notes, clone.Notes)

	// Mutating the clone must not leak into the original
	clone.CurrentDraft = "mutated"
	clone.DraftHistory[0].Content = "mutated"
	clone.Scores[ScoreSafety] = 0.1
	clone.Notes[0].Text = "mutated"
	clone.Notes = append(clone.Notes, AgentNote{Author: AgentSystem, Priority: PriorityInfo, Text: "extra"})

	assert.Equal(t, "original draft", s.CurrentDraft)
	assert.Equal(t, "original draft", s.DraftHistory[0].Content)
	assert.Equal(t, 0.9, s.Scores[ScoreSafety])
	assert.Equal(t, "Drafted version 1", s.Notes[0].Text)
	assert.Len(t, s.Notes, 1)
}

func TestEventValidate(t *testing.T) {
	s := makeTestSession()

	t.Run("valid event", func(t *testing.T) {
		event := &Event{
			Kind:        EventStateUpdate,
			SessionID:   s.ID,
			Session:     s,
			TimestampMs: time.Now().UnixMilli(),
		}
		assert.NoError(t, event.Validate())
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		event := &Event{Kind: "progress", SessionID: s.ID, Session: s}
		assert.Error(t, event.Validate())
	})

	t.Run("rejects missing snapshot", func(t *testing.T) {
		event := &Event{Kind: EventHalted, SessionID: s.ID}
		assert.Error(t, event.Validate())
	})
}
