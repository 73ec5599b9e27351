package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

func testThresholds() map[blackboard.ScoreName]float64 {
	return map[blackboard.ScoreName]float64{
		blackboard.ScoreSafety:   0.8,
		blackboard.ScoreEmpathy:  0.7,
		blackboard.ScoreClinical: 0.7,
	}
}

func decidingSession(scores map[blackboard.ScoreName]float64) *blackboard.Session {
	return &blackboard.Session{
		ID:             "4ac13a2f-30e4-4d79-b1cd-9e5e1f3a7ab0",
		Intent:         "test",
		Status:         blackboard.StatusRunning,
		Phase:          blackboard.PhaseDeciding,
		IterationCount: 0,
		MaxIterations:  5,
		Scores:         scores,
	}
}

func TestRouterAllThresholdsMet(t *testing.T) {
	r := NewRouter(testThresholds())
	s := decidingSession(map[blackboard.ScoreName]float64{
		blackboard.ScoreSafety:   0.85,
		blackboard.ScoreEmpathy:  0.7,
		blackboard.ScoreClinical: 0.72,
	})

	d := r.Decide(s)

	assert.Equal(t, blackboard.PhaseAwaitingApproval, d.Next)
	assert.False(t, d.IncrementIteration)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, blackboard.AgentSupervisor, d.Notes[0].Author)
	assert.Equal(t, blackboard.PriorityInfo, d.Notes[0].Priority)
}

func TestRouterThresholdIsInclusive(t *testing.T) {
	r := NewRouter(testThresholds())

	// A score exactly at its threshold passes
	s := decidingSession(map[blackboard.ScoreName]float64{
		blackboard.ScoreSafety:   0.8,
		blackboard.ScoreEmpathy:  0.7,
		blackboard.ScoreClinical: 0.7,
	})

	d := r.Decide(s)
	assert.Equal(t, blackboard.PhaseAwaitingApproval, d.Next)
}

func TestRouterUnmetScoreRequestsRevision(t *testing.T) {
	r := NewRouter(testThresholds())
	s := decidingSession(map[blackboard.ScoreName]float64{
		blackboard.ScoreSafety:   0.6,
		blackboard.ScoreEmpathy:  0.9,
		blackboard.ScoreClinical: 0.9,
	})

	d := r.Decide(s)

	assert.Equal(t, blackboard.PhaseRevising, d.Next)
	assert.True(t, d.IncrementIteration)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, blackboard.AgentSupervisor, d.Notes[0].Author)
	assert.Equal(t, blackboard.AgentDrafter, d.Notes[0].Target)
	assert.Equal(t, blackboard.PriorityWarning, d.Notes[0].Priority)
	assert.Contains(t, d.Notes[0].Text, "safety (0.60 < 0.80)")
}

func TestRouterMissingScoreNeverPasses(t *testing.T) {
	r := NewRouter(testThresholds())
	s := decidingSession(map[blackboard.ScoreName]float64{
		blackboard.ScoreSafety: 0.9,
		// empathy and clinical never measured
	})

	d := r.Decide(s)

	assert.Equal(t, blackboard.PhaseRevising, d.Next)
	assert.Contains(t, d.Notes[0].Text, "clinical (not yet measured)")
	assert.Contains(t, d.Notes[0].Text, "empathy (not yet measured)")
}

func TestRouterIterationCeiling(t *testing.T) {
	r := NewRouter(testThresholds())

	// Ceiling reached with failing scores: escalate anyway, no increment
	s := decidingSession(map[blackboard.ScoreName]float64{
		blackboard.ScoreSafety:   0.2,
		blackboard.ScoreEmpathy:  0.2,
		blackboard.ScoreClinical: 0.2,
	})
	s.IterationCount = 5
	s.MaxIterations = 5

	d := r.Decide(s)

	assert.Equal(t, blackboard.PhaseAwaitingApproval, d.Next)
	assert.False(t, d.IncrementIteration)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, blackboard.AgentSystem, d.Notes[0].Author)
	assert.Equal(t, blackboard.PriorityWarning, d.Notes[0].Priority)
	assert.Contains(t, d.Notes[0].Text, "Iteration ceiling of 5 reached")
}

func TestRouterCeilingPrecedesScores(t *testing.T) {
	r := NewRouter(testThresholds())

	// Even perfect scores at the ceiling produce the System note, not the
	// Supervisor's pass note
	s := decidingSession(map[blackboard.ScoreName]float64{
		blackboard.ScoreSafety:   1.0,
		blackboard.ScoreEmpathy:  1.0,
		blackboard.ScoreClinical: 1.0,
	})
	s.IterationCount = 3
	s.MaxIterations = 3

	d := r.Decide(s)

	assert.Equal(t, blackboard.PhaseAwaitingApproval, d.Next)
	assert.Equal(t, blackboard.AgentSystem, d.Notes[0].Author)
}

func TestRouterDoesNotMutateSession(t *testing.T) {
	r := NewRouter(testThresholds())
	s := decidingSession(map[blackboard.ScoreName]float64{blackboard.ScoreSafety: 0.1})

	_ = r.Decide(s)

	assert.Equal(t, 0, s.IterationCount)
	assert.Equal(t, blackboard.PhaseDeciding, s.Phase)
	assert.Empty(t, s.Notes)
}
