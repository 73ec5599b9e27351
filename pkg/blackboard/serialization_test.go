package blackboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashToStrings mimics what HGetAll returns: everything as strings
func hashToStrings(hash map[string]interface{}) map[string]string {
	out := make(map[string]string, len(hash))
	for k, v := range hash {
		if b, ok := v.(bool); ok {
			// go-redis writes bools as 1/0
			if b {
				out[k] = "1"
			} else {
				out[k] = "0"
			}
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

func TestSessionHashRoundTrip(t *testing.T) {
	s := makeTestSession()
	s.Status = StatusAwaitingApproval
	s.Phase = PhaseAwaitingApproval
	s.Halted = true
	s.HumanApproved = false
	s.IterationCount = 2
	s.CurrentDraft = "# Guided Exercise\n\nBreathe."
	s.DraftHistory = []DraftVersion{
		{Content: "v1", Author: AgentDrafter, Version: 1, Iteration: 0, CreatedAtMs: 100},
		{Content: "# Guided Exercise\n\nBreathe.", Author: AgentDrafter, Version: 2, Iteration: 1, CreatedAtMs: 200},
	}
	s.Scores = map[ScoreName]float64{
		ScoreSafety:   0.85,
		ScoreEmpathy:  0.7,
		ScoreClinical: 0.72,
	}
	s.Notes = []AgentNote{
		{Author: AgentDrafter, Priority: PriorityInfo, Text: "Drafted version 1", CreatedAtMs: 100},
		{Author: AgentSafetyGuardian, Target: AgentDrafter, Priority: PriorityWarning, Text: "Needs crisis guidance", CreatedAtMs: 150},
	}
	s.FailureCause = ""

	hash, err := SessionToHash(s)
	require.NoError(t, err)

	restored, err := HashToSession(hashToStrings(hash))
	require.NoError(t, err)

	assert.Equal(t, s, restored)
}

func TestHashToSessionEmptyCollections(t *testing.T) {
	s := makeTestSession()

	hash, err := SessionToHash(s)
	require.NoError(t, err)

	restored, err := HashToSession(hashToStrings(hash))
	require.NoError(t, err)

	// Empty collections come back as empty, never nil
	assert.NotNil(t, restored.DraftHistory)
	assert.NotNil(t, restored.Scores)
	assert.NotNil(t, restored.Notes)
	assert.Empty(t, restored.DraftHistory)
	assert.Empty(t, restored.Scores)
	assert.Empty(t, restored.Notes)
}

func TestHashToSessionInvalidFields(t *testing.T) {
	s := makeTestSession()
	hash, err := SessionToHash(s)
	require.NoError(t, err)
	strHash := hashToStrings(hash)

	t.Run("invalid iteration_count", func(t *testing.T) {
		bad := copyMap(strHash)
		bad["iteration_count"] = "many"
		_, err := HashToSession(bad)
		assert.Error(t, err)
	})

	t.Run("invalid draft_history JSON", func(t *testing.T) {
		bad := copyMap(strHash)
		bad["draft_history"] = "{not json"
		_, err := HashToSession(bad)
		assert.Error(t, err)
	})

	t.Run("invalid notes JSON", func(t *testing.T) {
		bad := copyMap(strHash)
		bad["notes"] = "{not json"
		_, err := HashToSession(bad)
		assert.Error(t, err)
	})
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
