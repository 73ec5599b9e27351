package blackboard

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Complex fields like the
// draft history, notes log, and scores map are JSON-encoded into single hash
// fields. This provides a balance between queryability (individual fields)
// and flexibility (complex structures).

// SessionToHash converts a Session struct to a Redis hash format.
// Slice and map fields are JSON-encoded.
func SessionToHash(s *Session) (map[string]interface{}, error) {
	historyJSON, err := json.Marshal(s.DraftHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft_history: %w", err)
	}

	notesJSON, err := json.Marshal(s.Notes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notes: %w", err)
	}

	scoresJSON, err := json.Marshal(s.Scores)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scores: %w", err)
	}

	hash := map[string]interface{}{
		"id":              s.ID,
		"intent":          s.Intent,
		"status":          string(s.Status),
		"phase":           string(s.Phase),
		"halted":          s.Halted,
		"human_approved":  s.HumanApproved,
		"human_edits":     s.HumanEdits,
		"iteration_count": s.IterationCount,
		"max_iterations":  s.MaxIterations,
		"current_draft":   s.CurrentDraft,
		"draft_history":   string(historyJSON),
		"scores":          string(scoresJSON),
		"notes":           string(notesJSON),
		"failure_cause":   s.FailureCause,
		"created_at_ms":   s.CreatedAtMs,
		"updated_at_ms":   s.UpdatedAtMs,
	}

	return hash, nil
}

// HashToSession converts a Redis hash to a Session struct.
// JSON fields are decoded back to Go types.
func HashToSession(hash map[string]string) (*Session, error) {
	iterationCount, err := strconv.Atoi(hash["iteration_count"])
	if err != nil {
		return nil, fmt.Errorf("invalid iteration_count field: %w", err)
	}

	maxIterations, err := strconv.Atoi(hash["max_iterations"])
	if err != nil {
		return nil, fmt.Errorf("invalid max_iterations field: %w", err)
	}

	var history []DraftVersion
	if historyJSON := hash["draft_history"]; historyJSON != "" {
		if err := json.Unmarshal([]byte(historyJSON), &history); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draft_history: %w", err)
		}
	}

	var notes []AgentNote
	if notesJSON := hash["notes"]; notesJSON != "" {
		if err := json.Unmarshal([]byte(notesJSON), &notes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notes: %w", err)
		}
	}

	var scores map[ScoreName]float64
	if scoresJSON := hash["scores"]; scoresJSON != "" {
		if err := json.Unmarshal([]byte(scoresJSON), &scores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
		}
	}

	// Ensure we have empty collections instead of nil for consistency
	if history == nil {
		history = []DraftVersion{}
	}
	if notes == nil {
		notes = []AgentNote{}
	}
	if scores == nil {
		scores = map[ScoreName]float64{}
	}

	halted, _ := strconv.ParseBool(hash["halted"])
	humanApproved, _ := strconv.ParseBool(hash["human_approved"])
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	session := &Session{
		ID:             hash["id"],
		Intent:         hash["intent"],
		Status:         Status(hash["status"]),
		Phase:          Phase(hash["phase"]),
		Halted:         halted,
		HumanApproved:  humanApproved,
		HumanEdits:     hash["human_edits"],
		IterationCount: iterationCount,
		MaxIterations:  maxIterations,
		CurrentDraft:   hash["current_draft"],
		DraftHistory:   history,
		Scores:         scores,
		Notes:          notes,
		FailureCause:   hash["failure_cause"],
		CreatedAtMs:    createdAtMs,
		UpdatedAtMs:    updatedAtMs,
	}

	return session, nil
}
