package blackboard

import (
	"fmt"

	"github.com/google/uuid"
)

// Status is the coarse lifecycle state of a Session.
type Status string

const (
	// StatusRunning indicates the workflow engine is actively driving steps.
	StatusRunning Status = "running"

	// StatusAwaitingApproval indicates the workflow is suspended for human review.
	StatusAwaitingApproval Status = "awaiting_approval"

	// StatusHalted indicates an explicit human halt. In practice halts are
	// recorded as StatusAwaitingApproval plus the Halted flag; the value is
	// accepted for compatibility with externally written records.
	StatusHalted Status = "halted"

	// StatusCompleted indicates the session reached its terminal success state.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the session terminated due to an unrecoverable error.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is a terminal state.
// Terminal sessions are immutable except for being read.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusRunning, StatusAwaitingApproval, StatusHalted, StatusCompleted, StatusFailed:
		return nil
	default:
		return fmt.Errorf("unknown status: %q", s)
	}
}

// Phase is the supervisor state machine position within a running session.
// The phase is persisted with the session so a restarted process can resume
// exactly where the previous one stopped - there is no in-memory continuation.
type Phase string

const (
	// PhaseDrafting runs the Drafter executor.
	PhaseDrafting Phase = "drafting"

	// PhaseReviewing runs the SafetyGuardian executor.
	PhaseReviewing Phase = "reviewing"

	// PhaseCritiquing runs the ClinicalCritic executor.
	PhaseCritiquing Phase = "critiquing"

	// PhaseDeciding evaluates the supervisor routing rule.
	PhaseDeciding Phase = "deciding"

	// PhaseRevising loops back to drafting with feedback carried forward.
	PhaseRevising Phase = "revising"

	// PhaseAwaitingApproval suspends the engine for the human-in-the-loop gate.
	PhaseAwaitingApproval Phase = "awaiting_approval"

	// PhaseFinalizing is the terminal transition after human approval.
	PhaseFinalizing Phase = "finalizing"
)

// Validate checks if the Phase is a valid enum value.
func (p Phase) Validate() error {
	switch p {
	case PhaseDrafting, PhaseReviewing, PhaseCritiquing, PhaseDeciding,
		PhaseRevising, PhaseAwaitingApproval, PhaseFinalizing:
		return nil
	default:
		return fmt.Errorf("unknown phase: %q", p)
	}
}

// AgentName identifies the producer of a note, draft, or score.
// The well-known identities are enumerated; any other non-empty name is
// accepted as a custom step so new executors can be added without a schema
// change.
type AgentName string

const (
	AgentDrafter         AgentName = "Drafter"
	AgentSafetyGuardian  AgentName = "SafetyGuardian"
	AgentClinicalCritic  AgentName = "ClinicalCritic"
	AgentSupervisor      AgentName = "Supervisor"
	AgentHuman           AgentName = "Human"
	AgentSystem          AgentName = "System"
)

// Known reports whether the name is one of the well-known identities.
func (a AgentName) Known() bool {
	switch a {
	case AgentDrafter, AgentSafetyGuardian, AgentClinicalCritic,
		AgentSupervisor, AgentHuman, AgentSystem:
		return true
	default:
		return false
	}
}

// Validate checks the agent name. Custom step names are allowed but must be
// non-empty.
func (a AgentName) Validate() error {
	if a == "" {
		return fmt.Errorf("agent name cannot be empty")
	}
	return nil
}

// Priority classifies the urgency of an AgentNote.
type Priority string

const (
	PriorityInfo     Priority = "info"
	PriorityWarning  Priority = "warning"
	PriorityCritical Priority = "critical"
)

// Validate checks if the Priority is a valid enum value.
func (p Priority) Validate() error {
	switch p {
	case PriorityInfo, PriorityWarning, PriorityCritical:
		return nil
	default:
		return fmt.Errorf("unknown priority: %q", p)
	}
}

// ScoreName identifies one quality dimension of a draft.
type ScoreName string

const (
	ScoreSafety   ScoreName = "safety"
	ScoreEmpathy  ScoreName = "empathy"
	ScoreClinical ScoreName = "clinical"
)

// AgentNote is one message on the blackboard's communication log.
// Notes are append-only: no note is ever edited or deleted.
type AgentNote struct {
	Author      AgentName `json:"author"`           // Producing step, or Human/System
	Target      AgentName `json:"target,omitempty"` // Optional addressee; empty means broadcast
	Priority    Priority  `json:"priority"`
	Text        string    `json:"text"`
	CreatedAtMs int64     `json:"created_at_ms"` // Unix timestamp in milliseconds
}

// Validate checks if the AgentNote has valid field values.
func (n *AgentNote) Validate() error {
	if err := n.Author.Validate(); err != nil {
		return fmt.Errorf("invalid author: %w", err)
	}
	if err := n.Priority.Validate(); err != nil {
		return fmt.Errorf("invalid priority: %w", err)
	}
	if n.Text == "" {
		return fmt.Errorf("note text cannot be empty")
	}
	return nil
}

// DraftVersion is one entry in the append-only draft history.
type DraftVersion struct {
	Content     string    `json:"content"`
	Author      AgentName `json:"author"`    // Step that produced this version
	Version     int       `json:"version"`   // Incrementing, starts at 1
	Iteration   int       `json:"iteration"` // Iteration count at creation time
	CreatedAtMs int64     `json:"created_at_ms"`
}

// Session is the versioned, durable record of one workflow run.
// It is mutated exclusively by the workflow engine (and the approve/halt
// operations the engine exposes); the checkpoint store holds a durable copy
// but never originates changes.
type Session struct {
	ID             string                `json:"id"`     // UUID, immutable, assigned at creation
	Intent         string                `json:"intent"` // The user's request that seeded the session
	Status         Status                `json:"status"`
	Phase          Phase                 `json:"phase"`
	Halted         bool                  `json:"halted"`         // True once suspended for human review
	HumanApproved  bool                  `json:"human_approved"` // Set only by the approve operation
	HumanEdits     string                `json:"human_edits,omitempty"`
	IterationCount int                   `json:"iteration_count"`
	MaxIterations  int                   `json:"max_iterations"` // Immutable per session
	CurrentDraft   string                `json:"current_draft"`
	DraftHistory   []DraftVersion        `json:"draft_history"`
	Scores         map[ScoreName]float64 `json:"scores"`
	Notes          []AgentNote           `json:"notes"`
	FailureCause   string                `json:"failure_cause,omitempty"` // Last step-failure cause, if any
	CreatedAtMs    int64                 `json:"created_at_ms"`
	UpdatedAtMs    int64                 `json:"updated_at_ms"`
}

// Validate checks if the Session has valid field values.
func (s *Session) Validate() error {
	if !isValidUUID(s.ID) {
		return fmt.Errorf("invalid session ID: not a valid UUID")
	}

	if s.Intent == "" {
		return fmt.Errorf("intent cannot be empty")
	}

	if err := s.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	if err := s.Phase.Validate(); err != nil {
		return fmt.Errorf("invalid phase: %w", err)
	}

	if s.IterationCount < 0 {
		return fmt.Errorf("invalid iteration count: must be >= 0, got %d", s.IterationCount)
	}

	if s.MaxIterations < 1 {
		return fmt.Errorf("invalid max iterations: must be >= 1, got %d", s.MaxIterations)
	}

	for name, score := range s.Scores {
		if score < 0.0 || score > 1.0 {
			return fmt.Errorf("score %q out of range [0.0, 1.0]: %v", name, score)
		}
	}

	for i := range s.Notes {
		if err := s.Notes[i].Validate(); err != nil {
			return fmt.Errorf("invalid note at index %d: %w", i, err)
		}
	}

	return nil
}

// Clone returns a deep copy of the session. Step executors receive clones so
// they cannot mutate engine-owned state.
func (s *Session) Clone() *Session {
	clone := *s

	clone.DraftHistory = make([]DraftVersion, len(s.DraftHistory))
	copy(clone.DraftHistory, s.DraftHistory)

	clone.Notes = make([]AgentNote, len(s.Notes))
	copy(clone.Notes, s.Notes)

	clone.Scores = make(map[ScoreName]float64, len(s.Scores))
	for k, v := range s.Scores {
		clone.Scores[k] = v
	}

	return &clone
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
