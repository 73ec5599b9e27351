// Package engine drives the drafting workflow: it runs one step executor at a
// time, applies the resulting state delta, checkpoints the session, publishes
// a workflow event, and consults the supervisor router for the next phase.
// The engine suspends (returns without blocking) at the human approval gate
// and is resumable from the persisted session alone.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Danish137/cerina-protocol-foundry/internal/agent"
	"github.com/Danish137/cerina-protocol-foundry/internal/config"
	"github.com/Danish137/cerina-protocol-foundry/internal/generator"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// checkpoint write attempts before a persistence failure becomes session-fatal
const saveAttempts = 3

// Engine owns all write access to session state. Sessions are independent and
// may run concurrently; within a session execution is strictly sequential,
// serialized by a per-session lock so approve/halt interleave only at step
// boundaries.
type Engine struct {
	client      *blackboard.Client
	router      *Router
	executors   map[blackboard.Phase]agent.Executor
	maxIter     int
	stepTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a workflow engine wired to the standard three-step pipeline.
func New(client *blackboard.Client, gen generator.Generator, wf *config.WorkflowConfig) *Engine {
	thresholds := wf.Thresholds

	return &Engine{
		client: client,
		router: NewRouter(thresholds),
		executors: map[blackboard.Phase]agent.Executor{
			blackboard.PhaseDrafting:   agent.NewDrafter(gen),
			blackboard.PhaseReviewing:  agent.NewSafetyGuardian(gen, thresholds[blackboard.ScoreSafety]),
			blackboard.PhaseCritiquing: agent.NewClinicalCritic(gen, thresholds[blackboard.ScoreEmpathy], thresholds[blackboard.ScoreClinical]),
		},
		maxIter:     *wf.MaxIterations,
		stepTimeout: time.Duration(*wf.StepTimeoutSec) * time.Second,
		locks:       make(map[string]*sync.Mutex),
	}
}

// lockFor returns the serialization lock for one session.
func (e *Engine) lockFor(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[sessionID] = l
	}
	return l
}

// CreateSession creates and checkpoints a new session in the Drafting phase.
// The caller decides whether to drive it (Run) synchronously or in a
// goroutine.
func (e *Engine) CreateSession(ctx context.Context, intent string) (*blackboard.Session, error) {
	intent = strings.TrimSpace(intent)
	if intent == "" {
		return nil, fmt.Errorf("intent cannot be empty")
	}

	now := time.Now().UnixMilli()
	session := &blackboard.Session{
		ID:            uuid.New().String(),
		Intent:        intent,
		Status:        blackboard.StatusRunning,
		Phase:         blackboard.PhaseDrafting,
		MaxIterations: e.maxIter,
		DraftHistory:  []blackboard.DraftVersion{},
		Scores:        map[blackboard.ScoreName]float64{},
		Notes:         []blackboard.AgentNote{},
		CreatedAtMs:   now,
		UpdatedAtMs:   now,
	}

	if err := e.transition(ctx, session, blackboard.EventStateUpdate); err != nil {
		return nil, err
	}

	e.logEvent("session_created", map[string]interface{}{
		"session_id": session.ID,
	})

	return session, nil
}

// Run drives a session until it suspends (awaiting approval), terminates, or
// the context is cancelled. Run is safe to call again on a resumed session:
// the persisted phase is the only program counter.
func (e *Engine) Run(ctx context.Context, sessionID string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		suspended, err := e.runOne(ctx, sessionID)
		if err != nil {
			return err
		}
		if suspended {
			return nil
		}
	}
}

// runOne performs a single transition under the session lock. Returns
// suspended=true when the engine should stop driving this session.
func (e *Engine) runOne(ctx context.Context, sessionID string) (bool, error) {
	lock := e.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.load(ctx, sessionID)
	if err != nil {
		return false, err
	}

	if s.Status.Terminal() {
		return true, nil
	}

	// Halt takes effect at the step boundary: never begin a new executor on a
	// halted session, surface the current state instead.
	if s.Halted || s.Status == blackboard.StatusAwaitingApproval {
		return true, nil
	}

	switch s.Phase {
	case blackboard.PhaseDrafting, blackboard.PhaseReviewing, blackboard.PhaseCritiquing:
		return false, e.runStep(ctx, s)

	case blackboard.PhaseDeciding:
		return false, e.decide(ctx, s)

	case blackboard.PhaseRevising:
		s.Phase = blackboard.PhaseDrafting
		return false, e.transition(ctx, s, blackboard.EventStateUpdate)

	case blackboard.PhaseFinalizing:
		return true, e.finalize(ctx, s)

	case blackboard.PhaseAwaitingApproval:
		return true, nil

	default:
		return false, fmt.Errorf("session %s in unknown phase %q", s.ID, s.Phase)
	}
}

// runStep executes the current phase's executor against a snapshot, applies
// the delta, and advances to the next phase. Executor failures never crash
// the engine: they degrade the session to human review with the last-good
// state preserved.
func (e *Engine) runStep(ctx context.Context, s *blackboard.Session) error {
	exec := e.executors[s.Phase]

	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	delta, err := exec.Execute(stepCtx, s.Clone())
	cancel()

	if err != nil {
		// Engine-level cancellation is not a step failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return e.recordStepFailure(ctx, s, exec.Name(), err)
	}

	e.applyDelta(s, exec.Name(), delta)
	s.Phase = nextPhase(s.Phase)

	e.logEvent("step_completed", map[string]interface{}{
		"session_id": s.ID,
		"step":       string(exec.Name()),
		"next_phase": string(s.Phase),
	})

	return e.transition(ctx, s, blackboard.EventStateUpdate)
}

// nextPhase is the fixed sequential route between step executors.
// SafetyGuardian and ClinicalCritic have independent inputs but run
// sequentially by design; parallelizing them is an optimization path, not a
// correctness requirement.
func nextPhase(p blackboard.Phase) blackboard.Phase {
	switch p {
	case blackboard.PhaseDrafting:
		return blackboard.PhaseReviewing
	case blackboard.PhaseReviewing:
		return blackboard.PhaseCritiquing
	case blackboard.PhaseCritiquing:
		return blackboard.PhaseDeciding
	default:
		return p
	}
}

// applyDelta merges an executor's partial update into the session. Score
// writes are restricted to the dimensions each step owns; drafts append to
// the immutable history.
func (e *Engine) applyDelta(s *blackboard.Session, author blackboard.AgentName, delta *agent.StateDelta) {
	now := time.Now().UnixMilli()

	if delta.Draft != nil && *delta.Draft != s.CurrentDraft {
		s.CurrentDraft = *delta.Draft
		s.DraftHistory = append(s.DraftHistory, blackboard.DraftVersion{
			Content:     *delta.Draft,
			Author:      author,
			Version:     len(s.DraftHistory) + 1,
			Iteration:   s.IterationCount,
			CreatedAtMs: now,
		})
	}

	for name, score := range delta.Scores {
		if !scoreOwnedBy(author, name) {
			e.logEvent("score_rejected", map[string]interface{}{
				"session_id": s.ID,
				"author":     string(author),
				"score":      string(name),
			})
			continue
		}
		s.Scores[name] = score
	}

	s.Notes = append(s.Notes, delta.Notes...)
	s.UpdatedAtMs = now
}

// scoreOwnedBy enforces that each score dimension is set only by the step
// responsible for it.
func scoreOwnedBy(author blackboard.AgentName, name blackboard.ScoreName) bool {
	switch name {
	case blackboard.ScoreSafety:
		return author == blackboard.AgentSafetyGuardian
	case blackboard.ScoreEmpathy, blackboard.ScoreClinical:
		return author == blackboard.AgentClinicalCritic
	default:
		return false
	}
}

// decide applies the supervisor router's decision.
func (e *Engine) decide(ctx context.Context, s *blackboard.Session) error {
	d := e.router.Decide(s)

	s.Notes = append(s.Notes, d.Notes...)
	if d.IncrementIteration {
		s.IterationCount++
	}
	s.Phase = d.Next

	e.logEvent("supervisor_decision", map[string]interface{}{
		"session_id":      s.ID,
		"next_phase":      string(d.Next),
		"iteration_count": s.IterationCount,
	})

	if d.Next == blackboard.PhaseAwaitingApproval {
		s.Status = blackboard.StatusAwaitingApproval
		s.Halted = true
		return e.transition(ctx, s, blackboard.EventStateUpdate, blackboard.EventHalted)
	}

	return e.transition(ctx, s, blackboard.EventStateUpdate)
}

// finalize marks the session terminal and emits the closing events.
func (e *Engine) finalize(ctx context.Context, s *blackboard.Session) error {
	s.Status = blackboard.StatusCompleted
	s.Halted = false
	s.Notes = append(s.Notes, blackboard.AgentNote{
		Author:      blackboard.AgentSystem,
		Priority:    blackboard.PriorityInfo,
		Text:        "Protocol generation completed successfully",
		CreatedAtMs: time.Now().UnixMilli(),
	})

	if err := e.transition(ctx, s, blackboard.EventStateUpdate, blackboard.EventComplete); err != nil {
		return err
	}

	e.logEvent("session_completed", map[string]interface{}{
		"session_id":      s.ID,
		"iteration_count": s.IterationCount,
		"draft_versions":  len(s.DraftHistory),
	})

	return nil
}

// recordStepFailure degrades a session to human review after an executor
// failure, preserving the last-good draft and scores. Generation
// unavailability and timeouts both land here; neither is workflow-fatal.
func (e *Engine) recordStepFailure(ctx context.Context, s *blackboard.Session, step blackboard.AgentName, cause error) error {
	s.FailureCause = cause.Error()
	s.Status = blackboard.StatusAwaitingApproval
	s.Phase = blackboard.PhaseAwaitingApproval
	s.Halted = true
	s.Notes = append(s.Notes, blackboard.AgentNote{
		Author:      blackboard.AgentSystem,
		Priority:    blackboard.PriorityCritical,
		Text:        fmt.Sprintf("Step %s failed: %v. Last good state preserved for human review.", step, cause),
		CreatedAtMs: time.Now().UnixMilli(),
	})

	e.logEvent("step_failed", map[string]interface{}{
		"session_id": s.ID,
		"step":       string(step),
		"cause":      cause.Error(),
	})

	return e.transition(ctx, s, blackboard.EventStateUpdate, blackboard.EventHalted)
}

// Approve resumes a session awaiting approval into finalization. If
// approvedContent is provided and differs (after trimming) from the current
// draft it becomes a human edit, recorded in the history and the note log.
// Returns ErrInvalidStateTransition when the session is not awaiting
// approval; state is left unchanged in that case.
func (e *Engine) Approve(ctx context.Context, sessionID, approvedContent string) (*blackboard.Session, error) {
	lock := e.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.Status != blackboard.StatusAwaitingApproval {
		return nil, fmt.Errorf("%w: cannot approve session in status %q", ErrInvalidStateTransition, s.Status)
	}

	now := time.Now().UnixMilli()
	edited := false

	trimmed := strings.TrimSpace(approvedContent)
	if trimmed != "" && trimmed != strings.TrimSpace(s.CurrentDraft) {
		edited = true
		s.CurrentDraft = trimmed
		s.HumanEdits = trimmed
		s.DraftHistory = append(s.DraftHistory, blackboard.DraftVersion{
			Content:     trimmed,
			Author:      blackboard.AgentHuman,
			Version:     len(s.DraftHistory) + 1,
			Iteration:   s.IterationCount,
			CreatedAtMs: now,
		})
		s.Notes = append(s.Notes, blackboard.AgentNote{
			Author:      blackboard.AgentHuman,
			Priority:    blackboard.PriorityInfo,
			Text:        "Draft edited during review",
			CreatedAtMs: now,
		})
	}

	approvalText := "Protocol approved and finalized"
	if edited {
		approvalText += " (with edits)"
	}
	s.Notes = append(s.Notes, blackboard.AgentNote{
		Author:      blackboard.AgentHuman,
		Priority:    blackboard.PriorityInfo,
		Text:        approvalText,
		CreatedAtMs: now,
	})

	s.HumanApproved = true
	s.Halted = false
	s.Status = blackboard.StatusRunning
	s.Phase = blackboard.PhaseFinalizing

	if err := e.transition(ctx, s, blackboard.EventStateUpdate); err != nil {
		return nil, err
	}

	e.logEvent("session_approved", map[string]interface{}{
		"session_id": s.ID,
		"edited":     edited,
	})

	// Finalization is a single cheap transition; complete it synchronously so
	// the caller gets the terminal session back.
	if err := e.finalize(ctx, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Halt suspends a session for human review. Valid from any non-terminal
// status; takes effect at the next step boundary without discarding in-flight
// results. Idempotent: halting an already halted session is a no-op.
func (e *Engine) Halt(ctx context.Context, sessionID string) (*blackboard.Session, error) {
	lock := e.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot halt session in terminal status %q", ErrInvalidStateTransition, s.Status)
	}

	if s.Halted && s.Status == blackboard.StatusAwaitingApproval {
		return s, nil
	}

	s.Halted = true
	s.Status = blackboard.StatusAwaitingApproval
	s.Phase = blackboard.PhaseAwaitingApproval
	s.Notes = append(s.Notes, blackboard.AgentNote{
		Author:      blackboard.AgentHuman,
		Priority:    blackboard.PriorityWarning,
		Text:        "Workflow halted for review",
		CreatedAtMs: time.Now().UnixMilli(),
	})

	if err := e.transition(ctx, s, blackboard.EventStateUpdate, blackboard.EventHalted); err != nil {
		return nil, err
	}

	e.logEvent("session_halted", map[string]interface{}{
		"session_id": s.ID,
	})

	return s, nil
}

// GetSession loads a session snapshot. Read-only.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*blackboard.Session, error) {
	return e.load(ctx, sessionID)
}

// ResumeInFlight restarts the drive loop for every session left running by a
// previous process. Suspended and terminal sessions are untouched; they
// resume through Approve or stay readable as-is.
func (e *Engine) ResumeInFlight(ctx context.Context) (int, error) {
	sessions, err := e.client.ListSessions(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions for resume: %w", err)
	}

	resumed := 0
	for _, s := range sessions {
		if s.Status != blackboard.StatusRunning || s.Halted {
			continue
		}
		resumed++
		sessionID := s.ID
		go func() {
			if err := e.Run(ctx, sessionID); err != nil && !errors.Is(err, context.Canceled) {
				e.logEvent("resume_failed", map[string]interface{}{
					"session_id": sessionID,
					"error":      err.Error(),
				})
			}
		}()
	}

	return resumed, nil
}

// load fetches a session, mapping redis.Nil to ErrSessionNotFound.
func (e *Engine) load(ctx context.Context, sessionID string) (*blackboard.Session, error) {
	s, err := e.client.LoadSession(ctx, sessionID)
	if err != nil {
		if blackboard.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, err
	}
	return s, nil
}

// transition persists the session and then publishes the given events, in
// order. The checkpoint write is durable before any event goes out, so a
// consumer reacting to an event can always reload consistent state. A
// persistence failure is retried; with no successful retry it is fatal to the
// session.
func (e *Engine) transition(ctx context.Context, s *blackboard.Session, kinds ...blackboard.EventKind) error {
	s.UpdatedAtMs = time.Now().UnixMilli()

	if err := e.checkpoint(ctx, s); err != nil {
		return e.failSession(ctx, s, err)
	}

	for _, kind := range kinds {
		event := &blackboard.Event{
			Kind:        kind,
			SessionID:   s.ID,
			Session:     s,
			TimestampMs: time.Now().UnixMilli(),
		}
		if err := e.client.PublishEvent(ctx, event); err != nil {
			// Publishing is best-effort: state is durable, observers can
			// reload via get_state. Never silent though.
			e.logEvent("publish_failed", map[string]interface{}{
				"session_id": s.ID,
				"kind":       string(kind),
				"error":      err.Error(),
			})
		}
	}

	return nil
}

// checkpoint saves with bounded retries.
func (e *Engine) checkpoint(ctx context.Context, s *blackboard.Session) error {
	var lastErr error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		if lastErr = e.client.SaveSession(ctx, s); lastErr == nil {
			return nil
		}
		e.logEvent("checkpoint_retry", map[string]interface{}{
			"session_id": s.ID,
			"attempt":    attempt,
			"error":      lastErr.Error(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("checkpoint failed after %d attempts: %w", saveAttempts, lastErr)
}

// failSession marks a session failed after an unrecoverable persistence
// error. The terminal write and event are best-effort; the original error is
// returned either way.
func (e *Engine) failSession(ctx context.Context, s *blackboard.Session, cause error) error {
	s.Status = blackboard.StatusFailed
	s.FailureCause = cause.Error()
	s.Notes = append(s.Notes, blackboard.AgentNote{
		Author:      blackboard.AgentSystem,
		Priority:    blackboard.PriorityCritical,
		Text:        fmt.Sprintf("Session failed: %v", cause),
		CreatedAtMs: time.Now().UnixMilli(),
	})

	if err := e.client.SaveSession(ctx, s); err == nil {
		event := &blackboard.Event{
			Kind:        blackboard.EventComplete,
			SessionID:   s.ID,
			Session:     s,
			TimestampMs: time.Now().UnixMilli(),
		}
		_ = e.client.PublishEvent(ctx, event)
	}

	e.logEvent("session_failed", map[string]interface{}{
		"session_id": s.ID,
		"cause":      cause.Error(),
	})

	return cause
}

// logEvent logs a structured event in JSON format.
func (e *Engine) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "engine"
	data["event_type"] = eventType
	data["instance"] = e.client.InstanceName()

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Engine] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
