package blackboard

import "fmt"

// EventKind classifies a workflow event on a session's event channel.
type EventKind string

const (
	// EventStateUpdate is emitted after every state transition.
	EventStateUpdate EventKind = "state_update"

	// EventHalted is emitted when a session enters awaiting_approval.
	EventHalted EventKind = "halted"

	// EventComplete is emitted exactly once, when a session reaches a terminal
	// status. The publisher closes subscriptions after delivering it.
	EventComplete EventKind = "complete"
)

// Validate checks if the EventKind is a valid enum value.
func (k EventKind) Validate() error {
	switch k {
	case EventStateUpdate, EventHalted, EventComplete:
		return nil
	default:
		return fmt.Errorf("unknown event kind: %q", k)
	}
}

// Event is one typed workflow event. Every event carries the full session
// snapshot at publish time so a consumer never needs to re-query for the
// state that triggered it.
type Event struct {
	Kind        EventKind `json:"event"`
	SessionID   string    `json:"session_id"`
	Session     *Session  `json:"session"`
	TimestampMs int64     `json:"timestamp_ms"`
}

// Validate checks if the Event has valid field values.
func (e *Event) Validate() error {
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if !isValidUUID(e.SessionID) {
		return fmt.Errorf("invalid session ID: not a valid UUID")
	}
	if e.Session == nil {
		return fmt.Errorf("event session snapshot cannot be nil")
	}
	return nil
}
