package engine

import "errors"

var (
	// ErrSessionNotFound indicates the session ID has no checkpoint.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidStateTransition indicates a caller invoked approve or halt
	// out of sequence. The session state is left unchanged.
	ErrInvalidStateTransition = errors.New("invalid state transition")
)
