// Package generator defines the text-generation port used by the step
// executors, plus its backends. The generator is an opaque collaborator: it
// receives an instruction and an input, and returns text and/or scores. All
// prompt interpretation and score gating happens in the callers.
package generator

import (
	"context"
	"errors"

	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// ErrUnavailable indicates the backing generator could not be reached.
// The workflow engine treats this as a recoverable step failure, never as a
// workflow-fatal error.
var ErrUnavailable = errors.New("generator unavailable")

// Request is one generation call.
type Request struct {
	Agent       blackboard.AgentName // Requesting step, lets backends specialize behavior
	Instruction string               // What to do (system-level guidance)
	Input       string               // What to do it to (intent, draft, feedback)
}

// Response carries generated text and any scores the backend produced.
// Either field may be empty depending on what was asked for.
type Response struct {
	Text   string
	Scores map[blackboard.ScoreName]float64
}

// Generator produces text and/or scores from a request. Implementations must
// honor context cancellation and deadlines; the engine bounds every call with
// the configured step timeout.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}
