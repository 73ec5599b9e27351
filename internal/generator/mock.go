package generator

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedGenerator replays a fixed sequence of responses, one per Generate
// call. Tests use it to drive the workflow through exact score scenarios.
// Safe for concurrent use.
type ScriptedGenerator struct {
	mu        sync.Mutex
	responses []*Response
	errs      []error
	calls     []*Request
}

// NewScriptedGenerator creates an empty script; queue steps with Expect.
func NewScriptedGenerator() *ScriptedGenerator {
	return &ScriptedGenerator{}
}

// Expect appends one scripted step. Either resp or err may be nil.
func (g *ScriptedGenerator) Expect(resp *Response, err error) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, resp)
	g.errs = append(g.errs, err)
	return g
}

// Calls returns a copy of the requests seen so far.
func (g *ScriptedGenerator) Calls() []*Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Request, len(g.calls))
	copy(out, g.calls)
	return out
}

// Generate implements Generator by replaying the script in order.
func (g *ScriptedGenerator) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, req)

	idx := len(g.calls) - 1
	if idx >= len(g.responses) {
		return nil, fmt.Errorf("scripted generator exhausted after %d calls", len(g.responses))
	}

	if g.errs[idx] != nil {
		return nil, g.errs[idx]
	}
	return g.responses[idx], nil
}
