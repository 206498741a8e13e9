package engine

import (
	"context"
	"errors"
	"time"

	"github.com/chazu/cathedral/pkg/graph"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation runs past its limit.
	ErrTimeout = errors.New("evaluation timed out")

	// ErrSuperseded is returned by an evaluation that a newer one replaced.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// result is the internal type used to pass evaluation results through channels.
type evalResult struct {
	layout *graph.Layout
	errors []EvalError
	err    error
}

// wait returns the result from ch unless ctx ends first. A result that
// arrives after a newer evaluation started is discarded as superseded.
//
// When ctx ends the evaluating goroutine may still be running; it stops at
// its next generator call and its result is dropped.
func (e *Engine) wait(ctx context.Context, ch <-chan evalResult, gen uint64) (*graph.Layout, []EvalError, error) {
	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		if ctx.Err() != nil {
			return nil, nil, context.Cause(ctx)
		}
		return res.layout, res.errors, res.err

	case <-ctx.Done():
		return nil, nil, context.Cause(ctx)
	}
}
