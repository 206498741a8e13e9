// Package engine provides the Lisp scripting surface over the spiral
// generator. It wraps zygomys in a sandboxed environment and produces a
// graph.Layout from user source code.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/cathedral/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter for layout scripts.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism. Starting an evaluation cancels
// the one before it.
type Engine struct {
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
	cancelPrev context.CancelCauseFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout replaces EvalTimeout as the per-evaluation limit.
// Non-positive durations are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs source with a background context. See EvaluateContext.
func (e *Engine) Evaluate(source string) (*graph.Layout, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext takes Lisp source code and produces a new Layout.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns layout + nil errors + nil error
//   - On parse/eval failure: returns nil layout + eval errors + nil error
//   - On fatal failure: returns nil + nil + error. ErrTimeout and
//     ErrSuperseded mark the engine's own cutoffs; a canceled ctx yields
//     its cause.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*graph.Layout, []EvalError, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	ctx, stop := context.WithTimeoutCause(ctx, e.timeout,
		fmt.Errorf("%w after %s", ErrTimeout, e.timeout))
	defer stop()

	e.mu.Lock()
	e.generation++
	gen := e.generation
	if e.cancelPrev != nil {
		e.cancelPrev(ErrSuperseded)
	}
	e.cancelPrev = cancel
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		l, evalErrs, err := evaluate(ctx, source)
		ch <- evalResult{layout: l, errors: evalErrs, err: err}
	}()

	return e.wait(ctx, ch, gen)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
// Top-level forms are loaded and run one at a time so that a runtime error
// is reported on the line where its form starts.
func evaluate(ctx context.Context, source string) (*graph.Layout, []EvalError, error) {
	// Empty source is a valid program that produces an empty layout.
	if strings.TrimSpace(source) == "" {
		return graph.New(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	l := graph.New()
	registerBuiltins(ctx, env, l)

	for _, f := range splitForms(preprocessSource(source)) {
		if ctx.Err() != nil {
			return nil, nil, context.Cause(ctx)
		}
		if err := env.LoadString(f.text); err != nil {
			return nil, locate(parseZygomysError(err), f.line), nil
		}
		if _, err := env.Run(); err != nil {
			if ctx.Err() != nil {
				return nil, nil, context.Cause(ctx)
			}
			return nil, locate(parseZygomysError(err), f.line), nil
		}
	}

	return l, nil, nil
}

// locate shifts form-relative line numbers to source lines. Errors with no
// line of their own are placed on the form's first line.
func locate(errs []EvalError, formLine int) []EvalError {
	for i := range errs {
		if errs[i].Line > 0 {
			errs[i].Line += formLine - 1
		} else {
			errs[i].Line = formLine
		}
	}
	return errs
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// Try to extract line numbers from the error message.
	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	// Fallback: no line info available.
	return []EvalError{{
		Line:    0,
		Col:     0,
		Message: strings.TrimSpace(msg),
	}}
}
