// Package execctx holds the evolving state of one workflow execution:
// the immutable initial inputs and the concurrent, write-once-per-step
// output map, plus template rendering and condition evaluation over
// that state. Grounded on spec.md §4.2; the "flatten context into a
// map for the template engine" shape follows tombee-conductor's
// TemplateContext.ToMap(), adapted to raymond instead of text/template
// so dotted access works without a leading dot.
package execctx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
)

// Context carries one workflow execution's inputs and outputs.
type Context struct {
	inputs map[string]any

	mu      sync.RWMutex
	outputs map[string]map[string]any
}

// New returns a Context seeded with the given immutable inputs.
func New(inputs map[string]any) *Context {
	if inputs == nil {
		inputs = map[string]any{}
	}
	return &Context{
		inputs:  inputs,
		outputs: make(map[string]map[string]any),
	}
}

// ErrOutputAlreadySet is raised when a step attempts to write its
// output more than once. Per spec.md §4.2 this is a programming error,
// not a recoverable condition; callers that rely on retry already
// guard against re-entering SetOutput for a completed attempt.
var ErrOutputAlreadySet = errors.New("execctx: output already set for step")

// SetOutput records a step's outputs. It may be called at most once
// per step id; a second call for the same id panics, matching the
// spec's framing that a double-write is a programming error rather
// than a condition a caller should branch on.
func (c *Context) SetOutput(stepID string, obj map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.outputs[stepID]; exists {
		panic(fmt.Errorf("%w: %s", ErrOutputAlreadySet, stepID))
	}
	if obj == nil {
		obj = map[string]any{}
	}
	// Copy so the caller can't mutate through the reference after the
	// write, keeping readers from observing a partially written object.
	cp := make(map[string]any, len(obj))
	for k, v := range obj {
		cp[k] = v
	}
	c.outputs[stepID] = cp
}

// Output returns the recorded outputs for a step, if any.
func (c *Context) Output(stepID string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.outputs[stepID]
	return obj, ok
}

// snapshot returns the data map handed to the template engine:
// {"inputs": ..., "outputs": ...}, a fresh copy so concurrent writers
// to c.outputs can't race with rendering in progress.
func (c *Context) snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	outputsCopy := make(map[string]any, len(c.outputs))
	for stepID, obj := range c.outputs {
		objCopy := make(map[string]any, len(obj))
		for k, v := range obj {
			objCopy[k] = v
		}
		outputsCopy[stepID] = objCopy
	}

	return map[string]any{
		"inputs":  c.inputs,
		"outputs": outputsCopy,
	}
}

// RenderError wraps a template rendering or condition evaluation
// failure.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("execctx: rendering %q: %v", e.Template, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// RenderTemplate resolves {{ inputs.NAME }}, {{ inputs.NAME.path }},
// and {{ outputs.STEP_ID.FIELD }} references against the context.
// Text with no template markers passes through unchanged; raymond
// renders unknown variables as empty strings rather than erroring,
// matching the "literal passthrough for unknown/no-substitution text"
// allowance in spec.md §4.2.
func (c *Context) RenderTemplate(tpl string) (string, error) {
	if !strings.Contains(tpl, "{{") {
		return tpl, nil
	}
	tmpl, err := raymond.Parse(tpl)
	if err != nil {
		return "", &RenderError{Template: tpl, Err: err}
	}
	out, err := tmpl.Exec(c.snapshot())
	if err != nil {
		return "", &RenderError{Template: tpl, Err: err}
	}
	return out, nil
}

// ErrInvalidCondition is returned when a condition does not render to
// the literal string "true" or "false".
var ErrInvalidCondition = errors.New("execctx: condition must render to \"true\" or \"false\"")

// EvaluateCondition renders expr (a literal or templated boolean) and
// accepts only "true"/"false" as results, per spec.md §4.2's refusal
// of a general expression language.
func (c *Context) EvaluateCondition(expr string) (bool, error) {
	rendered, err := c.RenderTemplate(expr)
	if err != nil {
		return false, err
	}
	switch strings.TrimSpace(rendered) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &RenderError{Template: expr, Err: ErrInvalidCondition}
	}
}

// MarshalOutputsJSON is a convenience for callers (the CLI, tests) that
// want to print the full outputs map as JSON.
func (c *Context) MarshalOutputsJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c.outputs)
}
