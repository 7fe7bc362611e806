// Package engine implements the Action Evaluator (C6) and Workflow
// Executor (C7): it drives a parsed workflow.Workflow to completion,
// evaluating actions against a per-run ExecutionContext and transitions
// against their guards.
package engine

import (
	"github.com/google/uuid"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/liquid"
)

// Value is the dynamic value domain shared with the template renderer:
// string, bool, int64, float64, []Value, map[string]Value, or nil.
type Value = liquid.Value

// Status is the outcome of one action or state evaluation.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "failure"
}

// ErrorKind enumerates §7's error taxonomy as it surfaces at the action
// level (executor-level errors like NoTransitionMatched are reported in the
// RunResult returned from Run, not via ActionResult).
type ErrorKind string

const (
	ErrPromptNotFound   ErrorKind = "PromptNotFound"
	ErrWorkflowNotFound ErrorKind = "WorkflowNotFound"
	ErrMissingArgument  ErrorKind = "MissingArgument"
	ErrRender           ErrorKind = "RenderError"
	ErrCycleDetected    ErrorKind = "CycleDetected"
	ErrNoInputProvider  ErrorKind = "NoInputProvider"
	ErrTransient        ErrorKind = "Transient"
	ErrRateLimit        ErrorKind = "RateLimit"
	ErrCancelled        ErrorKind = "Cancelled"
)

// ActionError is the diagnostic payload of a Failure ActionResult.
type ActionError struct {
	Kind    ErrorKind
	Message string
}

func (e *ActionError) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Kind) + ": " + e.Message
}

// ActionResult is what evaluating one ActionRecord (or an entire state's
// action list) produces.
type ActionResult struct {
	Status Status
	Value  Value
	Error  *ActionError
}

// Succeeded reports whether this result counts as Success for guard
// routing.
func (r *ActionResult) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// ExecutionContext is the per-run mutable state §3 describes: variables,
// the most recent result ("previous"), every state's produced value
// addressable by id, and the workflow call stack used for cycle detection.
type ExecutionContext struct {
	Variables    map[string]Value
	Previous     *ActionResult
	StateResults map[string]Value
	WorkflowStack []string
	RunID        string
}

// NewExecutionContext creates a fresh context seeded with vars (typically
// RunWorkflow's rendered arguments, or empty for a top-level run). Per
// §9's pinned open question, Previous starts nil: a sub-workflow never
// inherits its caller's previous result.
func NewExecutionContext(vars map[string]Value, workflowStack []string) *ExecutionContext {
	if vars == nil {
		vars = map[string]Value{}
	}
	return &ExecutionContext{
		Variables:     vars,
		StateResults: map[string]Value{},
		WorkflowStack: append([]string(nil), workflowStack...),
		RunID:         uuid.NewString(),
	}
}

// previousValue returns the Value of the most recent result, or nil if no
// state has produced one yet (used by guard expressions' "previous").
func (c *ExecutionContext) previousValue() Value {
	if c.Previous == nil {
		return nil
	}
	return c.Previous.Value
}

// HasWorkflow reports whether name is already on the call stack, i.e.
// invoking it would form a cycle.
func (c *ExecutionContext) HasWorkflow(name string) bool {
	for _, n := range c.WorkflowStack {
		if n == name {
			return true
		}
	}
	return false
}

// scopeVars builds the flattened variable map a template render or guard
// evaluation sees: ambient variables, plus "state_results" and "previous"
// and "result" as addressable dotted paths, matching §4.3's resolution
// order (everything here is the "ambient ExecutionContext.variables" /
// "state-result dotted paths" tiers; template-local capture/assign and
// argument defaults are layered on top by the caller).
//
// §3 describes state results as addressable directly via "<StateId>.<field>"
// rather than nested under "state_results"; both forms are exposed here
// (the nested "state_results.<StateId>.<field>" path plus a top-level alias
// per state id), with ambient variables taking precedence over a same-named
// state id per §4.3's resolution order.
func (c *ExecutionContext) scopeVars(lastResult *ActionResult) map[string]Value {
	out := make(map[string]Value, len(c.Variables)+len(c.StateResults)+3)
	for k, v := range c.Variables {
		out[k] = v
	}
	sr := make(map[string]Value, len(c.StateResults))
	for k, v := range c.StateResults {
		sr[k] = v
	}
	for id, v := range sr {
		if _, exists := out[id]; !exists {
			out[id] = v
		}
	}
	out["state_results"] = sr
	out["previous"] = c.previousValue()
	if lastResult != nil {
		out["result"] = lastResult.Value
	}
	return out
}
