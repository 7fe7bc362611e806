package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/action"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/liquid"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/retry"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/logger"
)

var evalLog = logger.New("engine:evaluator")

// InputProvider is the capability an embedding host supplies for
// interactive actions (§6). NullProvider is used when no host is attached;
// Wait-for-user-input and UserChoice then fail with NoInputProvider.
type InputProvider interface {
	ReadLine(ctx context.Context) (string, error)
	Choose(ctx context.Context, prompt string, choices []string) (string, error)
}

// NullProvider is the zero InputProvider: every call fails with
// NoInputProvider, matching §6's "a null provider is permitted" clause.
type NullProvider struct{}

func (NullProvider) ReadLine(context.Context) (string, error) {
	return "", &ActionError{Kind: ErrNoInputProvider, Message: "no input provider configured"}
}

func (NullProvider) Choose(context.Context, string, []string) (string, error) {
	return "", &ActionError{Kind: ErrNoInputProvider, Message: "no input provider configured"}
}

// evalEnv bundles everything one action evaluation needs beyond the
// ActionRecord and ExecutionContext: the catalog snapshot to resolve
// prompts/workflows against, the InputProvider, the retry policy, and a
// back-reference to the Executor so ExecutePrompt/RunWorkflow can recurse.
type evalEnv struct {
	snap     *catalog.Snapshot
	input    InputProvider
	policy   retry.Policy
	executor *Executor
	runOpts  RunOptions
	transcript *Transcript
}

// EvaluateAction runs one ActionRecord against ctx, producing an
// ActionResult per §4.6. Retry policy applies only to failures classified
// as Transient/RateLimit (external-action failures); parse/lookup/cycle
// failures propagate on the first attempt.
func (e *evalEnv) EvaluateAction(goCtx context.Context, rec *action.Record, execCtx *ExecutionContext) *ActionResult {
	var result *ActionResult
	err := retry.Do(goCtx, e.policy, "action:"+rec.Raw, func() error {
		result = e.evaluateOnce(goCtx, rec, execCtx)
		if result.Status == StatusFailure && result.Error != nil {
			switch result.Error.Kind {
			case ErrTransient:
				return fmt.Errorf("%s: %w", result.Error.Message, retry.ErrTransient)
			case ErrRateLimit:
				return fmt.Errorf("%s: %w", result.Error.Message, retry.ErrRateLimit)
			}
		}
		return nil
	})
	if err != nil && result == nil {
		return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrTransient, Message: err.Error()}}
	}
	return result
}

func (e *evalEnv) evaluateOnce(goCtx context.Context, rec *action.Record, execCtx *ExecutionContext) *ActionResult {
	scope := e.renderScope(execCtx, false)

	switch rec.Kind {
	case action.KindLog:
		msg, err := liquid.Render(rec.Message, scope, catalogResolver{e.snap})
		if err != nil {
			return renderFailure(err)
		}
		e.logMessage(rec.Level, msg)
		return &ActionResult{Status: StatusSuccess, Value: msg}

	case action.KindSetVariable:
		val, err := liquid.Render(rec.VarValue, scope, catalogResolver{e.snap})
		if err != nil {
			return renderFailure(err)
		}
		execCtx.Variables[rec.VarName] = val
		return &ActionResult{Status: StatusSuccess, Value: val}

	case action.KindExecutePrompt:
		return e.evalExecutePrompt(rec, execCtx, scope)

	case action.KindRunWorkflow:
		return e.evalRunWorkflow(goCtx, rec, execCtx, scope)

	case action.KindWait:
		return e.evalWait(goCtx, rec, scope)

	case action.KindUserChoice:
		return e.evalUserChoice(goCtx, rec, execCtx, scope)

	default:
		return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrRender, Message: "unknown action kind"}}
	}
}

// renderScope builds a liquid.Scope seeded from execCtx's variables plus
// the dotted state_results/previous/result paths, honoring strict mode
// when the current artifact requests it.
func (e *evalEnv) renderScope(execCtx *ExecutionContext, strict bool) *liquid.Scope {
	vars := execCtx.scopeVars(execCtx.Previous)
	scope := liquid.NewScope(vars)
	scope.Strict = strict
	return scope
}

func renderFailure(err error) *ActionResult {
	return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrRender, Message: err.Error()}}
}

func (e *evalEnv) logMessage(level action.LogLevel, msg string) {
	if e.transcript != nil {
		e.transcript.Append(level, msg)
	}
	switch level {
	case action.LogError:
		evalLog.Printf("ERROR: %s", msg)
	case action.LogWarning:
		evalLog.Printf("WARN: %s", msg)
	default:
		evalLog.Printf("%s", msg)
	}
}

func (e *evalEnv) evalExecutePrompt(rec *action.Record, execCtx *ExecutionContext, scope *liquid.Scope) *ActionResult {
	prompt, ok := e.snap.Prompt(rec.TargetName)
	if !ok {
		return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrPromptNotFound, Message: "prompt not found: " + rec.TargetName}}
	}

	args := map[string]string{}
	for _, name := range rec.ArgumentOrder {
		rendered, err := liquid.Render(rec.Arguments[name], scope, catalogResolver{e.snap})
		if err != nil {
			return renderFailure(err)
		}
		args[name] = rendered
	}

	rendered, actErr := RenderPrompt(e.snap, prompt, args, execCtx.Variables)
	if actErr != nil {
		return &ActionResult{Status: StatusFailure, Error: actErr}
	}

	if rec.ResultBinding != "" {
		execCtx.Variables[rec.ResultBinding] = rendered
	}
	return &ActionResult{Status: StatusSuccess, Value: rendered}
}

func (e *evalEnv) evalRunWorkflow(goCtx context.Context, rec *action.Record, execCtx *ExecutionContext, scope *liquid.Scope) *ActionResult {
	if execCtx.HasWorkflow(rec.TargetName) {
		return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrCycleDetected, Message: "workflow cycle detected: " + rec.TargetName}}
	}
	wf, ok := e.snap.Workflow(rec.TargetName)
	if !ok {
		return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrWorkflowNotFound, Message: "workflow not found: " + rec.TargetName}}
	}

	childVars := map[string]liquid.Value{}
	for _, name := range rec.ArgumentOrder {
		rendered, err := liquid.Render(rec.Arguments[name], scope, catalogResolver{e.snap})
		if err != nil {
			return renderFailure(err)
		}
		childVars[name] = rendered
	}

	childStack := append(append([]string(nil), execCtx.WorkflowStack...), rec.TargetName)
	childCtx := NewExecutionContext(childVars, childStack)

	result, err := e.executor.run(goCtx, wf, childCtx, e.runOpts)
	if err != nil {
		return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrRender, Message: err.Error()}}
	}

	if rec.ResultBinding != "" {
		execCtx.Variables[rec.ResultBinding] = result.Value
	}
	// Pinned open question: the caller's Previous becomes the sub-workflow's
	// returned value on completion.
	execCtx.Previous = &ActionResult{Status: runStatusToActionStatus(result.Status), Value: result.Value}

	if result.Status != RunCompleted {
		return &ActionResult{Status: StatusFailure, Value: result.Value, Error: &ActionError{Kind: ErrorKind(result.ErrorKind), Message: result.Message}}
	}
	return &ActionResult{Status: StatusSuccess, Value: result.Value}
}

func runStatusToActionStatus(s RunStatus) Status {
	if s == RunCompleted {
		return StatusSuccess
	}
	return StatusFailure
}

func (e *evalEnv) evalWait(goCtx context.Context, rec *action.Record, scope *liquid.Scope) *ActionResult {
	if rec.WaitKind == action.WaitUserInput {
		line, err := e.input.ReadLine(goCtx)
		if err != nil {
			if ae, ok := err.(*ActionError); ok {
				return &ActionResult{Status: StatusFailure, Error: ae}
			}
			return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrNoInputProvider, Message: err.Error()}}
		}
		return &ActionResult{Status: StatusSuccess, Value: line}
	}

	n, err := strconv.Atoi(rec.WaitDuration)
	if err != nil {
		return renderFailure(err)
	}
	d := durationFromUnit(n, rec.WaitUnit)

	select {
	case <-goCtx.Done():
		return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrCancelled, Message: "cancelled during wait"}}
	case <-time.After(d):
	}
	return &ActionResult{Status: StatusSuccess, Value: d.String()}
}

func durationFromUnit(n int, unit string) time.Duration {
	switch unit {
	case "second", "seconds":
		return time.Duration(n) * time.Second
	case "minute", "minutes":
		return time.Duration(n) * time.Minute
	case "hour", "hours":
		return time.Duration(n) * time.Hour
	default:
		return time.Duration(n) * time.Second
	}
}

func (e *evalEnv) evalUserChoice(goCtx context.Context, rec *action.Record, execCtx *ExecutionContext, scope *liquid.Scope) *ActionResult {
	prompt, err := liquid.Render(rec.ChoicePrompt, scope, catalogResolver{e.snap})
	if err != nil {
		return renderFailure(err)
	}
	choices := make([]string, len(rec.Choices))
	for i, c := range rec.Choices {
		rendered, err := liquid.Render(c, scope, catalogResolver{e.snap})
		if err != nil {
			return renderFailure(err)
		}
		choices[i] = rendered
	}
	chosen, err := e.input.Choose(goCtx, prompt, choices)
	if err != nil {
		if ae, ok := err.(*ActionError); ok {
			return &ActionResult{Status: StatusFailure, Error: ae}
		}
		return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrNoInputProvider, Message: err.Error()}}
	}
	if rec.ResultBinding != "" {
		execCtx.Variables[rec.ResultBinding] = chosen
	}
	return &ActionResult{Status: StatusSuccess, Value: chosen, Error: nil}
}
