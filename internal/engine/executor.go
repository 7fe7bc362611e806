package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/action"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/liquid"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/retry"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/workflow"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/console"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/logger"
)

var execLog = logger.New("engine:executor")

// RunStatus is the terminal disposition of a workflow run (§6's
// Completed/Failed/Cancelled exit codes).
type RunStatus int

const (
	RunCompleted RunStatus = iota
	RunFailed
	RunCancelled
)

func (s RunStatus) String() string {
	switch s {
	case RunCompleted:
		return "completed"
	case RunCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// RunResult is what Executor.Run returns: the terminal value and, on
// failure, the classified error.
type RunResult struct {
	Status     RunStatus
	Value      Value
	ErrorKind  string
	Message    string
	FinalState string
}

// RunOptions bundles the per-run wall-clock timeout and the InputProvider a
// host attaches, per SPEC_FULL's C7 detail.
type RunOptions struct {
	Snapshot      *catalog.Snapshot
	Timeout       time.Duration
	InputProvider InputProvider
	RetryPolicy   retry.Policy
	Diagnostics   *[]console.Diagnostic
	diagMu        *sync.Mutex
}

func (o RunOptions) emit(d console.Diagnostic) {
	if o.Diagnostics == nil || o.diagMu == nil {
		return
	}
	o.diagMu.Lock()
	defer o.diagMu.Unlock()
	*o.Diagnostics = append(*o.Diagnostics, d)
}

// Executor drives a parsed workflow.Workflow to completion per §4.7.
type Executor struct{}

// NewExecutor creates an Executor. Executor is stateless; one value can
// drive any number of concurrent runs.
func NewExecutor() *Executor {
	return &Executor{}
}

// Run executes wf to completion starting at its initial state, honoring
// ctx's cancellation and opts.Timeout. It never panics on workflow content;
// structural problems were already rejected at parse time (C4). wf's name is
// on execCtx.WorkflowStack for the duration of the run, so a sub-workflow
// that invokes wf again fails with CycleDetected.
func (ex *Executor) Run(ctx context.Context, wf *workflow.Workflow, execCtx *ExecutionContext, opts RunOptions) (*RunResult, error) {
	if opts.InputProvider == nil {
		opts.InputProvider = NullProvider{}
	}
	if opts.RetryPolicy == (retry.Policy{}) {
		opts.RetryPolicy = retry.DefaultPolicy
	}
	if opts.Diagnostics != nil && opts.diagMu == nil {
		opts.diagMu = &sync.Mutex{}
	}
	if !execCtx.HasWorkflow(wf.Name) {
		execCtx.WorkflowStack = append(execCtx.WorkflowStack, wf.Name)
		defer func() { execCtx.WorkflowStack = execCtx.WorkflowStack[:len(execCtx.WorkflowStack)-1] }()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return ex.run(ctx, wf, execCtx, opts)
}

// run is the internal recursion point RunWorkflow actions call back into;
// it does not re-derive a timeout (sub-workflows share the parent's
// deadline and cancellation, per §5).
func (ex *Executor) run(ctx context.Context, wf *workflow.Workflow, execCtx *ExecutionContext, opts RunOptions) (*RunResult, error) {
	env := &evalEnv{
		snap:       opts.Snapshot,
		input:      opts.InputProvider,
		policy:     opts.RetryPolicy,
		executor:   ex,
		runOpts:    opts,
		transcript: NewTranscript(256),
	}

	current := wf.InitialID
	for {
		if ctx.Err() != nil {
			return &RunResult{Status: RunCancelled, FinalState: current, Message: "run cancelled"}, nil
		}

		state, ok := wf.StateByID(current)
		if !ok {
			return nil, fmt.Errorf("internal error: current state %q not found", current)
		}

		if state.Kind == workflow.StateFork {
			next, result, err := ex.runFork(ctx, wf, state, execCtx, env, opts)
			if err != nil {
				return nil, err
			}
			if result != nil {
				return result, nil
			}
			current = next
			continue
		}

		lastResult := runActions(ctx, state.Actions, env, execCtx)
		execCtx.StateResults[state.ID] = lastResult.Value
		execCtx.Previous = lastResult

		if ctx.Err() != nil {
			return &RunResult{Status: RunCancelled, FinalState: current, Message: "run cancelled"}, nil
		}

		transition, matched := selectTransition(wf.OutgoingTransitions(state.ID), execCtx, lastResult, opts)
		if !matched {
			if wf.IsTerminal(state.ID) {
				return &RunResult{Status: RunCompleted, Value: lastResult.Value, FinalState: state.ID}, nil
			}
			return &RunResult{
				Status:     RunFailed,
				ErrorKind:  "NoTransitionMatched",
				Message:    fmt.Sprintf("no transition matched out of state %q", state.ID),
				FinalState: state.ID,
			}, nil
		}
		current = transition.To
	}
}

// runActions evaluates a state's actions in declaration order, stopping at
// the first Failure (which becomes the state's result, not an immediate
// run failure, so OnFailure transitions can route it) per §4.7 point 1.
func runActions(ctx context.Context, actions []*action.Record, env *evalEnv, execCtx *ExecutionContext) *ActionResult {
	var last *ActionResult = &ActionResult{Status: StatusSuccess}
	for _, rec := range actions {
		if ctx.Err() != nil {
			return &ActionResult{Status: StatusFailure, Error: &ActionError{Kind: ErrCancelled, Message: "cancelled"}}
		}
		last = env.EvaluateAction(ctx, rec, execCtx)
		if last.Status == StatusFailure {
			return last
		}
	}
	return last
}

// selectTransition returns the first transition (in declared order) whose
// guard evaluates true.
func selectTransition(transitions []workflow.Transition, execCtx *ExecutionContext, lastResult *ActionResult, opts RunOptions) (workflow.Transition, bool) {
	for _, t := range transitions {
		if evalGuardKind(t.Guard, execCtx, lastResult, opts) {
			return t, true
		}
	}
	return workflow.Transition{}, false
}

func evalGuardKind(g workflow.Guard, execCtx *ExecutionContext, lastResult *ActionResult, opts RunOptions) bool {
	switch g.Kind {
	case workflow.GuardAlways:
		return true
	case workflow.GuardOnSuccess:
		return lastResult.Succeeded()
	case workflow.GuardOnFailure:
		return lastResult != nil && lastResult.Status == StatusFailure
	case workflow.GuardExpression:
		ok, err := EvalGuardExpression(g.Expression, execCtx, lastResult)
		if err != nil {
			opts.emit(console.Diagnostic{
				Severity: "warning",
				Kind:     "GuardEvaluationFailed",
				Message:  fmt.Sprintf("guard expression %q failed to evaluate: %v (treated as false)", g.Expression, err),
			})
			return false
		}
		return ok
	default:
		return false
	}
}

// runFork evaluates a fork state's own actions, then runs every branch
// whose guard passes concurrently (via conc/pool) up to the nearest join
// or terminal state. See SPEC_FULL's C7 detail and the §9 design note on
// fork/join matching.
func (ex *Executor) runFork(ctx context.Context, wf *workflow.Workflow, state *workflow.State, execCtx *ExecutionContext, env *evalEnv, opts RunOptions) (next string, result *RunResult, err error) {
	lastResult := runActions(ctx, state.Actions, env, execCtx)
	execCtx.StateResults[state.ID] = lastResult.Value
	execCtx.Previous = lastResult

	var branchStarts []string
	for _, t := range wf.OutgoingTransitions(state.ID) {
		if evalGuardKind(t.Guard, execCtx, lastResult, opts) {
			branchStarts = append(branchStarts, t.To)
		}
	}
	if len(branchStarts) == 0 {
		return "", &RunResult{
			Status:     RunFailed,
			ErrorKind:  "NoTransitionMatched",
			Message:    fmt.Sprintf("fork state %q has no passing outgoing transition", state.ID),
			FinalState: state.ID,
		}, nil
	}

	outcomes := make([]branchOutcome, len(branchStarts))
	p := pool.New().WithErrors()
	for i, start := range branchStarts {
		i, start := i, start
		p.Go(func() error {
			branchVars := map[string]Value{}
			for k, v := range execCtx.Variables {
				branchVars[k] = v
			}
			branchCtx := &ExecutionContext{
				Variables:     branchVars,
				StateResults:  map[string]Value{},
				WorkflowStack: execCtx.WorkflowStack,
				RunID:         execCtx.RunID,
			}
			out, err := ex.runBranch(ctx, wf, start, branchCtx, env, opts)
			outcomes[i] = out
			outcomes[i].index = i
			if err != nil {
				outcomes[i].branchErr = err
			}
			return err
		})
	}
	if werr := p.Wait(); werr != nil {
		return "", nil, werr
	}

	for _, o := range outcomes {
		if o.terminal != nil {
			return "", o.terminal, nil
		}
	}

	joinCounts := map[string]int{}
	for _, o := range outcomes {
		joinCounts[o.joinID]++
	}
	winningJoin := outcomes[0].joinID
	if len(joinCounts) > 1 {
		opts.emit(console.Diagnostic{
			Severity: "warning",
			Kind:     "ForkJoinMismatch",
			Message:  fmt.Sprintf("fork branches from %q reached different join states; using %q", state.ID, winningJoin),
		})
	}

	for _, o := range outcomes {
		for k, v := range o.vars {
			if existing, ok := execCtx.Variables[k]; ok && !equalBranchValue(existing, v) {
				opts.emit(console.Diagnostic{
					Severity: "warning",
					Kind:     "ForkVariableConflict",
					Message:  fmt.Sprintf("fork join: variable %q set by multiple branches; last writer wins", k),
				})
			}
			execCtx.Variables[k] = v
		}
		for k, v := range o.results {
			execCtx.StateResults[k] = v
		}
	}

	return winningJoin, nil, nil
}

func equalBranchValue(a, b Value) bool {
	return liquid.AsString(a) == liquid.AsString(b)
}

// branchOutcome is what one fork branch produces: either it reached a
// join state (joinID/vars/results populated) or a terminal state
// (terminal populated), signaling the whole run should complete.
type branchOutcome struct {
	index     int
	joinID    string
	terminal  *RunResult
	vars      map[string]Value
	results   map[string]Value
	branchErr error
}

// runBranch walks forward from start, exactly like the serial loop in run,
// until it reaches a join-kind state (returns its id) or a terminal state
// (returns a completed RunResult for the whole run).
func (ex *Executor) runBranch(ctx context.Context, wf *workflow.Workflow, start string, branchCtx *ExecutionContext, env *evalEnv, opts RunOptions) (outcome branchOutcome, err error) {
	current := start
	for {
		if ctx.Err() != nil {
			return outcome, nil
		}
		state, ok := wf.StateByID(current)
		if !ok {
			return outcome, fmt.Errorf("internal error: branch state %q not found", current)
		}
		if state.Kind == workflow.StateJoin {
			outcome.joinID = current
			outcome.vars = branchCtx.Variables
			outcome.results = branchCtx.StateResults
			return outcome, nil
		}

		lastResult := runActions(ctx, state.Actions, env, branchCtx)
		branchCtx.StateResults[state.ID] = lastResult.Value
		branchCtx.Previous = lastResult

		if wf.IsTerminal(state.ID) {
			outcome.terminal = &RunResult{Status: RunCompleted, Value: lastResult.Value, FinalState: state.ID}
			return outcome, nil
		}

		transition, matched := selectTransition(wf.OutgoingTransitions(state.ID), branchCtx, lastResult, opts)
		if !matched {
			outcome.terminal = &RunResult{
				Status:     RunFailed,
				ErrorKind:  "NoTransitionMatched",
				Message:    fmt.Sprintf("no transition matched out of branch state %q", state.ID),
				FinalState: state.ID,
			}
			return outcome, nil
		}
		current = transition.To
	}
}
