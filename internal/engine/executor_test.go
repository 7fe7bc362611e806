package engine

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/console"
)

func loadSnapshot(t *testing.T, files fstest.MapFS) *catalog.Snapshot {
	t.Helper()
	loader := &catalog.Loader{BuiltinFS: files}
	return loader.Load()
}

func workflowFile(mermaid, actions string) *fstest.MapFile {
	body := "```mermaid\nstateDiagram-v2\n" + mermaid + "```\n\n## Actions\n\n" + actions
	return &fstest.MapFile{Data: []byte(body)}
}

// TestLinearWorkflow covers spec §8 scenario 1: a linear run that sets a
// variable and completes in declaration order.
func TestLinearWorkflow(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/linear.md": workflowFile(
			"[*] --> start\nstart --> greet\ngreet --> [*]\n",
			"- start: Log \"hello\"\n- greet: Set x = \"world\"\n",
		),
	})
	wf, ok := snap.Workflow("linear")
	require.True(t, ok)

	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wf, execCtx, RunOptions{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Equal(t, "world", execCtx.Variables["x"])
	assert.Contains(t, execCtx.StateResults, "start")
	assert.Contains(t, execCtx.StateResults, "greet")
}

// TestGuardedBranching covers spec §8 scenario 2: OnSuccess/OnFailure
// routing off an ExecutePrompt action result.
func TestGuardedBranching(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"prompts/always-ok.md": {Data: []byte("---\ntitle: Always OK\n---\nok")},
		"workflows/guarded.md": workflowFile(
			"[*] --> check\ncheck --> pass: OnSuccess\ncheck --> fail: OnFailure\npass --> [*]\nfail --> [*]\n",
			"- check: Execute prompt \"always-ok\"\n",
		),
	})
	wf, ok := snap.Workflow("guarded")
	require.True(t, ok)

	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wf, execCtx, RunOptions{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Equal(t, "pass", result.FinalState)
}

// TestExpressionGuardRegex covers spec §8 scenario 3: a result.matches()
// guard routing off a Log action's rendered value.
func TestExpressionGuardRegex(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/loopy.md": workflowFile(
			"[*] --> loop\nloop --> done: result.matches(\"(?i)YES\")\nloop --> work: result.matches(\"(?i)NO\")\nwork --> loop\ndone --> [*]\n",
			"- loop: Log \"yes\"\n- work: Log \"retry\"\n",
		),
	})
	wf, ok := snap.Workflow("loopy")
	require.True(t, ok)

	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wf, execCtx, RunOptions{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Equal(t, "done", result.FinalState)
}

// TestSubWorkflowCycleRejection covers spec §8 scenario 4: workflow A runs
// B, B runs A, and the second A invocation fails with CycleDetected.
func TestSubWorkflowCycleRejection(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/a.md": workflowFile(
			"[*] --> runB\nrunB --> done: OnSuccess\nrunB --> fail: OnFailure\ndone --> [*]\nfail --> [*]\n",
			"- runB: Run workflow \"b\"\n",
		),
		"workflows/b.md": workflowFile(
			"[*] --> runA\nrunA --> [*]\n",
			"- runA: Run workflow \"a\"\n",
		),
	})
	wfA, ok := snap.Workflow("a")
	require.True(t, ok)

	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wfA, execCtx, RunOptions{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Equal(t, "fail", result.FinalState)
}

// TestPromptNotFoundFailure covers ExecutePrompt of a prompt that no tier
// defines: the action fails, and the OnFailure transition routes the run to
// "bad".
func TestPromptNotFoundFailure(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/missing.md": workflowFile(
			"[*] --> run\nrun --> ok: OnSuccess\nrun --> bad: OnFailure\nok --> [*]\nbad --> [*]\n",
			"- run: Execute prompt \"does-not-exist\"\n",
		),
	})
	wf, ok := snap.Workflow("missing")
	require.True(t, ok)

	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wf, execCtx, RunOptions{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, "bad", result.FinalState)
}

// TestCancellationLiveness covers spec §8's cancellation property: a long
// Wait is interrupted promptly when the context is canceled.
func TestCancellationLiveness(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/sleepy.md": workflowFile(
			"[*] --> nap\nnap --> [*]\n",
			"- nap: Wait 1 hours\n",
		),
	})
	wf, ok := snap.Workflow("sleepy")
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	execCtx := NewExecutionContext(nil, nil)
	start := time.Now()
	result, err := NewExecutor().Run(ctx, wf, execCtx, RunOptions{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, RunCancelled, result.Status)
	assert.Less(t, time.Since(start), time.Second)
}

// fixedChoiceProvider is a stub InputProvider whose Choose always returns a
// fixed answer, for exercising UserChoice without a real terminal.
type fixedChoiceProvider struct{ answer string }

func (p fixedChoiceProvider) ReadLine(context.Context) (string, error) {
	return p.answer, nil
}

func (p fixedChoiceProvider) Choose(_ context.Context, _ string, _ []string) (string, error) {
	return p.answer, nil
}

// TestUserChoiceBindsResult covers §4.6's UserChoice evaluation: the chosen
// value must be bound to result_binding, not just returned as the action's
// ActionResult.Value, so a later state can reference it by name.
func TestUserChoiceBindsResult(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/choose.md": workflowFile(
			"[*] --> ask\nask --> report\nreport --> [*]\n",
			"- ask: user_choice \"Pick one\" choices [\"red\", \"blue\"] result = \"pick\"\n"+
				"- report: Log \"chose {{ pick }}\"\n",
		),
	})
	wf, ok := snap.Workflow("choose")
	require.True(t, ok)

	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wf, execCtx, RunOptions{
		Snapshot:      snap,
		InputProvider: fixedChoiceProvider{answer: "blue"},
	})
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Equal(t, "blue", execCtx.Variables["pick"])
	assert.Equal(t, "chose blue", execCtx.StateResults["report"])
}

// TestStateResultDirectAddressing covers §3's "<StateId>.<field>" addressing
// form alongside the nested "state_results.<StateId>.<field>" path: both
// must resolve to the same produced value.
func TestStateResultDirectAddressing(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/direct.md": workflowFile(
			"[*] --> start\nstart --> report\nreport --> [*]\n",
			"- start: Log \"hello\"\n- report: Log \"{{ start }} / {{ state_results.start }}\"\n",
		),
	})
	wf, ok := snap.Workflow("direct")
	require.True(t, ok)

	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wf, execCtx, RunOptions{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Equal(t, "hello / hello", execCtx.StateResults["report"])
}

// TestNoTransitionMatchedFails covers the NoTransitionMatched failure path:
// a non-terminal state whose only transition's expression guard never
// evaluates true fails the run rather than looping forever.
func TestNoTransitionMatchedFails(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/stuck.md": workflowFile(
			"[*] --> start\nstart --> nowhere: result.contains(\"never\")\nnowhere --> [*]\n",
			"- start: Log \"hi\"\n",
		),
	})
	wf, ok := snap.Workflow("stuck")
	require.True(t, ok)

	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wf, execCtx, RunOptions{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, RunFailed, result.Status)
	assert.Equal(t, "NoTransitionMatched", result.ErrorKind)
}

// TestForkJoinMergesVariables exercises §4.7's fork/join branch concurrency:
// both branches run concurrently, and their variables are merged at the
// join by last-writer-wins.
func TestForkJoinMergesVariables(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/forked.md": workflowFile(
			"[*] --> splitter\nsplitter --> left: Always\nsplitter --> right: Always\nleft --> merge\nright --> merge\nmerge --> done\ndone --> [*]\n"+
				"splitter: <<fork>>\nmerge: <<join>>\n",
			"- left: Set a = \"left\"\n- right: Set b = \"right\"\n- merge: Log \"done\"\n",
		),
	})
	wf, ok := snap.Workflow("forked")
	require.True(t, ok)

	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wf, execCtx, RunOptions{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Equal(t, "left", execCtx.Variables["a"])
	assert.Equal(t, "right", execCtx.Variables["b"])
}

// TestSubWorkflowPreviousScoping pins spec §9's open question from the
// caller's side: on completion, the caller's Previous holds the
// sub-workflow's returned value, which is also bound to the result variable.
func TestSubWorkflowPreviousScoping(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/outer.md": workflowFile(
			"[*] --> before\nbefore --> call\ncall --> [*]\n",
			"- before: Set seed = \"unused\"\n- call: Run workflow \"inner\" result=\"r\"\n",
		),
		"workflows/inner.md": workflowFile(
			"[*] --> start\nstart --> produce\nproduce --> [*]\n",
			"- produce: Log \"inner-value\"\n",
		),
	})
	wfOuter, ok := snap.Workflow("outer")
	require.True(t, ok)

	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wfOuter, execCtx, RunOptions{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Equal(t, "inner-value", execCtx.Variables["r"])
	require.NotNil(t, execCtx.Previous)
	assert.Equal(t, "inner-value", execCtx.Previous.Value)
}

// TestGuardEvaluationFailureEmitsDiagnostic pins spec §9's second open
// question: a guard expression that fails to evaluate counts as false and
// emits a diagnostic, rather than aborting the run outright.
func TestGuardEvaluationFailureEmitsDiagnostic(t *testing.T) {
	snap := loadSnapshot(t, fstest.MapFS{
		"workflows/badguard.md": workflowFile(
			"[*] --> start\nstart --> next: result.matches(\"(unterminated\")\nnext --> [*]\n",
			"- start: Log \"hi\"\n",
		),
	})
	wf, ok := snap.Workflow("badguard")
	require.True(t, ok)

	var diags []console.Diagnostic
	execCtx := NewExecutionContext(nil, nil)
	result, err := NewExecutor().Run(context.Background(), wf, execCtx, RunOptions{Snapshot: snap, Diagnostics: &diags})
	require.NoError(t, err)
	assert.Equal(t, RunFailed, result.Status)
	assert.Equal(t, "NoTransitionMatched", result.ErrorKind)
	require.NotEmpty(t, diags)
	assert.Equal(t, "GuardEvaluationFailed", diags[0].Kind)
}
