package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinearWorkflow(t *testing.T) {
	body := "```mermaid\n" +
		"stateDiagram-v2\n" +
		"[*] --> start\n" +
		"start --> greet\n" +
		"greet --> [*]\n" +
		"```\n\n" +
		"## Actions\n\n" +
		"- start: Log \"hello\"\n" +
		"- greet: Set x = \"world\"\n"

	w, err := Parse(ParseInput{Name: "linear", Body: body})
	require.NoError(t, err)
	assert.Equal(t, "start", w.InitialID)
	assert.True(t, w.IsTerminal("greet"))
	assert.Len(t, w.States["start"].Actions, 1)
	assert.Len(t, w.States["greet"].Actions, 1)
}

func TestParseGuardedBranching(t *testing.T) {
	body := "```mermaid\n" +
		"stateDiagram-v2\n" +
		"[*] --> check\n" +
		"check --> pass: OnSuccess\n" +
		"check --> fail: OnFailure\n" +
		"pass --> [*]\n" +
		"fail --> [*]\n" +
		"```\n\n" +
		"## Actions\n\n" +
		"- check: Execute prompt \"always-ok\"\n"

	w, err := Parse(ParseInput{Name: "guarded", Body: body})
	require.NoError(t, err)
	transitions := w.OutgoingTransitions("check")
	require.Len(t, transitions, 2)
	assert.Equal(t, GuardOnSuccess, transitions[0].Guard.Kind)
	assert.Equal(t, GuardOnFailure, transitions[1].Guard.Kind)
}

func TestParseExpressionGuard(t *testing.T) {
	body := "```mermaid\n" +
		"stateDiagram-v2\n" +
		"[*] --> loop\n" +
		"loop --> done: result.matches(\"(?i)YES\")\n" +
		"loop --> work: result.matches(\"(?i)NO\")\n" +
		"work --> loop\n" +
		"done --> [*]\n" +
		"```\n\n" +
		"## Actions\n\n" +
		"- loop: Log \"tick\"\n" +
		"- work: Log \"working\"\n"

	w, err := Parse(ParseInput{Name: "expr", Body: body})
	require.NoError(t, err)
	transitions := w.OutgoingTransitions("loop")
	require.Len(t, transitions, 2)
	assert.Equal(t, GuardExpression, transitions[0].Guard.Kind)
	assert.Equal(t, `result.matches("(?i)YES")`, transitions[0].Guard.Expression)
}

func TestParseForkJoin(t *testing.T) {
	body := "```mermaid\n" +
		"stateDiagram-v2\n" +
		"state split <<fork>>\n" +
		"state merge <<join>>\n" +
		"[*] --> split\n" +
		"split --> a\n" +
		"split --> b\n" +
		"a --> merge\n" +
		"b --> merge\n" +
		"merge --> [*]\n" +
		"```\n"

	w, err := Parse(ParseInput{Name: "forkjoin", Body: body})
	require.NoError(t, err)
	assert.Equal(t, StateFork, w.States["split"].Kind)
	assert.Equal(t, StateJoin, w.States["merge"].Kind)
}

// TestParseDanglingForkFails covers SPEC_FULL's C4 expansion: a <<fork>>
// state that can never reach a <<join>> or terminal state is rejected at
// parse time rather than left to hang at run time.
func TestParseDanglingForkFails(t *testing.T) {
	body := "```mermaid\n" +
		"stateDiagram-v2\n" +
		"state split <<fork>>\n" +
		"[*] --> split\n" +
		"split --> a\n" +
		"split --> b\n" +
		"a --> a\n" +
		"b --> b\n" +
		"```\n"

	_, err := Parse(ParseInput{Name: "danglingfork", Body: body})
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, "InvalidStructure", perr.Kind)
	assert.Contains(t, perr.Msg, "split")
}

func TestParseMissingInitialState(t *testing.T) {
	body := "```mermaid\nstateDiagram-v2\na --> b\nb --> [*]\n```\n"
	_, err := Parse(ParseInput{Name: "noinitial", Body: body})
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, "InvalidStructure", perr.Kind)
}

func TestParseUnreachableState(t *testing.T) {
	body := "```mermaid\n" +
		"stateDiagram-v2\n" +
		"[*] --> start\n" +
		"start --> [*]\n" +
		"orphan --> [*]\n" +
		"```\n"
	_, err := Parse(ParseInput{Name: "unreachable", Body: body})
	require.Error(t, err)
}

func TestParseInvalidActionLine(t *testing.T) {
	body := "```mermaid\n" +
		"stateDiagram-v2\n" +
		"[*] --> start\n" +
		"start --> [*]\n" +
		"```\n\n" +
		"## Actions\n\n" +
		"- start: frobnicate \"nope\"\n"
	_, err := Parse(ParseInput{Name: "badaction", Body: body})
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, "InvalidAction", perr.Kind)
}
