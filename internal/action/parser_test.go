package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLog(t *testing.T) {
	rec, err := Parse(`log "hello"`)
	require.NoError(t, err)
	assert.Equal(t, KindLog, rec.Kind)
	assert.Equal(t, LogInfo, rec.Level)
	assert.Equal(t, "hello", rec.Message)

	rec, err = Parse(`log warning "careful"`)
	require.NoError(t, err)
	assert.Equal(t, LogWarning, rec.Level)
	assert.Equal(t, "careful", rec.Message)
}

func TestParseSet(t *testing.T) {
	rec, err := Parse(`set x = "world"`)
	require.NoError(t, err)
	assert.Equal(t, KindSetVariable, rec.Kind)
	assert.Equal(t, "x", rec.VarName)
	assert.Equal(t, "world", rec.VarValue)
}

func TestParseExecutePrompt(t *testing.T) {
	rec, err := Parse(`execute prompt "always-ok" with name = "sah" result = "r"`)
	require.NoError(t, err)
	assert.Equal(t, KindExecutePrompt, rec.Kind)
	assert.Equal(t, "always-ok", rec.TargetName)
	assert.Equal(t, "sah", rec.Arguments["name"])
	assert.Equal(t, "r", rec.ResultBinding)
}

func TestParseExecutePromptMinimal(t *testing.T) {
	rec, err := Parse(`execute prompt "greet"`)
	require.NoError(t, err)
	assert.Equal(t, "greet", rec.TargetName)
	assert.Empty(t, rec.ResultBinding)
	assert.Empty(t, rec.Arguments)
}

func TestParseRunWorkflow(t *testing.T) {
	rec, err := Parse(`run workflow "sub" with x = "1" result = "out"`)
	require.NoError(t, err)
	assert.Equal(t, KindRunWorkflow, rec.Kind)
	assert.Equal(t, "sub", rec.TargetName)
	assert.Equal(t, "1", rec.Arguments["x"])
	assert.Equal(t, "out", rec.ResultBinding)

	rec, err = Parse(`delegate to "sub"`)
	require.NoError(t, err)
	assert.Equal(t, "sub", rec.TargetName)
}

func TestParseWait(t *testing.T) {
	rec, err := Parse(`wait 5 seconds`)
	require.NoError(t, err)
	assert.Equal(t, KindWait, rec.Kind)
	assert.Equal(t, WaitDuration, rec.WaitKind)
	assert.Equal(t, "5", rec.WaitDuration)
	assert.Equal(t, "seconds", rec.WaitUnit)

	rec, err = Parse(`wait for user input`)
	require.NoError(t, err)
	assert.Equal(t, WaitUserInput, rec.WaitKind)
}

func TestParseUserChoice(t *testing.T) {
	rec, err := Parse(`user_choice "Pick one" choices ["a", "b", "c"] result = "pick"`)
	require.NoError(t, err)
	assert.Equal(t, KindUserChoice, rec.Kind)
	assert.Equal(t, "Pick one", rec.ChoicePrompt)
	assert.Equal(t, []string{"a", "b", "c"}, rec.Choices)
	assert.Equal(t, "pick", rec.ResultBinding)
}

func TestParseInvalidAction(t *testing.T) {
	_, err := Parse(`frobnicate "nope"`)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseEscapes(t *testing.T) {
	rec, err := Parse(`log "she said \"hi\""`)
	require.NoError(t, err)
	assert.Equal(t, `she said "hi"`, rec.Message)
}

func TestParserRoundTrip(t *testing.T) {
	lines := []string{
		`log "hello"`,
		`log warning "careful"`,
		`set x = "world"`,
		`execute prompt "greet" with name = "sah" result = "r"`,
		`run workflow "sub" with x = "1" result = "out"`,
		`wait 5 seconds`,
		`wait for user input`,
		`user_choice "Pick one" choices ["a", "b"] result = "pick"`,
	}
	for _, line := range lines {
		rec, err := Parse(line)
		require.NoError(t, err, line)
		again, err := Parse(rec.String())
		require.NoError(t, err, rec.String())
		assert.Equal(t, rec, again, "round trip for %q", line)
	}
}
