package liquid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, src string, vars map[string]Value) string {
	t.Helper()
	out, err := Render(src, NewScope(vars), nil)
	require.NoError(t, err)
	return out
}

func TestRenderVariableInterpolation(t *testing.T) {
	out := render(t, "hello {{ name }}!", map[string]Value{"name": "world"})
	assert.Equal(t, "hello world!", out)
}

func TestRenderUndefinedVariableIsEmptyByDefault(t *testing.T) {
	out := render(t, "x=[{{ missing }}]", nil)
	assert.Equal(t, "x=[]", out)
}

func TestRenderStrictUndefinedVariableFails(t *testing.T) {
	scope := NewScope(nil)
	scope.Strict = true
	_, err := Render("{{ missing }}", scope, nil)
	require.Error(t, err)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "UndefinedVariable", rerr.Kind)
}

func TestRenderFilters(t *testing.T) {
	cases := []struct {
		src  string
		vars map[string]Value
		want string
	}{
		{`{{ name | upcase }}`, map[string]Value{"name": "bob"}, "BOB"},
		{`{{ name | downcase }}`, map[string]Value{"name": "BOB"}, "bob"},
		{`{{ " hi " | strip }}`, nil, "hi"},
		{`{{ name | capitalize }}`, map[string]Value{"name": "bob"}, "Bob"},
		{`{{ list | size }}`, map[string]Value{"list": []Value{"a", "b", "c"}}, "3"},
		{`{{ list | join: ", " }}`, map[string]Value{"list": []Value{"a", "b"}}, "a, b"},
		{`{{ "a,b,c" | split: "," | join: "-" }}`, nil, "a-b-c"},
		{`{{ list | first }}`, map[string]Value{"list": []Value{"a", "b"}}, "a"},
		{`{{ list | last }}`, map[string]Value{"list": []Value{"a", "b"}}, "b"},
		{`{{ list | sort | join: "," }}`, map[string]Value{"list": []Value{3, 1, 2}}, "1,2,3"},
		{`{{ list | reverse | join: "," }}`, map[string]Value{"list": []Value{1, 2, 3}}, "3,2,1"},
		{`{{ list | uniq | join: "," }}`, map[string]Value{"list": []Value{1, 1, 2}}, "1,2"},
		{`{{ n | plus: 2 }}`, map[string]Value{"n": int64(3)}, "5"},
		{`{{ n | minus: 2 }}`, map[string]Value{"n": int64(3)}, "1"},
		{`{{ n | times: 3 }}`, map[string]Value{"n": int64(3)}, "9"},
		{`{{ n | divided_by: 2 }}`, map[string]Value{"n": int64(10)}, "5"},
		{`{{ n | modulo: 3 }}`, map[string]Value{"n": int64(10)}, "1"},
		{`{{ f | round }}`, map[string]Value{"f": 3.6}, "4"},
		{`{{ name | append: "!" }}`, map[string]Value{"name": "hi"}, "hi!"},
		{`{{ name | prepend: ">" }}`, map[string]Value{"name": "hi"}, ">hi"},
		{`{{ s | truncate: 5 }}`, map[string]Value{"s": "abcdefgh"}, "ab..."},
		{`{{ s | replace: "a", "b" }}`, map[string]Value{"s": "banana"}, "bbnbnb"},
		{`{{ s | remove: "a" }}`, map[string]Value{"s": "banana"}, "bnn"},
		{`{{ name | default: "anon" }}`, map[string]Value{"name": ""}, "anon"},
	}
	for _, c := range cases {
		out := render(t, c.src, c.vars)
		assert.Equal(t, c.want, out, c.src)
	}
}

func TestRenderUnknownFilter(t *testing.T) {
	_, err := Render("{{ x | bogus }}", NewScope(map[string]Value{"x": "a"}), nil)
	require.Error(t, err)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "UnknownFilter", rerr.Kind)
}

func TestRenderDividedByZero(t *testing.T) {
	_, err := Render("{{ x | divided_by: 0 }}", NewScope(map[string]Value{"x": int64(1)}), nil)
	require.Error(t, err)
}

func TestRenderIfElse(t *testing.T) {
	src := `{% if flag %}yes{% else %}no{% endif %}`
	assert.Equal(t, "yes", render(t, src, map[string]Value{"flag": true}))
	assert.Equal(t, "no", render(t, src, map[string]Value{"flag": false}))
}

func TestRenderIfElsif(t *testing.T) {
	src := `{% if n == 1 %}one{% elsif n == 2 %}two{% else %}many{% endif %}`
	assert.Equal(t, "one", render(t, src, map[string]Value{"n": int64(1)}))
	assert.Equal(t, "two", render(t, src, map[string]Value{"n": int64(2)}))
	assert.Equal(t, "many", render(t, src, map[string]Value{"n": int64(9)}))
}

func TestRenderForLoopWithForloopVars(t *testing.T) {
	src := `{% for x in items %}{{ forloop.index }}:{{ x }}{% if forloop.last %}.{% else %}, {% endif %}{% endfor %}`
	out := render(t, src, map[string]Value{"items": []Value{"a", "b"}})
	assert.Equal(t, "1:a, 2:b.", out)
}

func TestRenderCase(t *testing.T) {
	src := `{% case kind %}{% when "a" %}A{% when "b", "c" %}BC{% else %}other{% endcase %}`
	assert.Equal(t, "A", render(t, src, map[string]Value{"kind": "a"}))
	assert.Equal(t, "BC", render(t, src, map[string]Value{"kind": "c"}))
	assert.Equal(t, "other", render(t, src, map[string]Value{"kind": "z"}))
}

func TestRenderCapture(t *testing.T) {
	src := `{% capture greeting %}hello {{ name }}{% endcapture %}{{ greeting | upcase }}`
	out := render(t, src, map[string]Value{"name": "bob"})
	assert.Equal(t, "HELLO BOB", out)
}

func TestRenderAssign(t *testing.T) {
	src := `{% assign x = "hi" %}{{ x }}`
	assert.Equal(t, "hi", render(t, src, nil))
}

func TestRenderAssignVisibleAfterForLoop(t *testing.T) {
	src := `{% for x in items %}{% assign last = x %}{% endfor %}{{ last }}`
	out := render(t, src, map[string]Value{"items": []Value{"a", "b", "c"}})
	assert.Equal(t, "c", out)
}

func TestRenderCycle(t *testing.T) {
	src := `{% for x in items %}{% cycle "a", "b" %}{% endfor %}`
	out := render(t, src, map[string]Value{"items": []Value{1, 2, 3, 4}})
	assert.Equal(t, "abab", out)
}

func TestRenderComment(t *testing.T) {
	src := `before{% comment %}{{ this_never_evaluates }}{% endcomment %}after`
	out := render(t, src, nil)
	assert.Equal(t, "beforeafter", out)
}

func TestRenderComparisonOperators(t *testing.T) {
	assert.Equal(t, "true", render(t, `{{ 1 < 2 }}`, nil))
	assert.Equal(t, "false", render(t, `{{ 2 < 1 }}`, nil))
	assert.Equal(t, "true", render(t, `{{ "a" == "a" }}`, nil))
	assert.Equal(t, "true", render(t, `{{ "hello world" contains "world" }}`, nil))
}

func TestRenderAndOr(t *testing.T) {
	assert.Equal(t, "true", render(t, `{{ true and true }}`, nil))
	assert.Equal(t, "false", render(t, `{{ true and false }}`, nil))
	assert.Equal(t, "true", render(t, `{{ false or true }}`, nil))
}

func TestRenderDottedPath(t *testing.T) {
	out := render(t, `{{ state.check.value }}`, map[string]Value{
		"state": map[string]Value{
			"check": map[string]Value{"value": "ok"},
		},
	})
	assert.Equal(t, "ok", out)
}

func TestRenderIndexedPath(t *testing.T) {
	out := render(t, `{{ items[1] }}`, map[string]Value{"items": []Value{"a", "b", "c"}})
	assert.Equal(t, "b", out)
}

type mapResolver map[string]string

func (m mapResolver) ResolvePartial(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func TestRenderPartial(t *testing.T) {
	resolver := mapResolver{"greeting": "Hello, {{ name }}!"}
	out, err := Render(`{% render "greeting" %}`, NewScope(map[string]Value{"name": "bob"}), resolver)
	require.NoError(t, err)
	assert.Equal(t, "Hello, bob!", out)
}

func TestRenderPartialMissingFails(t *testing.T) {
	_, err := Render(`{% render "nope" %}`, NewScope(nil), mapResolver{})
	require.Error(t, err)
}

func TestRenderPartialNoResolverFails(t *testing.T) {
	_, err := Render(`{% render "nope" %}`, NewScope(nil), nil)
	require.Error(t, err)
}

func TestRenderPartialRecursionLimit(t *testing.T) {
	resolver := mapResolver{"loop": `{% render "loop" %}`}
	_, err := Render(`{% render "loop" %}`, NewScope(nil), resolver)
	require.Error(t, err)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "RecursionLimit", rerr.Kind)
}

func TestRenderPartialInheritsParentScope(t *testing.T) {
	resolver := mapResolver{"inner": `{{ outer_var }}`}
	out, err := Render(`{% render "inner" %}`, NewScope(map[string]Value{"outer_var": "seen"}), resolver)
	require.NoError(t, err)
	assert.Equal(t, "seen", out)
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.True(t, Truthy(true))
	assert.True(t, Truthy(int64(0)))
	assert.True(t, Truthy(""))
}

func TestRenderLongTemplatePerformance(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("{{ x }}")
	}
	out := render(t, b.String(), map[string]Value{"x": "a"})
	assert.Equal(t, strings.Repeat("a", 100), out)
}
