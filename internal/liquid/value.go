// Package liquid implements a sandboxed, Liquid-dialect template renderer:
// variable interpolation, a closed filter set, control-flow tags, and a
// {% render %} partial directive resolved against the artifact catalog.
//
// The renderer performs no I/O, spawns no processes, and opens no network
// connections; the only external input is the variable scope and the
// PartialResolver passed in by the caller.
package liquid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is the dynamic value domain the renderer operates over: string,
// bool, int64, float64, []Value, or map[string]Value. nil represents
// Liquid's "nil"/undefined.
type Value interface{}

// Truthy implements Liquid's truthiness rules: everything is truthy except
// nil and the boolean false (notably, 0 and "" are truthy, matching Liquid
// and unlike most C-family languages).
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// AsString renders v as it would appear in template output.
func AsString(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []Value:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = AsString(e)
		}
		return strings.Join(parts, ", ")
	case map[string]Value:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, AsString(t[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// AsFloat coerces v to a float64 for arithmetic filters/comparisons.
// Non-numeric values coerce to 0.
func AsFloat(v Value) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// isInt reports whether v holds a Go integer kind (int64 or int, not a
// float64 or a numeric string); used to decide whether arithmetic filters
// should produce an int64 or a float64 result.
func isInt(v Value) bool {
	switch v.(type) {
	case int64, int:
		return true
	default:
		return false
	}
}

// AsSlice coerces v into a []Value for iteration/filters. nil yields an
// empty slice; any other non-slice value yields a one-element slice
// holding it.
func AsSlice(v Value) []Value {
	switch t := v.(type) {
	case []Value:
		return t
	case nil:
		return nil
	default:
		return []Value{t}
	}
}

// compare implements Liquid's comparison operators across the value domain:
// numeric values compare numerically, everything else compares by string
// representation (matching Liquid's permissive cross-type comparisons).
func compare(a, b Value) int {
	an, aok := numericValue(a)
	bn, bok := numericValue(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	as, bs := AsString(a), AsString(b)
	return strings.Compare(as, bs)
}

func numericValue(v Value) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// equalValue implements Liquid's "==" operator: numeric cross-kind equality,
// exact string/bool equality, and nil-only-equals-nil.
func equalValue(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	an, aok := numericValue(a)
	bn, bok := numericValue(b)
	if aok && bok {
		return an == bn
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
