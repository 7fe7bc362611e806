package liquid

import (
	"sort"
	"strings"
	"time"
)

// filterFunc is one entry in the closed filter registry: it receives the
// piped-in value and the filter's (already-evaluated) arguments.
type filterFunc func(in Value, args []Value) (Value, error)

// filters is the closed set named in the spec's GLOSSARY. No filter outside
// this set is recognized; adding one is a code change, never a runtime
// registration.
var filters = map[string]filterFunc{
	"default":     filterDefault,
	"strip":       filterStrip,
	"downcase":    filterDowncase,
	"upcase":      filterUpcase,
	"capitalize":  filterCapitalize,
	"size":        filterSize,
	"join":        filterJoin,
	"split":       filterSplit,
	"first":       filterFirst,
	"last":        filterLast,
	"sort":        filterSort,
	"reverse":     filterReverse,
	"uniq":        filterUniq,
	"plus":        filterPlus,
	"minus":       filterMinus,
	"times":       filterTimes,
	"divided_by":  filterDividedBy,
	"modulo":      filterModulo,
	"round":       filterRound,
	"append":      filterAppend,
	"prepend":     filterPrepend,
	"truncate":    filterTruncate,
	"replace":     filterReplace,
	"remove":      filterRemove,
	"date":        filterDate,
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func filterDefault(in Value, args []Value) (Value, error) {
	if in == nil || in == "" || in == false {
		return arg(args, 0), nil
	}
	return in, nil
}

func filterStrip(in Value, args []Value) (Value, error) {
	return strings.TrimSpace(AsString(in)), nil
}

func filterDowncase(in Value, args []Value) (Value, error) {
	return strings.ToLower(AsString(in)), nil
}

func filterUpcase(in Value, args []Value) (Value, error) {
	return strings.ToUpper(AsString(in)), nil
}

func filterCapitalize(in Value, args []Value) (Value, error) {
	s := AsString(in)
	if s == "" {
		return s, nil
	}
	return strings.ToUpper(s[:1]) + s[1:], nil
}

func filterSize(in Value, args []Value) (Value, error) {
	switch t := in.(type) {
	case string:
		return int64(len(t)), nil
	case []Value:
		return int64(len(t)), nil
	case map[string]Value:
		return int64(len(t)), nil
	default:
		return int64(0), nil
	}
}

func filterJoin(in Value, args []Value) (Value, error) {
	sep := ", "
	if len(args) > 0 {
		sep = AsString(args[0])
	}
	parts := make([]string, 0)
	for _, v := range AsSlice(in) {
		parts = append(parts, AsString(v))
	}
	return strings.Join(parts, sep), nil
}

func filterSplit(in Value, args []Value) (Value, error) {
	sep := AsString(arg(args, 0))
	parts := strings.Split(AsString(in), sep)
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func filterFirst(in Value, args []Value) (Value, error) {
	sl := AsSlice(in)
	if len(sl) == 0 {
		return nil, nil
	}
	return sl[0], nil
}

func filterLast(in Value, args []Value) (Value, error) {
	sl := AsSlice(in)
	if len(sl) == 0 {
		return nil, nil
	}
	return sl[len(sl)-1], nil
}

func filterSort(in Value, args []Value) (Value, error) {
	sl := append([]Value(nil), AsSlice(in)...)
	sort.SliceStable(sl, func(i, j int) bool { return compare(sl[i], sl[j]) < 0 })
	return sl, nil
}

func filterReverse(in Value, args []Value) (Value, error) {
	sl := AsSlice(in)
	out := make([]Value, len(sl))
	for i, v := range sl {
		out[len(sl)-1-i] = v
	}
	return out, nil
}

func filterUniq(in Value, args []Value) (Value, error) {
	sl := AsSlice(in)
	var out []Value
	for _, v := range sl {
		dup := false
		for _, seen := range out {
			if equalValue(seen, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out, nil
}

// numericArith applies op to the numeric coercion of in and args[0],
// producing an int64 when both operands are integral and the result is a
// whole number, a float64 otherwise.
func numericArith(in Value, args []Value, op func(a, b float64) float64) Value {
	a := AsFloat(in)
	b := AsFloat(arg(args, 0))
	r := op(a, b)
	if isInt(in) && isInt(arg(args, 0)) && r == float64(int64(r)) {
		return int64(r)
	}
	return r
}

func filterPlus(in Value, args []Value) (Value, error) {
	return numericArith(in, args, func(a, b float64) float64 { return a + b }), nil
}

func filterMinus(in Value, args []Value) (Value, error) {
	return numericArith(in, args, func(a, b float64) float64 { return a - b }), nil
}

func filterTimes(in Value, args []Value) (Value, error) {
	return numericArith(in, args, func(a, b float64) float64 { return a * b }), nil
}

func filterDividedBy(in Value, args []Value) (Value, error) {
	b := AsFloat(arg(args, 0))
	if b == 0 {
		return nil, &RenderError{Kind: "SyntaxError", Msg: "divided_by: division by zero"}
	}
	return numericArith(in, args, func(a, b float64) float64 { return a / b }), nil
}

func filterModulo(in Value, args []Value) (Value, error) {
	b := AsFloat(arg(args, 0))
	if b == 0 {
		return nil, &RenderError{Kind: "SyntaxError", Msg: "modulo: division by zero"}
	}
	a := AsFloat(in)
	r := a - b*float64(int64(a/b))
	if isInt(in) && isInt(arg(args, 0)) {
		return int64(r), nil
	}
	return r, nil
}

func filterRound(in Value, args []Value) (Value, error) {
	f := AsFloat(in)
	if len(args) > 0 {
		prec := int(AsFloat(args[0]))
		mult := 1.0
		for i := 0; i < prec; i++ {
			mult *= 10
		}
		return roundHalfUp(f*mult) / mult, nil
	}
	return int64(roundHalfUp(f)), nil
}

func roundHalfUp(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return -float64(int64(-f + 0.5))
}

func filterAppend(in Value, args []Value) (Value, error) {
	return AsString(in) + AsString(arg(args, 0)), nil
}

func filterPrepend(in Value, args []Value) (Value, error) {
	return AsString(arg(args, 0)) + AsString(in), nil
}

func filterTruncate(in Value, args []Value) (Value, error) {
	s := AsString(in)
	n := 50
	if len(args) > 0 {
		n = int(AsFloat(args[0]))
	}
	suffix := "..."
	if len(args) > 1 {
		suffix = AsString(args[1])
	}
	if len(s) <= n {
		return s, nil
	}
	cut := n - len(suffix)
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + suffix, nil
}

func filterReplace(in Value, args []Value) (Value, error) {
	return strings.ReplaceAll(AsString(in), AsString(arg(args, 0)), AsString(arg(args, 1))), nil
}

func filterRemove(in Value, args []Value) (Value, error) {
	return strings.ReplaceAll(AsString(in), AsString(arg(args, 0)), ""), nil
}

// filterDate formats in (a string parsed as RFC3339, or an int64/float64
// unix timestamp) with a strftime-ish layout; only the subset of directives
// the builtin prompts/workflows actually need is supported.
func filterDate(in Value, args []Value) (Value, error) {
	var t time.Time
	switch v := in.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return "", nil
		}
		t = parsed
	case int64:
		t = time.Unix(v, 0).UTC()
	case float64:
		t = time.Unix(int64(v), 0).UTC()
	default:
		return "", nil
	}
	layout := AsString(arg(args, 0))
	return t.Format(strftimeToGo(layout)), nil
}

var strftimeReplacer = strings.NewReplacer(
	"%Y", "2006", "%m", "01", "%d", "02",
	"%H", "15", "%M", "04", "%S", "05",
	"%B", "January", "%b", "Jan", "%A", "Monday", "%a", "Mon",
)

func strftimeToGo(layout string) string {
	if layout == "" {
		return time.RFC3339
	}
	return strftimeReplacer.Replace(layout)
}
