package liquid

import "strings"

// expr is a parsed expression: a literal, a variable path, a binary
// operation, or a filter application.
type expr interface {
	eval(s *Scope) (Value, error)
}

type literalExpr struct{ value Value }

func (e *literalExpr) eval(*Scope) (Value, error) { return e.value, nil }

// pathExpr resolves a dotted/indexed variable reference, e.g.
// "state_results.check.value" or "items[0]".
type pathExpr struct {
	segments []pathSegment
}

type pathSegment struct {
	name  string // set when this segment is a field name
	index expr   // set when this segment is a computed index, e.g. items[i]
}

func (e *pathExpr) eval(s *Scope) (Value, error) {
	if len(e.segments) == 0 {
		return nil, nil
	}
	first := e.segments[0]
	v, ok := s.Lookup(first.name)
	if !ok {
		if s.Strict {
			return nil, &RenderError{Kind: "UndefinedVariable", Msg: "undefined variable: " + first.name}
		}
		return nil, nil
	}
	for _, seg := range e.segments[1:] {
		var key Value
		if seg.index != nil {
			iv, err := seg.index.eval(s)
			if err != nil {
				return nil, err
			}
			key = iv
		} else {
			key = seg.name
		}
		v = indexInto(v, key)
		if v == nil {
			break
		}
	}
	return v, nil
}

func indexInto(v Value, key Value) Value {
	switch t := v.(type) {
	case map[string]Value:
		if ks, ok := key.(string); ok {
			return t[ks]
		}
	case []Value:
		if ks, ok := key.(string); ok && (ks == "size" || ks == "first" || ks == "last") {
			break
		}
		idx := int(AsFloat(key))
		if idx < 0 || idx >= len(t) {
			return nil
		}
		return t[idx]
	}
	// "size", "first", "last" pseudo-properties on strings/slices, mirroring
	// Liquid's built-in array/string properties.
	if ks, ok := key.(string); ok {
		switch ks {
		case "size":
			switch t := v.(type) {
			case string:
				return int64(len(t))
			case []Value:
				return int64(len(t))
			}
		case "first":
			if sl, ok := v.([]Value); ok && len(sl) > 0 {
				return sl[0]
			}
		case "last":
			if sl, ok := v.([]Value); ok && len(sl) > 0 {
				return sl[len(sl)-1]
			}
		}
	}
	return nil
}

type binaryExpr struct {
	op    string // "and", "or", "==", "!=", "<", "<=", ">", ">=", "contains"
	left  expr
	right expr
}

func (e *binaryExpr) eval(s *Scope) (Value, error) {
	switch e.op {
	case "and":
		lv, err := e.left.eval(s)
		if err != nil {
			return nil, err
		}
		if !Truthy(lv) {
			return false, nil
		}
		rv, err := e.right.eval(s)
		if err != nil {
			return nil, err
		}
		return Truthy(rv), nil
	case "or":
		lv, err := e.left.eval(s)
		if err != nil {
			return nil, err
		}
		if Truthy(lv) {
			return true, nil
		}
		rv, err := e.right.eval(s)
		if err != nil {
			return nil, err
		}
		return Truthy(rv), nil
	}

	lv, err := e.left.eval(s)
	if err != nil {
		return nil, err
	}
	rv, err := e.right.eval(s)
	if err != nil {
		return nil, err
	}

	switch e.op {
	case "==":
		return equalValue(lv, rv), nil
	case "!=":
		return !equalValue(lv, rv), nil
	case "<":
		return compare(lv, rv) < 0, nil
	case "<=":
		return compare(lv, rv) <= 0, nil
	case ">":
		return compare(lv, rv) > 0, nil
	case ">=":
		return compare(lv, rv) >= 0, nil
	case "contains":
		switch t := lv.(type) {
		case string:
			return strings.Contains(t, AsString(rv)), nil
		case []Value:
			for _, item := range t {
				if equalValue(item, rv) {
					return true, nil
				}
			}
			return false, nil
		default:
			return false, nil
		}
	}
	return nil, &RenderError{Kind: "SyntaxError", Msg: "unknown operator: " + e.op}
}

type filterExpr struct {
	input expr
	name  string
	args  []expr
	line  int
}

func (e *filterExpr) eval(s *Scope) (Value, error) {
	in, err := e.input.eval(s)
	if err != nil {
		return nil, err
	}
	fn, ok := filters[e.name]
	if !ok {
		return nil, &RenderError{Kind: "UnknownFilter", Msg: "unknown filter: " + e.name, Line: e.line}
	}
	args := make([]Value, len(e.args))
	for i, a := range e.args {
		av, err := a.eval(s)
		if err != nil {
			return nil, err
		}
		args[i] = av
	}
	return fn(in, args)
}
