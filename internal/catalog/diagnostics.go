package catalog

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/console"
)

// Diagnostic is an alias of console.Diagnostic kept local so callers of this
// package don't need a direct console import for the common case.
type Diagnostic = console.Diagnostic

// extractYAMLPosition pulls a best-effort line/column out of a goccy/go-yaml
// error. goccy wraps its own token position inside unexported error types, so
// we reach for it via reflection first and fall back to parsing the error's
// string form, which is stable across goccy versions in practice.
func extractYAMLPosition(err error) (line, column int, message string) {
	message = err.Error()

	if line, column, ok := extractFromGoccyError(err); ok {
		return line, column, message
	}
	return extractFromStringParsing(message)
}

// extractFromGoccyError walks the error value looking for a Token field with
// Position.Line / Position.Column, which goccy/go-yaml attaches to its
// internal syntax error types.
func extractFromGoccyError(err error) (line, column int, ok bool) {
	v := reflect.ValueOf(err)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0, 0, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0, 0, false
	}

	tokenField := v.FieldByName("Token")
	if !tokenField.IsValid() {
		return 0, 0, false
	}
	for tokenField.Kind() == reflect.Ptr || tokenField.Kind() == reflect.Interface {
		if tokenField.IsNil() {
			return 0, 0, false
		}
		tokenField = tokenField.Elem()
	}
	if tokenField.Kind() != reflect.Struct {
		return 0, 0, false
	}

	posField := tokenField.FieldByName("Position")
	for posField.IsValid() && (posField.Kind() == reflect.Ptr || posField.Kind() == reflect.Interface) {
		if posField.IsNil() {
			return 0, 0, false
		}
		posField = posField.Elem()
	}
	if !posField.IsValid() || posField.Kind() != reflect.Struct {
		return 0, 0, false
	}

	lineField := posField.FieldByName("Line")
	colField := posField.FieldByName("Column")
	if !lineField.IsValid() || !colField.IsValid() {
		return 0, 0, false
	}
	if !lineField.CanInt() || !colField.CanInt() {
		return 0, 0, false
	}
	return int(lineField.Int()), int(colField.Int()), true
}

var (
	reLineColumn = regexp.MustCompile(`\[(\d+):(\d+)\]`)
	reLineOnly   = regexp.MustCompile(`line (\d+)`)
	reColumnOnly = regexp.MustCompile(`column (\d+)`)
)

// extractFromStringParsing recovers a line/column from the textual form of a
// YAML error when reflection doesn't find one, e.g.
// "yaml: unmarshal errors:\n  line 3: column 5: mapping values..." or
// "[3:5] unknown field".
func extractFromStringParsing(message string) (line, column int, text string) {
	text = message
	if m := reLineColumn.FindStringSubmatch(message); m != nil {
		line, _ = strconv.Atoi(m[1])
		column, _ = strconv.Atoi(m[2])
		return line, column, text
	}
	if m := reLineOnly.FindStringSubmatch(message); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	if m := reColumnOnly.FindStringSubmatch(message); m != nil {
		column, _ = strconv.Atoi(m[1])
	}
	return line, column, text
}

// sourceContext returns up to 2 lines of context on either side of line
// (1-indexed), for embedding in a Diagnostic.
func sourceContext(source string, line int) []string {
	if line <= 0 {
		return nil
	}
	lines := strings.Split(source, "\n")
	start := line - 3
	if start < 0 {
		start = 0
	}
	end := line + 2
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return nil
	}
	return lines[start:end]
}

func newParseDiagnostic(file string, line, column int, kind, format string, args ...any) Diagnostic {
	return Diagnostic{
		Position: console.Position{File: file, Line: line, Column: column},
		Severity: "error",
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
	}
}

func newWarnDiagnostic(file string, line, column int, kind, format string, args ...any) Diagnostic {
	d := newParseDiagnostic(file, line, column, kind, format, args...)
	d.Severity = "warning"
	return d
}
