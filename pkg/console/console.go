// Package console renders structured diagnostics and list/table output for the
// sah command line tool. Styling is applied only when stdout is a terminal,
// so piped and CI output stays plain and parseable.
package console

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/logger"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/styles"
)

var consoleLog = logger.New("console:console")

// Position locates a diagnostic inside a source file.
type Position struct {
	File   string
	Line   int
	Column int
}

// Diagnostic is a structured, positional error/warning/info event produced by
// the artifact loader, workflow parser, or action parser. It never aborts the
// process on its own; callers decide whether to surface, log, or discard it.
type Diagnostic struct {
	Position Position
	Severity string // "error", "warning", "info"
	Kind     string // taxonomy label, e.g. "ParseError", "InvalidAction"
	Message  string
	Context  []string // source lines surrounding Position.Line
}

// isTTY reports whether stdout is attached to a terminal.
func isTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// applyStyle conditionally applies styling based on TTY status.
func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

// ToRelativePath converts an absolute path to a relative path from the
// current working directory, falling back to the original on any failure.
func ToRelativePath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	relPath, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}
	return relPath
}

// FormatDiagnostic renders a Diagnostic with Rust-like positional output.
func FormatDiagnostic(d Diagnostic) string {
	consoleLog.Printf("formatting diagnostic: severity=%s kind=%s file=%s line=%d", d.Severity, d.Kind, d.Position.File, d.Position.Line)
	var output strings.Builder

	var severityStyle lipgloss.Style
	var prefix string
	switch d.Severity {
	case "warning":
		severityStyle = styles.Warning
		prefix = "warning"
	case "info":
		severityStyle = styles.Info
		prefix = "info"
	default:
		severityStyle = styles.Error
		prefix = "error"
	}

	if d.Position.File != "" {
		location := fmt.Sprintf("%s:%d:%d:", ToRelativePath(d.Position.File), d.Position.Line, d.Position.Column)
		output.WriteString(applyStyle(styles.FilePath, location))
		output.WriteString(" ")
	}

	output.WriteString(applyStyle(severityStyle, prefix+":"))
	output.WriteString(" ")
	if d.Kind != "" {
		output.WriteString(fmt.Sprintf("[%s] ", d.Kind))
	}
	output.WriteString(d.Message)
	output.WriteString("\n")

	if len(d.Context) > 0 && d.Position.Line > 0 {
		output.WriteString(renderContext(d))
	}

	return output.String()
}

// findWordEnd finds the end of a word starting at the given position; a word
// ends at whitespace, punctuation, or end of line.
func findWordEnd(line string, start int) int {
	if start >= len(line) {
		return len(line)
	}
	end := start
	for end < len(line) {
		char := line[end]
		if char == ' ' || char == '\t' || char == ':' || char == '\n' || char == '\r' {
			break
		}
		end++
	}
	return end
}

// renderContext renders source lines around the diagnostic with a caret
// pointing at the offending column.
func renderContext(d Diagnostic) string {
	var output strings.Builder

	maxLineNum := d.Position.Line + len(d.Context)/2
	lineNumWidth := len(fmt.Sprintf("%d", maxLineNum))

	for i, line := range d.Context {
		lineNum := d.Position.Line - len(d.Context)/2 + i
		if lineNum < 1 {
			continue
		}

		lineNumStr := fmt.Sprintf("%*d", lineNumWidth, lineNum)
		output.WriteString(applyStyle(styles.LineNumber, lineNumStr))
		output.WriteString(" | ")

		if lineNum == d.Position.Line {
			if d.Position.Column > 0 && d.Position.Column <= len(line) {
				before := line[:d.Position.Column-1]
				wordEnd := findWordEnd(line, d.Position.Column-1)
				highlighted := line[d.Position.Column-1 : wordEnd]
				after := ""
				if wordEnd < len(line) {
					after = line[wordEnd:]
				}
				output.WriteString(applyStyle(styles.ContextLine, before))
				output.WriteString(applyStyle(styles.Highlight, highlighted))
				output.WriteString(applyStyle(styles.ContextLine, after))
			} else {
				output.WriteString(applyStyle(styles.Highlight, line))
			}
		} else {
			output.WriteString(applyStyle(styles.ContextLine, line))
		}
		output.WriteString("\n")

		if lineNum == d.Position.Line && d.Position.Column > 0 && d.Position.Column <= len(line) {
			wordEnd := findWordEnd(line, d.Position.Column-1)
			wordLength := wordEnd - (d.Position.Column - 1)
			padding := strings.Repeat(" ", lineNumWidth+3+d.Position.Column-1)
			pointer := applyStyle(styles.Error, strings.Repeat("^", wordLength))
			output.WriteString(padding)
			output.WriteString(pointer)
			output.WriteString("\n")
		}
	}

	return output.String()
}

// FormatSuccessMessage formats a success message with styling.
func FormatSuccessMessage(message string) string {
	return applyStyle(styles.Success, "✓ ") + message
}

// FormatInfoMessage formats an informational message.
func FormatInfoMessage(message string) string {
	return applyStyle(styles.Info, "ℹ ") + message
}

// FormatWarningMessage formats a warning message.
func FormatWarningMessage(message string) string {
	return applyStyle(styles.Warning, "⚠ ") + message
}

// FormatErrorMessage formats a simple error message (for stderr output).
func FormatErrorMessage(message string) string {
	return applyStyle(styles.Error, "✗ ") + message
}

// TableConfig describes a table to be rendered by RenderTable.
type TableConfig struct {
	Headers   []string
	Rows      [][]string
	Title     string
	ShowTotal bool
	TotalRow  []string
}

// RenderTable renders a formatted table using lipgloss/table.
func RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 {
		consoleLog.Print("no headers provided for table rendering")
		return ""
	}

	consoleLog.Printf("rendering table: title=%s columns=%d rows=%d", config.Title, len(config.Headers), len(config.Rows))
	var output strings.Builder

	if config.Title != "" {
		output.WriteString(applyStyle(styles.TableTitle, config.Title))
		output.WriteString("\n")
	}

	allRows := config.Rows
	if config.ShowTotal && len(config.TotalRow) > 0 {
		allRows = append(allRows, config.TotalRow)
	}
	dataRowCount := len(config.Rows)

	styleFunc := func(row, col int) lipgloss.Style {
		if !isTTY() {
			return lipgloss.NewStyle()
		}
		if row == table.HeaderRow {
			return styles.TableHeader
		}
		if config.ShowTotal && len(config.TotalRow) > 0 && row == dataRowCount {
			return styles.TableTotal
		}
		return styles.TableCell
	}

	t := table.New().
		Headers(config.Headers...).
		Rows(allRows...).
		Border(styles.NormalBorder).
		BorderStyle(styles.TableBorder).
		StyleFunc(styleFunc)

	output.WriteString(t.String())
	output.WriteString("\n")

	return output.String()
}

// RenderTableAsJSON renders a table configuration as a JSON array of objects.
func RenderTableAsJSON(config TableConfig) (string, error) {
	if len(config.Headers) == 0 {
		return "[]", nil
	}

	var result []map[string]string
	for _, row := range config.Rows {
		obj := make(map[string]string)
		for i, cell := range row {
			if i < len(config.Headers) {
				key := strings.ToLower(strings.ReplaceAll(config.Headers[i], " ", "_"))
				obj[key] = cell
			}
		}
		result = append(result, obj)
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal table to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// RenderList renders a simple list with the given enumerator style
// ("bullet", "dash", "asterisk", "arabic", "roman", "alphabet").
func RenderList(items []string, enumerator string) string {
	if len(items) == 0 {
		return ""
	}

	listItems := make([]any, len(items))
	for i, item := range items {
		listItems[i] = item
	}

	l := list.New(listItems...)
	switch enumerator {
	case "dash":
		l = l.Enumerator(list.Dash)
	case "asterisk":
		l = l.Enumerator(list.Asterisk)
	case "arabic":
		l = l.Enumerator(list.Arabic)
	case "roman":
		l = l.Enumerator(list.Roman)
	case "alphabet":
		l = l.Enumerator(list.Alphabet)
	default:
		l = l.Enumerator(list.Bullet)
	}

	if isTTY() {
		l = l.EnumeratorStyle(styles.ListEnumerator).ItemStyle(styles.ListItem)
	}

	return l.String()
}

// FormatErrorWithSuggestions formats an error message with actionable
// follow-up suggestions.
func FormatErrorWithSuggestions(message string, suggestions []string) string {
	var output strings.Builder
	output.WriteString(FormatErrorMessage(message))
	if len(suggestions) > 0 {
		output.WriteString("\n\nSuggestions:\n")
		for _, suggestion := range suggestions {
			output.WriteString("  • " + suggestion + "\n")
		}
	}
	return output.String()
}
