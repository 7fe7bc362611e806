package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/action"
)

// ParseError reports a structural problem found while parsing a workflow
// document: malformed Mermaid syntax, an invalid action line, or a §3
// invariant violation.
type ParseError struct {
	Kind string // "InvalidStructure" or "InvalidAction"
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", e.Kind, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// ParseInput is everything the workflow parser needs: front-matter-derived
// metadata (already extracted by the artifact store) plus the raw document
// body (front matter stripped).
type ParseInput struct {
	Name        string
	Title       string
	Description string
	Category    string
	Tags        []string
	Tier        Tier
	Path        string
	Body        string
}

var (
	reMermaidFence  = regexp.MustCompile("(?s)```mermaid\\s*\\n(.*?)```")
	reActionsHeader = regexp.MustCompile(`(?m)^##\s+Actions\s*$`)
	reActionBullet  = regexp.MustCompile(`^-\s*([A-Za-z0-9_]+)\s*:\s*(.+)$`)
)

// Parse turns a workflow document body into a validated Workflow.
func Parse(in ParseInput) (*Workflow, error) {
	mermaidLines, mermaidStart, err := extractMermaidBlock(in.Body)
	if err != nil {
		return nil, err
	}

	edges, annotations, err := parseMermaidBlock(mermaidLines, mermaidStart)
	if err != nil {
		return nil, &ParseError{Kind: "InvalidStructure", Msg: err.Error()}
	}

	actionsByState, err := extractActions(in.Body)
	if err != nil {
		return nil, err
	}

	w := &Workflow{
		Name:        in.Name,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Tags:        append([]string(nil), in.Tags...),
		States:      map[string]*State{},
		SourceTier:  in.Tier,
		Path:        in.Path,
	}

	order := newOrderTracker()

	ensureState := func(id string) *State {
		if s, ok := w.States[id]; ok {
			return s
		}
		s := &State{ID: id, Kind: StateNormal}
		w.States[id] = s
		order.see(id)
		return s
	}

	for _, e := range edges {
		switch {
		case isSentinel(e.from) && isSentinel(e.to):
			return nil, &ParseError{Kind: "InvalidStructure", Line: e.line, Msg: "transition cannot connect [*] to [*]"}
		case isSentinel(e.from):
			s := ensureState(e.to)
			if w.InitialID != "" && w.InitialID != e.to {
				return nil, &ParseError{Kind: "InvalidStructure", Line: e.line, Msg: fmt.Sprintf("multiple initial states: %q and %q", w.InitialID, e.to)}
			}
			w.InitialID = e.to
			if s.Kind == StateNormal {
				s.Kind = StateInitial
			}
		case isSentinel(e.to):
			s := ensureState(e.from)
			if s.Kind == StateNormal {
				s.Kind = StateTerminal
			}
		default:
			ensureState(e.from)
			ensureState(e.to)
			w.Transitions = append(w.Transitions, Transition{From: e.from, To: e.to, Guard: parseGuardLabel(e.label)})
		}
	}

	for id, kind := range annotations {
		s := ensureState(id)
		s.Kind = kind
	}

	for id, actions := range actionsByState {
		s, ok := w.States[id]
		if !ok {
			return nil, &ParseError{Kind: "InvalidStructure", Msg: fmt.Sprintf("action section references undeclared state %q", id)}
		}
		s.Actions = actions
	}

	if w.InitialID == "" {
		return nil, &ParseError{Kind: "InvalidStructure", Msg: "no initial state declared (expected a \"[*] --> X\" edge)"}
	}

	w.StateOrder = order.ids()

	if err := validate(w); err != nil {
		return nil, err
	}
	return w, nil
}

// extractMermaidBlock finds the first fenced ```mermaid code block whose
// content contains a stateDiagram-v2 declaration and returns its lines plus
// the 1-indexed line number of the first content line, for diagnostics.
func extractMermaidBlock(body string) ([]string, int, error) {
	loc := reMermaidFence.FindStringSubmatchIndex(body)
	if loc == nil {
		return nil, 0, &ParseError{Kind: "InvalidStructure", Msg: "no fenced ```mermaid block found"}
	}
	content := body[loc[2]:loc[3]]
	if !strings.Contains(content, "stateDiagram-v2") && !strings.Contains(content, "stateDiagram") {
		return nil, 0, &ParseError{Kind: "InvalidStructure", Msg: "mermaid block does not contain a stateDiagram-v2"}
	}
	startLine := strings.Count(body[:loc[2]], "\n") + 1
	return strings.Split(content, "\n"), startLine, nil
}

// extractActions finds the "## Actions" section and parses each bullet line
// into an action.Record, keyed by state id, preserving declaration order
// within a state.
func extractActions(body string) (map[string][]*action.Record, error) {
	loc := reActionsHeader.FindStringIndex(body)
	if loc == nil {
		return map[string][]*action.Record{}, nil
	}
	rest := body[loc[1]:]
	// Stop at the next "## " heading, if any.
	if next := regexp.MustCompile(`(?m)^##\s+`).FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}

	startLine := strings.Count(body[:loc[1]], "\n") + 1
	result := map[string][]*action.Record{}
	for i, raw := range strings.Split(rest, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m := reActionBullet.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		stateID, text := m[1], m[2]
		rec, err := action.Parse(text)
		if err != nil {
			return nil, &ParseError{Kind: "InvalidAction", Line: startLine + i, Msg: fmt.Sprintf("%s: %v", text, err)}
		}
		result[stateID] = append(result[stateID], rec)
	}
	return result, nil
}

// orderTracker records first-seen order of state ids, since building the
// state map via Go's map type loses declaration order.
type orderTracker struct {
	seen  map[string]bool
	order []string
}

func newOrderTracker() *orderTracker {
	return &orderTracker{seen: map[string]bool{}}
}

func (t *orderTracker) see(id string) {
	if t.seen[id] {
		return
	}
	t.seen[id] = true
	t.order = append(t.order, id)
}

func (t *orderTracker) ids() []string { return t.order }
