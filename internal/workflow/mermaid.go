package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

// mermaidEdge is one raw "A --> B" or "A --> B: label" line, pre-resolution
// of the [*] sentinel into initial/terminal markers.
type mermaidEdge struct {
	from  string
	to    string
	label string
	line  int
}

var (
	reEdge       = regexp.MustCompile(`^(\S+)\s*-->\s*(\S+)\s*(?::\s*(.+))?$`)
	reStateDecl  = regexp.MustCompile(`^state\s+(\S+)\s+(<<fork>>|<<join>>)$`)
	reStateDecl2 = regexp.MustCompile(`^(\S+)\s*:\s*(<<fork>>|<<join>>)$`)
)

// parseMermaidBlock parses the body of a fenced ```mermaid stateDiagram-v2
// block into edges and fork/join annotations. It does not build the final
// Workflow; that happens in document.go once front matter and actions are
// also available.
func parseMermaidBlock(lines []string, startLine int) ([]mermaidEdge, map[string]StateKind, error) {
	var edges []mermaidEdge
	annotations := map[string]StateKind{}

	for i, raw := range lines {
		lineNo := startLine + i
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		if strings.EqualFold(line, "stateDiagram-v2") || strings.EqualFold(line, "stateDiagram") {
			continue
		}

		if m := reStateDecl.FindStringSubmatch(line); m != nil {
			annotations[m[1]] = annotationKind(m[2])
			continue
		}
		if m := reStateDecl2.FindStringSubmatch(line); m != nil {
			annotations[m[1]] = annotationKind(m[2])
			continue
		}

		if m := reEdge.FindStringSubmatch(line); m != nil {
			edges = append(edges, mermaidEdge{
				from:  m[1],
				to:    m[2],
				label: strings.TrimSpace(m[3]),
				line:  lineNo,
			})
			continue
		}

		return nil, nil, fmt.Errorf("line %d: unrecognized stateDiagram-v2 syntax: %q", lineNo, line)
	}

	return edges, annotations, nil
}

func annotationKind(tag string) StateKind {
	switch tag {
	case "<<fork>>":
		return StateFork
	case "<<join>>":
		return StateJoin
	default:
		return StateNormal
	}
}

// parseGuardLabel interprets an edge label as a Guard. An empty label means
// Always. "OnSuccess" and "OnFailure" are recognized case-sensitively per
// the grammar; anything else is treated as an expression guard.
func parseGuardLabel(label string) Guard {
	switch label {
	case "":
		return Guard{Kind: GuardAlways, Raw: label}
	case "Always":
		return Guard{Kind: GuardAlways, Raw: label}
	case "OnSuccess":
		return Guard{Kind: GuardOnSuccess, Raw: label}
	case "OnFailure":
		return Guard{Kind: GuardOnFailure, Raw: label}
	default:
		return Guard{Kind: GuardExpression, Expression: label, Raw: label}
	}
}

// isSentinel reports whether a mermaid node reference is the Mermaid "[*]"
// pseudo-state used to denote initial/terminal markers.
func isSentinel(id string) bool {
	return id == "[*]"
}
