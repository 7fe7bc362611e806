package liquid

import "strings"

// maxRenderDepth bounds {% render %} partial recursion (§4.3's sandbox
// requirement: exceeding it fails with RenderError::RecursionLimit).
const maxRenderDepth = 16

// Render renders a template source string against scope. resolver may be
// nil if the template contains no {% render %} directives; a render
// directive encountered with a nil resolver fails as a partial-not-found
// syntax error.
func Render(source string, scope *Scope, resolver PartialResolver) (string, error) {
	return renderDepth(source, scope, resolver, 0)
}

func renderDepth(source string, scope *Scope, resolver PartialResolver, depth int) (string, error) {
	if depth > maxRenderDepth {
		return "", &RenderError{Kind: "RecursionLimit", Msg: "render partial recursion limit exceeded"}
	}
	segs, err := lex(source)
	if err != nil {
		return "", err
	}
	nodes, err := parse(segs)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := renderNodes(nodes, scope, resolver, depth, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderNodes(nodes []Node, scope *Scope, resolver PartialResolver, depth int, out *strings.Builder) error {
	for _, n := range nodes {
		if err := renderOneNode(n, scope, resolver, depth, out); err != nil {
			return err
		}
	}
	return nil
}

func renderOneNode(n Node, scope *Scope, resolver PartialResolver, depth int, out *strings.Builder) error {
	switch node := n.(type) {
	case *textNode:
		out.WriteString(node.text)
		return nil

	case *outputNode:
		v, err := node.expr.eval(scope)
		if err != nil {
			return err
		}
		out.WriteString(AsString(v))
		return nil

	case *commentNode:
		return nil

	case *assignNode:
		v, err := node.value.eval(scope)
		if err != nil {
			return err
		}
		scope.Set(node.varName, v)
		return nil

	case *captureNode:
		child := scope.Child()
		var b strings.Builder
		if err := renderNodes(node.body, child, resolver, depth, &b); err != nil {
			return err
		}
		scope.Set(node.varName, b.String())
		return nil

	case *ifNode:
		for _, branch := range node.branches {
			if branch.cond == nil {
				return renderNodes(branch.body, scope.Child(), resolver, depth, out)
			}
			v, err := branch.cond.eval(scope)
			if err != nil {
				return err
			}
			if Truthy(v) {
				return renderNodes(branch.body, scope.Child(), resolver, depth, out)
			}
		}
		return nil

	case *caseNode:
		subject, err := node.subject.eval(scope)
		if err != nil {
			return err
		}
		for _, when := range node.whens {
			for _, ve := range when.values {
				v, err := ve.eval(scope)
				if err != nil {
					return err
				}
				if equalValue(subject, v) {
					return renderNodes(when.body, scope.Child(), resolver, depth, out)
				}
			}
		}
		return renderNodes(node.elseBody, scope.Child(), resolver, depth, out)

	case *forNode:
		listVal, err := node.list.eval(scope)
		if err != nil {
			return err
		}
		items := AsSlice(listVal)
		for i, item := range items {
			child := scope.Child()
			child.SetLocal(node.varName, item)
			child.SetLocal("forloop", map[string]Value{
				"index":  int64(i + 1),
				"index0": int64(i),
				"first":  i == 0,
				"last":   i == len(items)-1,
				"length": int64(len(items)),
			})
			if err := renderNodes(node.body, child, resolver, depth, out); err != nil {
				return err
			}
		}
		return nil

	case *cycleNode:
		key := node.group
		if key == "" {
			parts := make([]string, len(node.values))
			for i, v := range node.values {
				val, err := v.eval(scope)
				if err != nil {
					return err
				}
				parts[i] = AsString(val)
			}
			key = strings.Join(parts, "\x00")
		}
		idx := scope.cycleState[key]
		scope.cycleState[key] = idx + 1
		if len(node.values) == 0 {
			return nil
		}
		v, err := node.values[idx%len(node.values)].eval(scope)
		if err != nil {
			return err
		}
		out.WriteString(AsString(v))
		return nil

	case *renderNode:
		if resolver == nil {
			return &RenderError{Kind: "SyntaxError", Msg: "render: no partial resolver configured", Line: node.line}
		}
		body, ok := resolver.ResolvePartial(node.name)
		if !ok {
			return &RenderError{Kind: "SyntaxError", Msg: "render: unknown partial: " + node.name, Line: node.line}
		}
		rendered, err := renderDepth(body, scope.Child(), resolver, depth+1)
		if err != nil {
			return err
		}
		out.WriteString(rendered)
		return nil

	default:
		return &RenderError{Kind: "SyntaxError", Msg: "unknown node type"}
	}
}
