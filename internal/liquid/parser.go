package liquid

import "strings"

// parse turns the flat segment stream produced by lex into a tree of Nodes,
// resolving block tags (if/for/case/capture/comment) into their bodies.
func parse(segments []segment) ([]Node, error) {
	p := &blockParser{segs: segments}
	nodes, err := p.parseUntil()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.segs) {
		return nil, &RenderError{Kind: "SyntaxError", Msg: "unexpected closing tag: " + p.segs[p.pos].text, Line: p.segs[p.pos].line}
	}
	return nodes, nil
}

type blockParser struct {
	segs []segment
	pos  int
}

func (p *blockParser) cur() (segment, bool) {
	if p.pos >= len(p.segs) {
		return segment{}, false
	}
	return p.segs[p.pos], true
}

// tagWord returns the first whitespace-delimited word of a tag segment's
// text, used to dispatch on the tag name.
func tagWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// parseUntil consumes nodes until it hits EOF or a tag this level doesn't
// know how to start (an else/elsif/when/end* belonging to an enclosing
// block), leaving that segment unconsumed for the caller to inspect.
func (p *blockParser) parseUntil() ([]Node, error) {
	var nodes []Node
	for {
		seg, ok := p.cur()
		if !ok {
			return nodes, nil
		}
		switch seg.kind {
		case segText:
			nodes = append(nodes, &textNode{text: seg.text})
			p.pos++
		case segOutput:
			e, err := parseExpr(seg.text, seg.line)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &outputNode{expr: e, line: seg.line})
			p.pos++
		case segTag:
			word := strings.ToLower(tagWord(seg.text))
			switch word {
			case "if":
				n, err := p.parseIf()
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
			case "for":
				n, err := p.parseFor()
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
			case "case":
				n, err := p.parseCase()
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
			case "capture":
				n, err := p.parseCapture()
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
			case "comment":
				n, err := p.parseComment()
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
			case "assign":
				n, err := p.parseAssign(seg)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
				p.pos++
			case "cycle":
				n, err := p.parseCycle(seg)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
				p.pos++
			case "render":
				n, err := p.parseRender(seg)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
				p.pos++
			default:
				// Not a tag this level starts: an else/elsif/when/end* that
				// belongs to an enclosing block, or an unknown tag.
				if isBlockTerminator(word) {
					return nodes, nil
				}
				return nil, &RenderError{Kind: "SyntaxError", Msg: "unknown tag: " + word, Line: seg.line}
			}
		}
	}
}

func isBlockTerminator(word string) bool {
	switch word {
	case "else", "elsif", "when", "endif", "endfor", "endcase", "endcapture", "endcomment":
		return true
	default:
		return false
	}
}

func (p *blockParser) expectTag(word string) (segment, error) {
	seg, ok := p.cur()
	if !ok || seg.kind != segTag || strings.ToLower(tagWord(seg.text)) != word {
		return segment{}, &RenderError{Kind: "SyntaxError", Msg: "expected {% " + word + " %}"}
	}
	p.pos++
	return seg, nil
}

func tagArgs(text string) string {
	fields := strings.SplitN(text, " ", 2)
	if len(fields) < 2 {
		return ""
	}
	return strings.TrimSpace(fields[1])
}

func (p *blockParser) parseIf() (Node, error) {
	seg, err := p.expectTag("if")
	if err != nil {
		return nil, err
	}
	n := &ifNode{line: seg.line}
	cond, err := parseExpr(tagArgs(seg.text), seg.line)
	if err != nil {
		return nil, err
	}
	body, err := p.parseUntil()
	if err != nil {
		return nil, err
	}
	n.branches = append(n.branches, ifBranch{cond: cond, body: body})

	for {
		next, ok := p.cur()
		if !ok {
			return nil, &RenderError{Kind: "SyntaxError", Msg: "unterminated {% if %}", Line: seg.line}
		}
		word := strings.ToLower(tagWord(next.text))
		switch word {
		case "elsif":
			p.pos++
			cond, err := parseExpr(tagArgs(next.text), next.line)
			if err != nil {
				return nil, err
			}
			body, err := p.parseUntil()
			if err != nil {
				return nil, err
			}
			n.branches = append(n.branches, ifBranch{cond: cond, body: body})
		case "else":
			p.pos++
			body, err := p.parseUntil()
			if err != nil {
				return nil, err
			}
			n.branches = append(n.branches, ifBranch{cond: nil, body: body})
		case "endif":
			p.pos++
			return n, nil
		default:
			return nil, &RenderError{Kind: "SyntaxError", Msg: "unexpected tag in if block: " + word, Line: next.line}
		}
	}
}

func (p *blockParser) parseFor() (Node, error) {
	seg, err := p.expectTag("for")
	if err != nil {
		return nil, err
	}
	args := tagArgs(seg.text)
	fields := strings.Fields(args)
	if len(fields) < 3 || !strings.EqualFold(fields[1], "in") {
		return nil, &RenderError{Kind: "SyntaxError", Msg: "expected {% for x in list %}", Line: seg.line}
	}
	listExpr, err := parseExpr(strings.Join(fields[2:], " "), seg.line)
	if err != nil {
		return nil, err
	}
	n := &forNode{varName: fields[0], list: listExpr, line: seg.line}
	body, err := p.parseUntil()
	if err != nil {
		return nil, err
	}
	n.body = body
	if _, err := p.expectTag("endfor"); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *blockParser) parseCase() (Node, error) {
	seg, err := p.expectTag("case")
	if err != nil {
		return nil, err
	}
	subject, err := parseExpr(tagArgs(seg.text), seg.line)
	if err != nil {
		return nil, err
	}
	n := &caseNode{subject: subject, line: seg.line}

	// A case block's direct text/output between `case` and the first `when`
	// is discarded per Liquid semantics; skip it.
	if _, err := p.parseUntil(); err != nil {
		return nil, err
	}

	for {
		next, ok := p.cur()
		if !ok {
			return nil, &RenderError{Kind: "SyntaxError", Msg: "unterminated {% case %}", Line: seg.line}
		}
		word := strings.ToLower(tagWord(next.text))
		switch word {
		case "when":
			p.pos++
			var values []expr
			for _, part := range splitTopLevelOr(tagArgs(next.text)) {
				e, err := parseExpr(part, next.line)
				if err != nil {
					return nil, err
				}
				values = append(values, e)
			}
			body, err := p.parseUntil()
			if err != nil {
				return nil, err
			}
			n.whens = append(n.whens, caseWhen{values: values, body: body})
		case "else":
			p.pos++
			body, err := p.parseUntil()
			if err != nil {
				return nil, err
			}
			n.elseBody = body
		case "endcase":
			p.pos++
			return n, nil
		default:
			return nil, &RenderError{Kind: "SyntaxError", Msg: "unexpected tag in case block: " + word, Line: next.line}
		}
	}
}

// splitTopLevelOr splits a `when a or b or "c"` clause on " or "; Liquid
// allows comma separation too.
func splitTopLevelOr(s string) []string {
	s = strings.ReplaceAll(s, " or ", ",")
	var parts []string
	var cur strings.Builder
	inStr := false
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			cur.WriteByte(c)
			if c == quote {
				inStr = false
			}
			continue
		}
		if c == '"' || c == '\'' {
			inStr = true
			quote = c
			cur.WriteByte(c)
			continue
		}
		if c == ',' {
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	if strings.TrimSpace(cur.String()) != "" {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	return parts
}

func (p *blockParser) parseCapture() (Node, error) {
	seg, err := p.expectTag("capture")
	if err != nil {
		return nil, err
	}
	name := strings.Trim(tagArgs(seg.text), `"'`)
	n := &captureNode{varName: name, line: seg.line}
	body, err := p.parseUntil()
	if err != nil {
		return nil, err
	}
	n.body = body
	if _, err := p.expectTag("endcapture"); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *blockParser) parseComment() (Node, error) {
	if _, err := p.expectTag("comment"); err != nil {
		return nil, err
	}
	// Comment bodies are never evaluated; skip segments verbatim (including
	// anything that looks like a nested tag) until endcomment.
	depth := 1
	for {
		seg, ok := p.cur()
		if !ok {
			return nil, &RenderError{Kind: "SyntaxError", Msg: "unterminated {% comment %}"}
		}
		if seg.kind == segTag {
			word := strings.ToLower(tagWord(seg.text))
			if word == "comment" {
				depth++
			} else if word == "endcomment" {
				depth--
				if depth == 0 {
					p.pos++
					return &commentNode{}, nil
				}
			}
		}
		p.pos++
	}
}

func (p *blockParser) parseAssign(seg segment) (Node, error) {
	args := tagArgs(seg.text)
	eq := strings.Index(args, "=")
	if eq == -1 {
		return nil, &RenderError{Kind: "SyntaxError", Msg: "expected {% assign x = ... %}", Line: seg.line}
	}
	name := strings.TrimSpace(args[:eq])
	valExpr, err := parseExpr(args[eq+1:], seg.line)
	if err != nil {
		return nil, err
	}
	return &assignNode{varName: name, value: valExpr, line: seg.line}, nil
}

func (p *blockParser) parseCycle(seg segment) (Node, error) {
	args := tagArgs(seg.text)
	group := ""
	if colon := strings.Index(args, ":"); colon != -1 {
		maybeGroup := strings.TrimSpace(args[:colon])
		if strings.HasPrefix(maybeGroup, `"`) || strings.HasPrefix(maybeGroup, `'`) {
			group = strings.Trim(maybeGroup, `"'`)
			args = args[colon+1:]
		}
	}
	var values []expr
	for _, part := range splitTopLevelComma(args) {
		e, err := parseExpr(part, seg.line)
		if err != nil {
			return nil, err
		}
		values = append(values, e)
	}
	return &cycleNode{group: group, values: values, line: seg.line}, nil
}

func splitTopLevelComma(s string) []string {
	var parts []string
	var cur strings.Builder
	inStr := false
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			cur.WriteByte(c)
			if c == quote {
				inStr = false
			}
			continue
		}
		if c == '"' || c == '\'' {
			inStr = true
			quote = c
			cur.WriteByte(c)
			continue
		}
		if c == ',' {
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	if strings.TrimSpace(cur.String()) != "" {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	return parts
}

func (p *blockParser) parseRender(seg segment) (Node, error) {
	args := strings.TrimSpace(tagArgs(seg.text))
	name := strings.Trim(strings.Fields(args)[0], `"'`)
	return &renderNode{name: name, line: seg.line}, nil
}
