package summary

import (
	"fmt"

	"retype/internal/diag"
	"retype/internal/schema"
	"retype/internal/source"
)

// ParseSource parses src as a virtual file of fs, collecting diagnostics in
// a fresh bag.
func ParseSource(fs *source.FileSet, name string, src []byte) ([]*Summary, *diag.Bag) {
	bag := diag.NewBag(100)
	id := fs.AddVirtual(name, src)
	return Parse(fs.Get(id), diag.BagReporter{Bag: bag}), bag
}

type parser struct {
	lx       *lexer
	tok      token
	comment  string
	reporter diag.Reporter
}

// Parse reads every graph in file. Problems are reported as diagnostics and
// the parser resynchronises at the next statement, so one bad line does not
// hide the rest of the file.
func Parse(file *source.File, r diag.Reporter) []*Summary {
	if r == nil {
		r = diag.NopReporter{}
	}
	p := &parser{lx: newLexer(file, r), reporter: r}
	p.advance()
	var out []*Summary
	start := p.tok.span
	for p.tok.kind != tokEOF {
		if p.tok.kind == tokIdent && (p.tok.text == "digraph" || p.tok.text == "strict") {
			if s := p.graph(); s != nil {
				out = append(out, s)
			}
			continue
		}
		p.errorf(diag.DocSummaryToken, p.tok.span, "expected digraph, found %s", p.tok.kind)
		p.advance()
	}
	if len(out) == 0 {
		diag.ReportError(r, diag.DocSummaryMissingGraph, start, "no digraph in "+file.Path).Emit()
	}
	return out
}

// advance moves to the next non-comment token, remembering the last comment.
func (p *parser) advance() {
	for {
		p.tok = p.lx.next()
		if p.tok.kind != tokComment {
			return
		}
		p.comment = p.tok.text
	}
}

func (p *parser) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	diag.ReportError(p.reporter, code, sp, fmt.Sprintf(format, args...)).Emit()
}

func (p *parser) expect(kind tokenKind) (token, bool) {
	t := p.tok
	if t.kind != kind {
		p.errorf(diag.DocSummaryToken, t.span, "expected %s, found %s", kind, t.kind)
		return t, false
	}
	p.advance()
	return t, true
}

func (p *parser) id() (token, bool) {
	if p.tok.kind == tokIdent || p.tok.kind == tokString {
		t := p.tok
		p.advance()
		return t, true
	}
	p.errorf(diag.DocSummaryToken, p.tok.span, "expected an identifier, found %s", p.tok.kind)
	return p.tok, false
}

// skipStatement drops tokens up to the end of the current statement.
func (p *parser) skipStatement() {
	for p.tok.kind != tokEOF && p.tok.kind != tokSemi && p.tok.kind != tokRBrace {
		p.advance()
	}
	if p.tok.kind == tokSemi {
		p.advance()
	}
}

type graphBuilder struct {
	s     *Summary
	nodes map[string]int
}

func (p *parser) graph() *Summary {
	comment := p.comment
	p.comment = ""
	if p.tok.text == "strict" {
		p.advance()
	}
	p.advance() // digraph
	s := &Summary{Comment: comment}
	if p.tok.kind == tokIdent || p.tok.kind == tokString {
		s.Name = p.tok.text
		p.advance()
	}
	if s.Comment == "" {
		s.Comment = s.Name
	}
	if _, ok := p.expect(tokLBrace); !ok {
		p.skipStatement()
		return nil
	}
	gb := &graphBuilder{s: s, nodes: map[string]int{}}
	for p.tok.kind != tokRBrace && p.tok.kind != tokEOF {
		p.statement(gb)
	}
	p.comment = ""
	if _, ok := p.expect(tokRBrace); !ok {
		return nil
	}
	return s
}

func (p *parser) statement(gb *graphBuilder) {
	first, ok := p.id()
	if !ok {
		p.advance()
		p.skipStatement()
		return
	}
	switch {
	case p.tok.kind == tokArrow:
		p.advance()
		second, ok := p.id()
		if !ok {
			p.skipStatement()
			return
		}
		attrs, _ := p.attrs()
		p.edge(gb, first, second, attrs)
	case first.kind == tokIdent && (first.text == "node" || first.text == "edge" || first.text == "graph"):
		p.attrs()
	case p.tok.kind == tokEq:
		p.advance()
		p.id()
	default:
		attrs, _ := p.attrs()
		p.node(gb, first, attrs)
	}
	if p.tok.kind == tokSemi || p.tok.kind == tokComma {
		p.advance()
	}
}

type attr struct {
	key, value token
}

func (p *parser) attrs() ([]attr, bool) {
	if p.tok.kind != tokLBracket {
		return nil, true
	}
	p.advance()
	var out []attr
	for p.tok.kind != tokRBracket {
		k, ok := p.id()
		if !ok {
			p.skipStatement()
			return out, false
		}
		if _, ok := p.expect(tokEq); !ok {
			p.skipStatement()
			return out, false
		}
		v, ok := p.id()
		if !ok {
			p.skipStatement()
			return out, false
		}
		out = append(out, attr{k, v})
		if p.tok.kind == tokComma || p.tok.kind == tokSemi {
			p.advance()
		}
	}
	p.advance()
	return out, true
}

func label(attrs []attr) (token, bool) {
	for _, a := range attrs {
		if a.key.text == "label" {
			return a.value, true
		}
	}
	return token{}, false
}

func (p *parser) node(gb *graphBuilder, name token, attrs []attr) {
	lbl, ok := label(attrs)
	if !ok {
		p.errorf(diag.DocSummaryNode, name.span, "node %s has no label", name.text)
		return
	}
	if _, dup := gb.nodes[name.text]; dup {
		p.errorf(diag.DocSummaryNode, name.span, "node %s declared twice", name.text)
		return
	}
	id, key, class, v, err := parseRecord(lbl.text)
	if err != nil {
		p.errorf(diag.DocSummaryNode, lbl.span, "%v", err)
		return
	}
	gb.nodes[name.text] = len(gb.s.Nodes)
	gb.s.Nodes = append(gb.s.Nodes, Node{ID: id, Key: key, Class: class, Value: v, Span: name.span.Cover(lbl.span)})
}

func (p *parser) edge(gb *graphBuilder, from, to token, attrs []attr) {
	sp := from.span.Cover(to.span)
	fi, ok1 := gb.nodes[from.text]
	ti, ok2 := gb.nodes[to.text]
	switch {
	case !ok1:
		p.errorf(diag.DocSummaryUnknownNode, from.span, "edge from undeclared node %s", from.text)
		return
	case !ok2:
		p.errorf(diag.DocSummaryUnknownNode, to.span, "edge to undeclared node %s", to.text)
		return
	}
	lbl, ok := label(attrs)
	if !ok {
		p.errorf(diag.DocSummaryEdge, sp, "edge %s -> %s has no label", from.text, to.text)
		return
	}
	l, err := schema.ParseEdgeLabel(lbl.text)
	if err != nil {
		p.errorf(diag.DocSummaryEdge, lbl.span, "%v", err)
		return
	}
	gb.s.Edges = append(gb.s.Edges, Edge{From: fi, To: ti, Label: l, Span: sp.Cover(lbl.span)})
}
