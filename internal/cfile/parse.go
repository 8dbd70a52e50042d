package cfile

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"fortio.org/safecast"

	"retype/internal/diag"
	"retype/internal/schema"
	"retype/internal/source"
)

type reader struct {
	doc      *Document
	r        diag.Reporter
	cur      *Function
	implicit *Function
	seen     map[string]*Function
}

// Parse reads a constraint file. Every problem becomes a diagnostic; the
// returned document holds whatever parsed cleanly.
func Parse(file *source.File, r diag.Reporter) *Document {
	if r == nil {
		r = diag.NopReporter{}
	}
	rd := &reader{doc: &Document{File: file}, r: r, seen: map[string]*Function{}}
	var off uint32
	for _, line := range strings.SplitAfter(string(file.Content), "\n") {
		text := strings.TrimRight(line, "\r\n")
		rd.line(text, source.Span{File: file.ID, Start: off, End: off + offset(len(text))})
		off += offset(len(line))
	}
	if rd.cur != nil {
		diag.ReportError(r, diag.DocUnclosedFunction, rd.cur.Span, "fn "+rd.cur.Name+" is never closed").Emit()
		rd.finish(rd.cur)
	}
	if rd.implicit != nil {
		rd.finish(rd.implicit)
	}
	return rd.doc
}

// ParseSource parses src as a virtual file of fs.
func ParseSource(fs *source.FileSet, name string, src []byte) (*Document, *diag.Bag) {
	bag := diag.NewBag(100)
	id := fs.AddVirtual(name, src)
	return Parse(fs.Get(id), diag.BagReporter{Bag: bag}), bag
}

// trimmed returns the line without surrounding blanks and the span of what
// is left.
func trimmed(text string, sp source.Span) (string, source.Span) {
	lead := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	body := strings.TrimSpace(text)
	return body, sp.Sub(offset(lead), offset(lead+len(body)))
}

// offset converts a position inside a file, whose size a uint32 span bounds.
func offset(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("offset %d overflows a span: %w", n, err))
	}
	return v
}

func (rd *reader) line(raw string, sp source.Span) {
	text, sp := trimmed(raw, sp)
	switch {
	case text == "" || strings.HasPrefix(text, "//"):
		return
	case text == "}":
		if rd.cur == nil {
			diag.ReportError(rd.r, diag.DocUnmatchedBrace, sp, "'}' without an open fn block").Emit()
			return
		}
		rd.finish(rd.cur)
		rd.cur = nil
		return
	case strings.HasPrefix(text, "fn ") || text == "fn":
		rd.open(text, sp)
		return
	}

	fn := rd.cur
	if fn == nil {
		if rd.implicit == nil {
			rd.implicit = &Function{Name: defaultName(rd.doc.File.Path), Span: sp}
			rd.doc.Functions = append(rd.doc.Functions, rd.implicit)
		}
		fn = rd.implicit
	}
	switch {
	case strings.HasPrefix(text, "interesting ") || text == "interesting":
		rd.interesting(fn, text, sp)
	case strings.HasPrefix(text, "add ") || strings.HasPrefix(text, "sub "):
		a, err := schema.ParseArith(text)
		if err != nil {
			rd.parseError(diag.ParseBadArith, text, sp, err)
			return
		}
		fn.Arith = append(fn.Arith, Arith{ArithConstraint: a, Span: sp})
	default:
		body, _, _ := strings.Cut(text, "//")
		c, err := schema.ParseConstraint(body)
		if err != nil {
			rd.parseError(diag.ParseBadConstraint, text, sp, err)
			return
		}
		fn.Constraints = append(fn.Constraints, Constraint{SubTypeConstraint: c, Span: sp})
	}
}

func (rd *reader) open(text string, sp source.Span) {
	if rd.cur != nil {
		diag.ReportError(rd.r, diag.DocUnclosedFunction, rd.cur.Span, "fn "+rd.cur.Name+" is never closed").
			WithNote(sp, "next fn starts here").Emit()
		rd.finish(rd.cur)
		rd.cur = nil
	}
	header := strings.TrimSpace(strings.TrimPrefix(text, "fn"))
	closed := false
	if h, ok := strings.CutSuffix(header, "}"); ok {
		header, closed = strings.TrimSpace(h), true
	}
	name, ok := strings.CutSuffix(header, "{")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.ContainsFunc(name, unicode.IsSpace) {
		diag.ReportError(rd.r, diag.DocUnexpectedLine, sp, "expected 'fn NAME {'").Emit()
		return
	}
	fn := &Function{Name: name, Span: sp}
	if prev, dup := rd.seen[name]; dup {
		diag.ReportError(rd.r, diag.DocDuplicateFunction, sp, "fn "+name+" is already defined").
			WithNote(prev.Span, "first definition").Emit()
	} else {
		rd.seen[name] = fn
		rd.doc.Functions = append(rd.doc.Functions, fn)
	}
	rd.cur = fn
	if closed {
		rd.finish(fn)
		rd.cur = nil
	}
}

func (rd *reader) interesting(fn *Function, text string, sp source.Span) {
	fields := strings.Fields(strings.TrimPrefix(text, "interesting"))
	if len(fields) == 0 {
		diag.ReportError(rd.r, diag.DocUnexpectedLine, sp, "interesting needs at least one variable").Emit()
		return
	}
	for _, f := range fields {
		tv, err := schema.ParseVar(f)
		if err != nil {
			rd.parseError(diag.ParseBadVariable, text, sp, err)
			continue
		}
		fn.Interesting = append(fn.Interesting, tv.Base())
	}
}

// parseError points the diagnostic at the text the grammar gave up on.
func (rd *reader) parseError(code diag.Code, text string, sp source.Span, err error) {
	at := sp
	var pe *schema.ParseError
	if errors.As(err, &pe) {
		if strings.Contains(pe.Msg, "field label") {
			code = diag.ParseBadLabel
		}
		if i := strings.LastIndex(text, pe.Rest); pe.Rest != "" && i >= 0 {
			at = sp.Sub(offset(i), sp.Len())
		}
	}
	diag.ReportError(rd.r, code, at, err.Error()).Emit()
}

func (rd *reader) finish(fn *Function) {
	if len(fn.Constraints) == 0 && len(fn.Arith) == 0 {
		diag.ReportWarning(rd.r, diag.DocEmptyFunction, fn.Span, "fn "+fn.Name+" has no constraints").Emit()
		return
	}
	used := fn.Vars()
	for _, tv := range fn.Interesting {
		if !used[tv.String()] {
			diag.ReportWarning(rd.r, diag.DocUnusedInteresting, fn.Span, tv.String()+" does not occur in fn "+fn.Name).Emit()
		}
	}
}
