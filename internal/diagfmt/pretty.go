package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"retype/internal/diag"
	"retype/internal/source"
)

type palette struct {
	err, warn, info, note, loc, caret *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:   mk(color.FgRed, color.Bold),
		warn:  mk(color.FgYellow, color.Bold),
		info:  mk(color.FgCyan),
		note:  mk(color.FgBlue),
		loc:   mk(color.Bold),
		caret: mk(color.FgGreen, color.Bold),
	}
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty prints each diagnostic as
//
//	path:line:col: SEV CODE: message
//	  12 | source line
//	     |     ^~~~
//
// followed by its notes. The bag is printed in its current order; callers
// sort it first.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		sev := p.severity(d.Severity)
		header := fmt.Sprintf("%s %s: %s", sev.Sprint(d.Severity.String()), d.Code.ID(), d.Message)
		writeLocated(w, fs, d.Primary, p, header, opts, p.caret)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			writeLocated(w, fs, n.Span, p, p.note.Sprint("note")+": "+n.Msg, opts, p.note)
		}
	}
}

func writeLocated(w io.Writer, fs *source.FileSet, span source.Span, p palette, header string, opts PrettyOpts, caret *color.Color) {
	if fs == nil || int(span.File) >= fs.Len() {
		fmt.Fprintln(w, header)
		return
	}
	f := fs.Get(span.File)
	start, end := fs.Resolve(span)
	fmt.Fprintf(w, "%s %s\n", p.loc.Sprintf("%s:%d:%d:", formatPath(f, fs, opts.PathMode), start.Line, start.Col), header)

	gutter := len(fmt.Sprint(start.Line))
	for i := int(opts.Context); i > 0; i-- {
		if l := int(start.Line) - i; l >= 1 {
			fmt.Fprintf(w, "  %*d | %s\n", gutter, l, clip(f.GetLine(uint32(l)), opts.Width)) //nolint:gosec // l >= 1
		}
	}
	line := f.GetLine(start.Line)
	fmt.Fprintf(w, "  %*d | %s\n", gutter, start.Line, clip(line, opts.Width))
	fmt.Fprintf(w, "  %*s | %s\n", gutter, "", caret.Sprint(underline(line, start.Col, end, start.Line)))
}

// underline builds the "^~~~" marker, measuring display width so wide and
// combining runes stay aligned with the line above.
func underline(line string, col uint32, end source.LineCol, lineNo uint32) string {
	startByte := min(int(col-1), len(line))
	endByte := len(line)
	if end.Line == lineNo {
		endByte = min(int(end.Col-1), len(line))
	}
	pad := runewidth.StringWidth(line[:startByte])
	width := max(runewidth.StringWidth(line[startByte:max(endByte, startByte)]), 1)
	return strings.Repeat(" ", pad) + "^" + strings.Repeat("~", width-1)
}

func clip(s string, width uint8) string {
	if width == 0 {
		return s
	}
	return runewidth.Truncate(s, int(width), "…")
}
