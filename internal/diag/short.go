package diag

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"retype/internal/source"
)

type shortEntry struct {
	rank   int
	sev    string
	code   string
	path   string
	line   uint32
	column uint32
	msg    string
}

// FormatShort renders one line per diagnostic, "severity CODE path:line:col
// message", sorted by position. Notes become "note" lines when includeNotes
// is set. Used by `retype check --format short` and in tests.
func FormatShort(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}
	var rows []shortEntry
	for _, d := range diags {
		if e, ok := entry(fs, d.Primary, d.Severity.String(), d.Code, d.Message); ok {
			rows = append(rows, e)
		}
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			if e, ok := entry(fs, n.Span, "note", d.Code, n.Msg); ok {
				rows = append(rows, e)
			}
		}
	}
	slices.SortStableFunc(rows, func(a, b shortEntry) int {
		return cmp.Or(
			cmp.Compare(a.path, b.path),
			cmp.Compare(a.line, b.line),
			cmp.Compare(a.column, b.column),
			cmp.Compare(a.rank, b.rank),
			cmp.Compare(a.code, b.code),
			cmp.Compare(a.msg, b.msg),
		)
	})
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("%s %s %s:%d:%d %s", r.sev, r.code, r.path, r.line, r.column, r.msg)
	}
	return strings.Join(lines, "\n")
}

func entry(fs *source.FileSet, span source.Span, sev string, code Code, msg string) (shortEntry, bool) {
	if int(span.File) >= fs.Len() {
		return shortEntry{}, false
	}
	start, _ := fs.Resolve(span)
	path := strings.TrimPrefix(fs.Get(span.File).FormatPath("relative", fs.BaseDir()), "./")
	return shortEntry{
		rank:   slices.Index([]string{"error", "warning", "info", "note"}, sev),
		sev:    sev,
		code:   code.ID(),
		path:   path,
		line:   start.Line,
		column: start.Col,
		msg:    sanitizeMessage(msg),
	}, true
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
