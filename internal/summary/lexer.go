package summary

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"retype/internal/diag"
	"retype/internal/source"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokComment
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokSemi
	tokComma
	tokEq
	tokArrow
	tokIllegal
)

func (k tokenKind) String() string {
	return [...]string{"end of file", "identifier", "string", "comment", "'{'", "'}'", "'['", "']'", "';'", "','", "'='", "'->'", "illegal character"}[k]
}

type token struct {
	kind tokenKind
	span source.Span
	// text is the identifier, the unquoted string or the comment body.
	text string
}

type lexer struct {
	cur      cursor
	reporter diag.Reporter
}

func newLexer(f *source.File, r diag.Reporter) *lexer {
	return &lexer{cur: newCursor(f), reporter: r}
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '.' || b == '-' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= utf8.RuneSelf
}

func (lx *lexer) skipSpace() {
	for !lx.cur.eof() {
		switch lx.cur.peek() {
		case ' ', '\t', '\n', '\r':
			lx.cur.bump()
		default:
			return
		}
	}
}

// next returns the next token; comments are tokens so the parser can keep
// the header line of each graph.
func (lx *lexer) next() token {
	lx.skipSpace()
	start := lx.cur.off
	if lx.cur.eof() {
		return token{kind: tokEOF, span: lx.cur.spanFrom(start)}
	}
	ch := lx.cur.peek()
	if b0, b1, ok := lx.cur.peek2(); ok {
		switch {
		case b0 == '/' && b1 == '/':
			for !lx.cur.eof() && lx.cur.peek() != '\n' {
				lx.cur.bump()
			}
			text := string(lx.cur.file.Content[start+2 : lx.cur.off])
			return token{kind: tokComment, span: lx.cur.spanFrom(start), text: strings.TrimSpace(text)}
		case b0 == '-' && b1 == '>':
			lx.cur.bump()
			lx.cur.bump()
			return token{kind: tokArrow, span: lx.cur.spanFrom(start)}
		}
	}
	switch ch {
	case '"':
		return lx.scanString()
	case '{', '}', '[', ']', ';', ',', '=':
		lx.cur.bump()
		kind := map[byte]tokenKind{'{': tokLBrace, '}': tokRBrace, '[': tokLBracket, ']': tokRBracket, ';': tokSemi, ',': tokComma, '=': tokEq}[ch]
		return token{kind: kind, span: lx.cur.spanFrom(start)}
	}
	if isIdentByte(ch) {
		for !lx.cur.eof() && isIdentByte(lx.cur.peek()) {
			if b0, b1, ok := lx.cur.peek2(); ok && b0 == '-' && b1 == '>' {
				break
			}
			lx.cur.bump()
		}
		text := norm.NFC.String(string(lx.cur.file.Content[start:lx.cur.off]))
		return token{kind: tokIdent, span: lx.cur.spanFrom(start), text: text}
	}
	lx.cur.bump()
	sp := lx.cur.spanFrom(start)
	diag.ReportError(lx.reporter, diag.DocSummaryToken, sp, "unexpected character "+strconv.QuoteRune(rune(ch))).Emit()
	return token{kind: tokIllegal, span: sp}
}

// scanString reads a DOT string. Only \" is an escape; other backslashes are
// kept, since record labels use them for their own escapes.
func (lx *lexer) scanString() token {
	start := lx.cur.off
	lx.cur.bump()
	var b strings.Builder
	for {
		if lx.cur.eof() {
			sp := lx.cur.spanFrom(start)
			diag.ReportError(lx.reporter, diag.DocSummaryToken, sp, "unterminated string").Emit()
			return token{kind: tokIllegal, span: sp}
		}
		c := lx.cur.bump()
		switch {
		case c == '"':
			return token{kind: tokString, span: lx.cur.spanFrom(start), text: norm.NFC.String(b.String())}
		case c == '\\' && lx.cur.peek() == '"':
			b.WriteByte(lx.cur.bump())
		default:
			b.WriteByte(c)
		}
	}
}
