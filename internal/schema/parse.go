package schema

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// ParseError is a recoverable grammar failure. Rest is the input that was
// not consumed when the production gave up, so callers can try another one.
type ParseError struct {
	Msg  string
	Rest string
}

func (e *ParseError) Error() string {
	rest := e.Rest
	if utf8.RuneCountInString(rest) > 24 {
		rest = string([]rune(rest)[:24]) + "..."
	}
	if rest == "" {
		return e.Msg + " at end of input"
	}
	return fmt.Sprintf("%s at %q", e.Msg, rest)
}

func fail(msg, rest string) error {
	return &ParseError{Msg: msg, Rest: rest}
}

const identStops = ".<=⊑,(){}[]|\";⊕⊖'"

func isIdentStop(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(identStops, r)
}

// ParseIdentifier reads a base or label name. Names end at whitespace or at
// one of the grammar punctuation characters; they are normalised to NFC.
func ParseIdentifier(s string) (string, string, error) {
	end := len(s)
	for i, r := range s {
		if isIdentStop(r) {
			end = i
			break
		}
	}
	if end == 0 {
		return "", s, fail("expected identifier", s)
	}
	return norm.NFC.String(s[:end]), s[end:], nil
}

func scanDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

func parseSigned(s string) (int64, string, error) {
	neg := false
	body := s
	if strings.HasPrefix(body, "-") {
		neg = true
		body = body[1:]
	}
	digits, rest := scanDigits(body)
	if digits == "" {
		return 0, s, fail("expected number", s)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, s, fail("number out of range", s)
	}
	if neg {
		n = -n
	}
	return n, rest, nil
}

func parseUnsigned(s string) (uint64, string, error) {
	digits, rest := scanDigits(s)
	if digits == "" {
		return 0, s, fail("expected number", s)
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, s, fail("number out of range", s)
	}
	return n, rest, nil
}

func parseAccessSize(s string) (AccessSize, string, error) {
	if strings.HasPrefix(s, "p") {
		return PointerSized, s[1:], nil
	}
	n, rest, err := parseUnsigned(s)
	if err != nil {
		return 0, s, fail("expected access size or 'p'", s)
	}
	if n == 0 {
		return 0, s, fail("access size must be positive", s)
	}
	size, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0, s, fail("access size out of range", s)
	}
	return AccessSize(size), rest, nil
}

func parseBound(s string) (Bound, string, error) {
	if !strings.HasPrefix(s, "[") {
		return Bound{}, s, nil
	}
	body := s[1:]
	var b Bound
	switch {
	case strings.HasPrefix(body, "nul]"):
		return Bound{Kind: BoundNulTerminated}, body[4:], nil
	case strings.HasPrefix(body, "*]"):
		return Bound{Kind: BoundUnbounded}, body[2:], nil
	}
	n, rest, err := parseUnsigned(body)
	if err != nil {
		return Bound{}, s, fail("expected array count, 'nul' or '*'", body)
	}
	if !strings.HasPrefix(rest, "]") {
		return Bound{}, s, fail("expected ']'", rest)
	}
	b.Kind = BoundFixed
	b.Count = n
	return b, rest[1:], nil
}

func parseOffset(s string) (OffsetRange, string, error) {
	off, rest, err := parseSigned(s)
	if err != nil {
		return OffsetRange{}, s, err
	}
	r := OffsetRange{Offset: off}
	for strings.HasPrefix(rest, "+") {
		stride, after, err := parseSigned(rest[1:])
		if err != nil {
			return OffsetRange{}, s, err
		}
		bound, after, err := parseBound(after)
		if err != nil {
			return OffsetRange{}, s, err
		}
		r.Access = append(r.Access, ArrayAccess{Stride: stride, Bound: bound})
		rest = after
	}
	return r, rest, nil
}

// ParseFieldLabel tries the label productions in order: in_, out/out_,
// @offset, load, store.
func ParseFieldLabel(s string) (FieldLabel, string, error) {
	switch {
	case strings.HasPrefix(s, "in_"):
		name, rest, err := ParseIdentifier(s[3:])
		if err != nil {
			return FieldLabel{}, s, fail("expected parameter name after in_", s[3:])
		}
		return In(name), rest, nil
	case strings.HasPrefix(s, "out"):
		rest := s[3:]
		if !strings.HasPrefix(rest, "_") {
			return Out(""), rest, nil
		}
		name, rest, err := ParseIdentifier(rest[1:])
		if err != nil {
			return FieldLabel{}, s, fail("expected return name after out_", rest)
		}
		return Out(name), rest, nil
	case strings.HasPrefix(s, "@"):
		r, rest, err := parseOffset(s[1:])
		if err != nil {
			return FieldLabel{}, s, err
		}
		return FieldLabel{Kind: LabelOffset, Range: r}, rest, nil
	case strings.HasPrefix(s, "load"):
		size, rest, err := parseAccessSize(s[4:])
		if err != nil {
			return FieldLabel{}, s, err
		}
		return Load(size), rest, nil
	case strings.HasPrefix(s, "store"):
		size, rest, err := parseAccessSize(s[5:])
		if err != nil {
			return FieldLabel{}, s, err
		}
		return Store(size), rest, nil
	}
	return FieldLabel{}, s, fail("unknown field label", s)
}

// ParseTypeVariable reads name ("." FieldLabel)*, with an optional "#" prefix
// for primitives and an optional "<N>" instance suffix on the base.
func ParseTypeVariable(s string) (TypeVariable, string, error) {
	in := strings.TrimLeftFunc(s, unicode.IsSpace)
	var tv TypeVariable
	rest := in
	if strings.HasPrefix(rest, PrimitivePrefix) {
		tv.Primitive = true
		rest = rest[len(PrimitivePrefix):]
	}
	name, rest, err := ParseIdentifier(rest)
	if err != nil {
		return TypeVariable{}, s, err
	}
	tv.Name = name
	if strings.HasPrefix(rest, "<") && len(rest) > 1 && rest[1] >= '0' && rest[1] <= '9' {
		n, after, err := parseUnsigned(rest[1:])
		if err != nil || !strings.HasPrefix(after, ">") {
			return TypeVariable{}, s, fail("malformed instance suffix", rest)
		}
		id, cerr := safecast.Conv[uint32](n)
		if cerr != nil || id == 0 {
			return TypeVariable{}, s, fail("instance id must be in 1..2^32-1", rest)
		}
		tv.Instance = id
		rest = after[1:]
	}
	for strings.HasPrefix(rest, ".") {
		l, after, err := ParseFieldLabel(rest[1:])
		if err != nil {
			return TypeVariable{}, s, err
		}
		tv.Labels = append(tv.Labels, l)
		rest = after
	}
	return tv, rest, nil
}

// ParseSubTypeConstraint reads DTV ("⊑" | "<=") DTV.
func ParseSubTypeConstraint(s string) (SubTypeConstraint, string, error) {
	sub, rest, err := ParseTypeVariable(s)
	if err != nil {
		return SubTypeConstraint{}, s, err
	}
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	switch {
	case strings.HasPrefix(rest, "<="):
		rest = rest[2:]
	case strings.HasPrefix(rest, "⊑"):
		rest = rest[len("⊑"):]
	default:
		return SubTypeConstraint{}, s, fail("expected '<=' or '⊑'", rest)
	}
	sup, rest, err := ParseTypeVariable(rest)
	if err != nil {
		return SubTypeConstraint{}, s, err
	}
	return SubTypeConstraint{Sub: sub, Sup: sup}, rest, nil
}

func requireEnd(rest string) error {
	if strings.TrimSpace(rest) != "" {
		return fail("unexpected trailing input", rest)
	}
	return nil
}

// ParseVar parses a whole string as one type variable.
func ParseVar(s string) (TypeVariable, error) {
	tv, rest, err := ParseTypeVariable(s)
	if err != nil {
		return TypeVariable{}, err
	}
	return tv, requireEnd(rest)
}

// ParseConstraint parses a whole string as one subtype constraint.
func ParseConstraint(s string) (SubTypeConstraint, error) {
	c, rest, err := ParseSubTypeConstraint(s)
	if err != nil {
		return SubTypeConstraint{}, err
	}
	return c, requireEnd(rest)
}

// ParseArith reads the form printed by ArithConstraint.String:
// ("add" | "sub") LEFT RIGHT RESULT, then an optional "// origin".
func ParseArith(s string) (ArithConstraint, error) {
	body, origin, _ := strings.Cut(s, "//")
	var c ArithConstraint
	c.Origin = strings.TrimSpace(origin)
	rest := strings.TrimLeftFunc(body, unicode.IsSpace)
	switch {
	case strings.HasPrefix(rest, "add "):
		c.Kind = ArithAdd
	case strings.HasPrefix(rest, "sub "):
		c.Kind = ArithSub
	default:
		return ArithConstraint{}, fail("expected 'add' or 'sub'", rest)
	}
	rest = rest[len("add "):]
	for _, dst := range []*TypeVariable{&c.Left, &c.Right, &c.Result} {
		tv, after, err := ParseTypeVariable(rest)
		if err != nil {
			return ArithConstraint{}, err
		}
		*dst = tv
		rest = after
	}
	return c, requireEnd(rest)
}

// MustParseConstraints parses one constraint per element and panics on error.
// It is meant for fixtures.
func MustParseConstraints(lines ...string) []SubTypeConstraint {
	out := make([]SubTypeConstraint, 0, len(lines))
	for _, line := range lines {
		c, err := ParseConstraint(line)
		if err != nil {
			panic(fmt.Errorf("parse %q: %w", line, err))
		}
		out = append(out, c)
	}
	return out
}
