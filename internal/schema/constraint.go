package schema

import (
	"slices"
	"strings"
)

// SubTypeConstraint states Sub ⊑ Sup.
type SubTypeConstraint struct {
	Sub TypeVariable
	Sup TypeVariable
}

// Subtype is a shorthand constructor.
func Subtype(sub, sup TypeVariable) SubTypeConstraint {
	return SubTypeConstraint{Sub: sub, Sup: sup}
}

func (c SubTypeConstraint) String() string { return c.Format(false) }

// Format prints the constraint with "<=" or, when unicode is set, "⊑".
func (c SubTypeConstraint) Format(unicode bool) string {
	op := " <= "
	if unicode {
		op = " ⊑ "
	}
	return c.Sub.String() + op + c.Sup.String()
}

// Compare orders constraints by Sub, then Sup.
func (c SubTypeConstraint) Compare(o SubTypeConstraint) int {
	if r := c.Sub.Compare(o.Sub); r != 0 {
		return r
	}
	return c.Sup.Compare(o.Sup)
}

// Trivial reports Sub == Sup.
func (c SubTypeConstraint) Trivial() bool { return c.Sub.Equal(c.Sup) }

// SortConstraints sorts in place and drops duplicates.
func SortConstraints(cs []SubTypeConstraint) []SubTypeConstraint {
	slices.SortFunc(cs, SubTypeConstraint.Compare)
	return slices.CompactFunc(cs, func(a, b SubTypeConstraint) bool { return a.Compare(b) == 0 })
}

// ArithKind selects the arithmetic relation of an ArithConstraint.
type ArithKind uint8

const (
	ArithAdd ArithKind = iota
	ArithSub
)

func (k ArithKind) String() string {
	if k == ArithSub {
		return "sub"
	}
	return "add"
}

// ArithConstraint relates three values by Result = Left (+|-) Right. Origin is
// free text naming the instruction it came from.
type ArithConstraint struct {
	Kind   ArithKind
	Left   TypeVariable
	Right  TypeVariable
	Result TypeVariable
	Origin string
}

func (c ArithConstraint) String() string {
	var b strings.Builder
	b.WriteString(c.Kind.String())
	for _, tv := range []TypeVariable{c.Left, c.Right, c.Result} {
		b.WriteByte(' ')
		b.WriteString(tv.String())
	}
	if c.Origin != "" {
		b.WriteString(" // ")
		b.WriteString(c.Origin)
	}
	return b.String()
}

// Compare orders arithmetic constraints by kind and operands; Origin is ignored.
func (c ArithConstraint) Compare(o ArithConstraint) int {
	if c.Kind != o.Kind {
		if c.Kind < o.Kind {
			return -1
		}
		return 1
	}
	if r := c.Left.Compare(o.Left); r != 0 {
		return r
	}
	if r := c.Right.Compare(o.Right); r != 0 {
		return r
	}
	return c.Result.Compare(o.Result)
}
