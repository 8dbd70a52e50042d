// Package pni classifies values as pointers or numbers from the arithmetic
// they take part in. Classes live in an arena-backed union-find; Add and Sub
// constraints are solved by a worklist until nothing changes.
package pni

// PtrOrNum is the classification of one equivalence class.
type PtrOrNum uint8

const (
	Unknown PtrOrNum = iota
	Number
	Pointer
	// Null has seen no evidence at all; any other value replaces it.
	Null
	// NotApplicable marks a typed primitive (float, i16, ...); Value.Prim names it.
	NotApplicable
)

func (p PtrOrNum) String() string {
	switch p {
	case Unknown:
		return "unknown"
	case Number:
		return "number"
	case Pointer:
		return "pointer"
	case Null:
		return "null"
	case NotApplicable:
		return "primitive"
	}
	return "invalid"
}

// ParsePtrOrNum is the inverse of String.
func ParsePtrOrNum(s string) (PtrOrNum, bool) {
	for _, p := range []PtrOrNum{Unknown, Number, Pointer, Null, NotApplicable} {
		if p.String() == s {
			return p, true
		}
	}
	return Unknown, false
}

func rank(p PtrOrNum) int {
	switch p {
	case Null:
		return 0
	case Unknown:
		return 1
	case Number, Pointer:
		return 2
	case NotApplicable:
		return 3
	}
	return 0
}

// Value is the lattice element stored on a class owner.
type Value struct {
	Kind     PtrOrNum
	Prim     string
	Conflict bool
}

// Known reports a concrete classification.
func (v Value) Known() bool {
	return v.Kind == Number || v.Kind == Pointer || v.Kind == NotApplicable
}

// IsNonPointer reports Number or a typed primitive.
func (v Value) IsNonPointer() bool {
	return v.Kind == Number || v.Kind == NotApplicable
}

// char is the letter used by the rule tables: p, i or u.
func (v Value) char() byte {
	switch {
	case v.Kind == Pointer:
		return 'p'
	case v.IsNonPointer():
		return 'i'
	}
	return 'u'
}

func (v Value) String() string {
	s := v.Kind.String()
	if v.Kind == NotApplicable {
		s += "(" + v.Prim + ")"
	}
	if v.Conflict {
		s += "!"
	}
	return s
}

// Merge returns the more specific of a and b. Pointer against Number is a
// conflict resolved to Pointer; two different primitives conflict and keep
// the lexically smaller name, so the result never depends on argument order.
func Merge(a, b Value) Value {
	out := Value{Conflict: a.Conflict || b.Conflict}
	ra, rb := rank(a.Kind), rank(b.Kind)
	switch {
	case ra > rb:
		out.Kind, out.Prim = a.Kind, a.Prim
	case rb > ra:
		out.Kind, out.Prim = b.Kind, b.Prim
	case a.Kind == b.Kind:
		out.Kind, out.Prim = a.Kind, a.Prim
		if a.Kind == NotApplicable && a.Prim != b.Prim {
			out.Conflict = true
			out.Prim = min(a.Prim, b.Prim)
		}
	default:
		out.Kind = Pointer
		out.Conflict = true
	}
	if (a.Kind == NotApplicable && b.Kind == Pointer) || (b.Kind == NotApplicable && a.Kind == Pointer) {
		out.Conflict = true
	}
	return out
}
