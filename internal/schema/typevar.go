package schema

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// PrimitivePrefix marks primitive type variables in the textual grammar.
const PrimitivePrefix = "#"

// TypeVariable is a derived type variable: a base name, a path of field
// labels and an instantiation id. The zero Instance means "not instantiated".
//
// Values are treated as immutable; helpers that extend the path copy Labels.
type TypeVariable struct {
	Name      string
	Primitive bool
	Labels    []FieldLabel
	Instance  uint32
}

// Var builds a named type variable.
func Var(name string, labels ...FieldLabel) TypeVariable {
	tv := TypeVariable{Name: name}
	if len(labels) > 0 {
		tv.Labels = slices.Clone(labels)
	}
	return tv
}

// Prim builds a primitive type variable such as #int.
func Prim(name string) TypeVariable {
	return TypeVariable{Name: name, Primitive: true}
}

// HasLabels reports whether the variable has a non-empty path.
func (tv TypeVariable) HasLabels() bool { return len(tv.Labels) > 0 }

// Base drops every label.
func (tv TypeVariable) Base() TypeVariable {
	tv.Labels = nil
	return tv
}

// With appends labels to a copy of the variable.
func (tv TypeVariable) With(labels ...FieldLabel) TypeVariable {
	if len(labels) == 0 {
		return tv
	}
	out := make([]FieldLabel, 0, len(tv.Labels)+len(labels))
	out = append(out, tv.Labels...)
	out = append(out, labels...)
	tv.Labels = out
	return tv
}

// Parent strips the last label. ok is false for a label-less variable.
func (tv TypeVariable) Parent() (parent TypeVariable, last FieldLabel, ok bool) {
	if len(tv.Labels) == 0 {
		return tv, FieldLabel{}, false
	}
	n := len(tv.Labels) - 1
	last = tv.Labels[n]
	parent = tv
	if n == 0 {
		parent.Labels = nil
	} else {
		parent.Labels = slices.Clone(tv.Labels[:n])
	}
	return parent, last, true
}

// WithInstance stamps an instance id; primitives are shared and never instantiated.
func (tv TypeVariable) WithInstance(id uint32) TypeVariable {
	if tv.Primitive {
		return tv
	}
	tv.Instance = id
	return tv
}

// Compare orders variables by primitive flag, name, instance and then path.
func (tv TypeVariable) Compare(o TypeVariable) int {
	if tv.Primitive != o.Primitive {
		if tv.Primitive {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(tv.Name, o.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(tv.Instance, o.Instance); c != 0 {
		return c
	}
	return slices.CompareFunc(tv.Labels, o.Labels, FieldLabel.Compare)
}

// Equal reports structural equality.
func (tv TypeVariable) Equal(o TypeVariable) bool { return tv.Compare(o) == 0 }

// BaseString prints the base name with its primitive marker and instance.
func (tv TypeVariable) BaseString() string {
	var b strings.Builder
	tv.writeBase(&b)
	return b.String()
}

func (tv TypeVariable) writeBase(b *strings.Builder) {
	if tv.Primitive {
		b.WriteString(PrimitivePrefix)
	}
	b.WriteString(tv.Name)
	if tv.Instance != 0 {
		b.WriteByte('<')
		b.WriteString(strconv.FormatUint(uint64(tv.Instance), 10))
		b.WriteByte('>')
	}
}

func (tv TypeVariable) String() string {
	var b strings.Builder
	tv.writeBase(&b)
	for _, l := range tv.Labels {
		b.WriteByte('.')
		b.WriteString(l.String())
	}
	return b.String()
}
