package schema

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// LabelKind enumerates the field-label alphabet.
type LabelKind uint8

const (
	// LabelIn is a parameter access (in_NAME), contravariant.
	LabelIn LabelKind = iota
	// LabelOut is a return access (out or out_NAME), covariant.
	LabelOut
	// LabelOffset is a byte offset, optionally followed by array accesses.
	LabelOffset
	// LabelLoad reads through a pointer.
	LabelLoad
	// LabelStore writes through a pointer.
	LabelStore
)

func (k LabelKind) String() string {
	switch k {
	case LabelIn:
		return "in"
	case LabelOut:
		return "out"
	case LabelOffset:
		return "offset"
	case LabelLoad:
		return "load"
	case LabelStore:
		return "store"
	}
	return "unknown"
}

// AccessSize is a load/store width in bytes; PointerSized is written as "p".
type AccessSize uint32

// PointerSized marks an access as wide as a pointer.
const PointerSized AccessSize = 0

func (s AccessSize) String() string {
	if s == PointerSized {
		return "p"
	}
	return strconv.FormatUint(uint64(s), 10)
}

// BoundKind describes how many elements an array access covers.
type BoundKind uint8

const (
	BoundNone BoundKind = iota
	BoundFixed
	BoundNulTerminated
	BoundUnbounded
)

// Bound is the element count of an array access.
type Bound struct {
	Kind  BoundKind
	Count uint64
}

func (b Bound) String() string {
	switch b.Kind {
	case BoundFixed:
		return "[" + strconv.FormatUint(b.Count, 10) + "]"
	case BoundNulTerminated:
		return "[nul]"
	case BoundUnbounded:
		return "[*]"
	}
	return ""
}

func compareBound(a, b Bound) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Count, b.Count)
}

// ArrayAccess is a repeated stride, "+SIZE[COUNT]".
type ArrayAccess struct {
	Stride int64
	Bound  Bound
}

// OffsetRange is a constant byte offset plus zero or more array strides.
type OffsetRange struct {
	Offset int64
	Access []ArrayAccess
}

// IsConstant reports whether the range is a single fixed offset.
func (r OffsetRange) IsConstant() bool {
	return len(r.Access) == 0
}

// Add sums two ranges: offsets add, strides concatenate in canonical order.
func (r OffsetRange) Add(o OffsetRange) OffsetRange {
	out := OffsetRange{Offset: r.Offset + o.Offset}
	if len(r.Access)+len(o.Access) > 0 {
		out.Access = make([]ArrayAccess, 0, len(r.Access)+len(o.Access))
		out.Access = append(out.Access, r.Access...)
		out.Access = append(out.Access, o.Access...)
		slices.SortFunc(out.Access, compareAccess)
	}
	return out
}

func (r OffsetRange) String() string {
	var b strings.Builder
	b.WriteByte('@')
	b.WriteString(strconv.FormatInt(r.Offset, 10))
	for _, a := range r.Access {
		b.WriteByte('+')
		b.WriteString(strconv.FormatInt(a.Stride, 10))
		b.WriteString(a.Bound.String())
	}
	return b.String()
}

func compareAccess(a, b ArrayAccess) int {
	if c := cmp.Compare(a.Stride, b.Stride); c != 0 {
		return c
	}
	return compareBound(a.Bound, b.Bound)
}

// Compare orders ranges by offset, then by their access lists.
func (r OffsetRange) Compare(o OffsetRange) int {
	if c := cmp.Compare(r.Offset, o.Offset); c != 0 {
		return c
	}
	return slices.CompareFunc(r.Access, o.Access, compareAccess)
}

// FieldLabel is one step of a derived type variable path. It is an immutable
// value; only the fields relevant to Kind are meaningful.
type FieldLabel struct {
	Kind  LabelKind
	Name  string      // LabelIn, LabelOut
	Range OffsetRange // LabelOffset
	Size  AccessSize  // LabelLoad, LabelStore
}

// In builds a parameter label.
func In(name string) FieldLabel { return FieldLabel{Kind: LabelIn, Name: name} }

// Out builds a return label; an empty name prints as plain "out".
func Out(name string) FieldLabel { return FieldLabel{Kind: LabelOut, Name: name} }

// Offset builds an offset label.
func Offset(off int64, access ...ArrayAccess) FieldLabel {
	r := OffsetRange{Offset: off}
	if len(access) > 0 {
		r.Access = slices.Clone(access)
	}
	return FieldLabel{Kind: LabelOffset, Range: r}
}

// Load builds a load label.
func Load(size AccessSize) FieldLabel { return FieldLabel{Kind: LabelLoad, Size: size} }

// Store builds a store label.
func Store(size AccessSize) FieldLabel { return FieldLabel{Kind: LabelStore, Size: size} }

// Variance returns the intrinsic variance of the label.
func (l FieldLabel) Variance() Variance {
	switch l.Kind {
	case LabelIn, LabelStore:
		return Contravariant
	}
	return Covariant
}

// IsOffset reports whether the label is an offset access.
func (l FieldLabel) IsOffset() bool { return l.Kind == LabelOffset }

// ConstantOffset returns the byte offset when the label is a plain "@k".
func (l FieldLabel) ConstantOffset() (int64, bool) {
	if l.Kind != LabelOffset || !l.Range.IsConstant() {
		return 0, false
	}
	return l.Range.Offset, true
}

// IsMemory reports whether the label dereferences its parent.
func (l FieldLabel) IsMemory() bool { return l.Kind == LabelLoad || l.Kind == LabelStore }

// Twin maps loadN to storeN and back; other labels are returned unchanged.
func (l FieldLabel) Twin() FieldLabel {
	switch l.Kind {
	case LabelLoad:
		return Store(l.Size)
	case LabelStore:
		return Load(l.Size)
	}
	return l
}

func (l FieldLabel) String() string {
	switch l.Kind {
	case LabelIn:
		return "in_" + l.Name
	case LabelOut:
		if l.Name == "" {
			return "out"
		}
		return "out_" + l.Name
	case LabelOffset:
		return l.Range.String()
	case LabelLoad:
		return "load" + l.Size.String()
	case LabelStore:
		return "store" + l.Size.String()
	}
	return "?"
}

// Compare gives labels a total order.
func (l FieldLabel) Compare(o FieldLabel) int {
	if c := cmp.Compare(l.Kind, o.Kind); c != 0 {
		return c
	}
	switch l.Kind {
	case LabelIn, LabelOut:
		return cmp.Compare(l.Name, o.Name)
	case LabelOffset:
		return l.Range.Compare(o.Range)
	default:
		return cmp.Compare(l.Size, o.Size)
	}
}

// Equal reports structural equality.
func (l FieldLabel) Equal(o FieldLabel) bool { return l.Compare(o) == 0 }
