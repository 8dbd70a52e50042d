// Package rexp implements regular expressions over constraint-graph edge
// labels and Tarjan's path-expression algorithm (SCC decomposition plus
// state elimination) used to read simplified constraints off a graph.
package rexp

import (
	"strings"

	"retype/internal/schema"
)

// Kind tags the variants of Exp.
type Kind uint8

const (
	// KindNull denotes no path at all.
	KindNull Kind = iota
	// KindEmpty denotes the zero-length path.
	KindEmpty
	// KindNode is a single edge label.
	KindNode
	// KindStar is Kleene closure of its only item.
	KindStar
	// KindOr is a set of alternatives.
	KindOr
	// KindAnd is a sequence.
	KindAnd
)

// Exp is an immutable regular expression. Two expressions with the same Key
// denote the same syntax tree.
type Exp struct {
	kind  Kind
	label schema.EdgeLabel
	items []*Exp
	key   string
}

var (
	nullExp  = &Exp{kind: KindNull, key: "∅"}
	emptyExp = &Exp{kind: KindEmpty, key: "ε"}
)

// Null returns the expression without paths.
func Null() *Exp { return nullExp }

// Empty returns the zero-length path.
func Empty() *Exp { return emptyExp }

// Label wraps one edge label; the identity label is the empty path.
func Label(l schema.EdgeLabel) *Exp {
	if l.IsOne() {
		return emptyExp
	}
	return &Exp{kind: KindNode, label: l, key: l.String()}
}

// Kind returns the variant tag.
func (e *Exp) Kind() Kind { return e.kind }

// EdgeLabel returns the label of a KindNode expression.
func (e *Exp) EdgeLabel() schema.EdgeLabel { return e.label }

// Items returns the operands of Or, And and Star. Callers must not modify it.
func (e *Exp) Items() []*Exp { return e.items }

// Key is the canonical text of the expression.
func (e *Exp) Key() string { return e.key }

func (e *Exp) String() string { return e.key }

// IsNull reports the Null expression.
func (e *Exp) IsNull() bool { return e.kind == KindNull }

// IsEmpty reports the Empty expression.
func (e *Exp) IsEmpty() bool { return e.kind == KindEmpty }

func makeAnd(items []*Exp) *Exp {
	var b strings.Builder
	b.WriteByte('(')
	for i, it := range items {
		if i > 0 {
			b.WriteString(" . ")
		}
		b.WriteString(it.key)
	}
	b.WriteByte(')')
	return &Exp{kind: KindAnd, items: items, key: b.String()}
}

func makeOr(items []*Exp) *Exp {
	var b strings.Builder
	b.WriteByte('(')
	for i, it := range items {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(it.key)
	}
	b.WriteByte(')')
	return &Exp{kind: KindOr, items: items, key: b.String()}
}

func makeStar(inner *Exp) *Exp {
	return &Exp{kind: KindStar, items: []*Exp{inner}, key: "(" + inner.key + ")*"}
}

// Concat builds a . b, folding the Null and Empty identities.
func Concat(a, b *Exp) *Exp {
	switch {
	case a.IsNull() || b.IsNull():
		return nullExp
	case a.IsEmpty():
		return b
	case b.IsEmpty():
		return a
	}
	return makeAnd([]*Exp{a, b})
}

// Union builds a | b, folding Null and identical operands.
func Union(a, b *Exp) *Exp {
	switch {
	case a.IsNull():
		return b
	case b.IsNull():
		return a
	case a.key == b.key:
		return a
	}
	if a.key > b.key {
		a, b = b, a
	}
	return makeOr([]*Exp{a, b})
}

// Closure builds e*, collapsing nested stars and the trivial closures.
func Closure(e *Exp) *Exp {
	switch e.kind {
	case KindNull, KindEmpty:
		return emptyExp
	case KindStar:
		return e
	}
	return makeStar(e)
}
