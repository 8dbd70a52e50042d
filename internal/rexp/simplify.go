package rexp

import (
	"slices"

	"retype/internal/schema"
)

// Simplify rewrites e until no rule applies:
//
//   - Or is flattened, loses Null operands and duplicates, and collapses when
//     it has zero or one operand left;
//   - And is flattened, loses Empty operands, becomes Null when any operand
//     is Null or when a forget of a non-offset label is directly followed by
//     a recall of a non-offset label, and cancels "forget @k . recall @k";
//   - Star(Star e) is Star e and Star(Empty|Null) is Empty.
func Simplify(e *Exp) *Exp {
	for {
		next := simplifyOnce(e)
		if next.key == e.key {
			return next
		}
		e = next
	}
}

func simplifyOnce(e *Exp) *Exp {
	switch e.kind {
	case KindOr:
		return simplifyOr(e)
	case KindAnd:
		return simplifyAnd(e)
	case KindStar:
		inner := simplifyOnce(e.items[0])
		return Closure(inner)
	}
	return e
}

func simplifyOr(e *Exp) *Exp {
	items := make([]*Exp, 0, len(e.items))
	seen := make(map[string]struct{}, len(e.items))
	var add func(x *Exp)
	add = func(x *Exp) {
		switch x.kind {
		case KindNull:
			return
		case KindOr:
			for _, it := range x.items {
				add(it)
			}
			return
		}
		if _, ok := seen[x.key]; ok {
			return
		}
		seen[x.key] = struct{}{}
		items = append(items, x)
	}
	for _, it := range e.items {
		add(simplifyOnce(it))
	}
	switch len(items) {
	case 0:
		return nullExp
	case 1:
		return items[0]
	}
	slices.SortFunc(items, func(a, b *Exp) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	return makeOr(items)
}

func simplifyAnd(e *Exp) *Exp {
	items := make([]*Exp, 0, len(e.items))
	var add func(x *Exp) bool
	add = func(x *Exp) bool {
		switch x.kind {
		case KindNull:
			return false
		case KindEmpty:
			return true
		case KindAnd:
			for _, it := range x.items {
				if !add(it) {
					return false
				}
			}
			return true
		}
		items = append(items, x)
		return true
	}
	for _, it := range e.items {
		if !add(simplifyOnce(it)) {
			return nullExp
		}
	}

	items, ok := cancelLabels(items)
	if !ok {
		return nullExp
	}
	switch len(items) {
	case 0:
		return emptyExp
	case 1:
		return items[0]
	}
	return makeAnd(items)
}

// cancelLabels applies the adjacent-pair rules of an And sequence. It
// returns false when the sequence denotes an impossible path.
func cancelLabels(items []*Exp) ([]*Exp, bool) {
	out := make([]*Exp, 0, len(items))
	for _, it := range items {
		if len(out) > 0 {
			prev := out[len(out)-1]
			if prev.kind == KindNode && it.kind == KindNode &&
				prev.label.Kind == schema.EdgeForget && it.label.Kind == schema.EdgeRecall {
				pf, cf := prev.label.Field, it.label.Field
				switch {
				case !pf.IsOffset() && !cf.IsOffset():
					return nil, false
				case pf.IsOffset() && cf.IsOffset() && pf.Equal(cf):
					out = out[:len(out)-1]
					continue
				}
			}
		}
		out = append(out, it)
	}
	return out, true
}
