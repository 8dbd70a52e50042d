package cgraph

import (
	"fmt"

	"retype/internal/rexp"
	"retype/internal/schema"
)

// TempPrefix names the variables introduced for Kleene stars.
const TempPrefix = "__temp_"

// maxPaths caps how many label sequences one alternative of the start ->
// end expression may expand to.
var maxPaths = 1 << 16

// Simplify returns the minimal constraints between interesting variables
// (and primitives) implied by the solved graph. The graph itself is left
// untouched: the layer split and the start/end links are built on a clone.
func (g *Graph) Simplify(interesting []schema.TypeVariable) ([]schema.SubTypeConstraint, error) {
	if !g.solved {
		return nil, invariant(KindNotSaturated, "simplify %s before solve", g.Name)
	}
	set := make(map[string]bool, len(interesting))
	for _, tv := range interesting {
		set[tv.Base().String()] = true
	}
	w := g.Clone()
	w.layerSplit()
	w.linkVars(set)
	e := w.PathExpression()
	return expToConstraints(e)
}

// PathExpression computes the simplified expression of every start -> end
// path. Nodes are numbered in key order so the result is independent of
// insertion order.
func (g *Graph) PathExpression() *rexp.Exp {
	ids := g.Nodes()
	local := make(map[NodeID]int, len(ids))
	for i, id := range ids {
		local[id] = i
	}
	var arcs []rexp.Arc
	for _, id := range ids {
		for _, e := range g.Out(id) {
			arcs = append(arcs, rexp.Arc{From: local[id], To: local[e.To], Exp: rexp.Label(e.Label)})
		}
	}
	seq := rexp.PathSequence(len(ids), arcs)
	paths := rexp.Solve(len(ids), local[g.start], seq)
	return rexp.Simplify(paths[local[g.end]])
}

type pathItem struct {
	label schema.EdgeLabel
	star  *rexp.Exp
}

// expand lists the label sequences of a star-free reading of e; each star
// stays a single opaque item.
func expand(e *rexp.Exp) ([][]pathItem, error) {
	switch e.Kind() {
	case rexp.KindNull:
		return nil, nil
	case rexp.KindEmpty:
		return [][]pathItem{nil}, nil
	case rexp.KindNode:
		return [][]pathItem{{{label: e.EdgeLabel()}}}, nil
	case rexp.KindStar:
		return [][]pathItem{{{star: e}}}, nil
	case rexp.KindOr:
		var out [][]pathItem
		for _, it := range e.Items() {
			sub, err := expand(it)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			if len(out) > maxPaths {
				return nil, fmt.Errorf("%w: more than %d", ErrTooManyPaths, maxPaths)
			}
		}
		return out, nil
	case rexp.KindAnd:
		acc := [][]pathItem{nil}
		for _, it := range e.Items() {
			sub, err := expand(it)
			if err != nil {
				return nil, err
			}
			if len(acc)*len(sub) > maxPaths {
				return nil, fmt.Errorf("%w: more than %d", ErrTooManyPaths, maxPaths)
			}
			next := make([][]pathItem, 0, len(acc)*len(sub))
			for _, a := range acc {
				for _, b := range sub {
					p := make([]pathItem, 0, len(a)+len(b))
					p = append(p, a...)
					p = append(p, b...)
					next = append(next, p)
				}
			}
			acc = next
		}
		return acc, nil
	}
	return nil, nil
}

type extractor struct {
	temps  map[string]schema.TypeVariable
	bodies map[string]bool
	out    []schema.SubTypeConstraint
}

// expToConstraints reads constraints off a start -> end expression. Each
// star becomes a temporary variable v: the enclosing path is cut at the star
// (... ⊑ v, v ⊑ ...) and the star body contributes v.body ⊑ v constraints.
func expToConstraints(e *rexp.Exp) ([]schema.SubTypeConstraint, error) {
	x := &extractor{temps: make(map[string]schema.TypeVariable), bodies: make(map[string]bool)}
	alts := []*rexp.Exp{e}
	if e.Kind() == rexp.KindOr {
		alts = e.Items()
	}
	for _, alt := range alts {
		paths, err := expand(alt)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			if err := x.path(p); err != nil {
				return nil, err
			}
		}
	}
	return schema.SortConstraints(x.out), nil
}

func (x *extractor) temp(star *rexp.Exp) schema.TypeVariable {
	if tv, ok := x.temps[star.Key()]; ok {
		return tv
	}
	tv := schema.Var(fmt.Sprintf("%s%d", TempPrefix, len(x.temps)))
	x.temps[star.Key()] = tv
	return tv
}

func (x *extractor) path(items []pathItem) error {
	word := make([]schema.EdgeLabel, 0, len(items))
	var cur schema.Variance
	for _, it := range items {
		if it.star != nil {
			tmp := x.temp(it.star)
			word = append(word, schema.ForgetBase(tmp, cur), schema.RecallBase(tmp, cur))
			if err := x.body(it.star, tmp, cur); err != nil {
				return err
			}
			continue
		}
		l := it.label
		switch l.Kind {
		case schema.EdgeRecallBase:
			cur = l.Variance
		case schema.EdgeRecall, schema.EdgeForget:
			cur = schema.Combine(cur, l.Field.Variance())
		}
		word = append(word, l)
	}
	x.out = append(x.out, normalizePath(word)...)
	return nil
}

func (x *extractor) body(star *rexp.Exp, tmp schema.TypeVariable, v schema.Variance) error {
	key := tmp.String() + v.Symbol()
	if x.bodies[key] {
		return nil
	}
	x.bodies[key] = true
	paths, err := expand(star.Items()[0])
	if err != nil {
		return err
	}
	for _, p := range paths {
		items := make([]pathItem, 0, len(p)+2)
		items = append(items, pathItem{label: schema.RecallBase(tmp, v)})
		items = append(items, p...)
		items = append(items, pathItem{label: schema.ForgetBase(tmp, v)})
		if err := x.path(items); err != nil {
			return err
		}
	}
	return nil
}

// normalizePath turns one label word, recall_base (recall)* (forget)*
// forget_base possibly repeated, into constraints. Recalled labels extend the
// subtype, forgotten ones the supertype in reverse. When the node the path
// pivots on is contravariant the path walked the mirrored edge and the
// constraint is flipped. A word that recalls after forgetting is not a
// derivation and yields nothing.
func normalizePath(word []schema.EdgeLabel) []schema.SubTypeConstraint {
	var out []schema.SubTypeConstraint
	var (
		sub        schema.TypeVariable
		supLabels  []schema.FieldLabel
		pivot      schema.Variance
		open       bool
		forgetting bool
	)
	for _, l := range word {
		switch l.Kind {
		case schema.EdgeRecallBase:
			sub, pivot, supLabels = l.Base, l.Variance, nil
			open, forgetting = true, false
		case schema.EdgeRecall:
			if !open || forgetting {
				return nil
			}
			sub = sub.With(l.Field)
			pivot = schema.Combine(pivot, l.Field.Variance())
		case schema.EdgeForget:
			if !open {
				return nil
			}
			forgetting = true
			supLabels = append([]schema.FieldLabel{l.Field}, supLabels...)
		case schema.EdgeForgetBase:
			if !open {
				return nil
			}
			c := schema.Subtype(sub, l.Base.With(supLabels...))
			if pivot == schema.Contravariant {
				c.Sub, c.Sup = c.Sup, c.Sub
			}
			if !c.Trivial() {
				out = append(out, c)
			}
			open = false
		}
	}
	return out
}
