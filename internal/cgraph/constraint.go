package cgraph

import (
	"retype/internal/schema"
)

func (g *Graph) checkVar(tv schema.TypeVariable) error {
	switch {
	case tv.Name == "":
		return invariant(KindMalformedPath, "type variable without a name")
	case tv.Primitive && tv.HasLabels():
		return invariant(KindMalformedPath, "primitive with a path: %s", tv)
	case tv.Primitive && (tv.Name == StartName || tv.Name == EndName):
		return invariant(KindMalformedPath, "%s is reserved", tv)
	}
	return nil
}

// ensure returns the node for key, creating it with the recall and forget
// edges that connect it to its parent, recursively.
func (g *Graph) ensure(key NodeKey) NodeID {
	id, inserted := g.GetOrInsertNode(key)
	if !inserted {
		return id
	}
	parent, last, ok := key.Var.Parent()
	if !ok {
		return id
	}
	pk := NodeKey{Var: parent, Variance: schema.Combine(key.Variance, last.Variance()), NewLayer: key.NewLayer}
	pid := g.ensure(pk)
	g.mustAddEdge(pid, id, schema.Recall(last))
	g.mustAddEdge(id, pid, schema.Forget(last))
	return id
}

// AddConstraint records sub ⊑ sup: an identity edge sub⊕ -> sup⊕ and its
// mirror sup⊖ -> sub⊖, with recall/forget chains down to both bases. The
// value classes of sub and sup are unified.
func (g *Graph) AddConstraint(sub, sup schema.TypeVariable) error {
	if err := g.checkVar(sub); err != nil {
		return err
	}
	if err := g.checkVar(sup); err != nil {
		return err
	}
	g.subtypes = append(g.subtypes, schema.Subtype(sub, sup))
	g.solved = false

	subCov := g.ensure(Key(sub, schema.Covariant))
	supCov := g.ensure(Key(sup, schema.Covariant))
	subCon := g.ensure(Key(sub, schema.Contravariant))
	supCon := g.ensure(Key(sup, schema.Contravariant))
	if subCov != supCov {
		g.mustAddEdge(subCov, supCov, schema.One())
		g.mustAddEdge(supCon, subCon, schema.One())
	}
	g.pni.Unify(g.classOf(sub), g.classOf(sup))
	return nil
}

// AddSubTypes adds every constraint in cs.
func (g *Graph) AddSubTypes(cs []schema.SubTypeConstraint) error {
	for _, c := range cs {
		if err := g.AddConstraint(c.Sub, c.Sup); err != nil {
			return err
		}
	}
	return nil
}

// AddArith records Result = Left (+|-) Right for pointer-or-number inference.
func (g *Graph) AddArith(c schema.ArithConstraint) error {
	for _, tv := range []schema.TypeVariable{c.Left, c.Right, c.Result} {
		if err := g.checkVar(tv); err != nil {
			return err
		}
	}
	g.arith = append(g.arith, c)
	g.solved = false
	g.pni.AddArith(c.Kind, g.classOf(c.Left), g.classOf(c.Right), g.classOf(c.Result), c.Origin)
	return nil
}
