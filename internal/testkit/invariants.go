package testkit

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"retype/internal/cgraph"
	"retype/internal/pni"
	"retype/internal/schema"
)

// CheckGraphInvariants runs the structural checks every constraint graph
// must pass:
// 1) every outgoing edge is mirrored in the target's incoming set
// 2) no identity edge is a self-loop
// 3) recall/forget edges are one-label steps with consistent variances
// 4) the key index resolves every node to itself
// 5) the class index lists each node exactly once, under its class owner
func CheckGraphInvariants(g *cgraph.Graph) error {
	if g == nil {
		return fmt.Errorf("nil graph")
	}
	seen := make(map[cgraph.NodeID]bool, g.Len())
	for _, id := range g.Nodes() {
		key := g.KeyOf(id)
		got, err := g.Lookup(key)
		if err != nil {
			return fmt.Errorf("node %d (%s): %w", id, key, err)
		}
		if got != id {
			return fmt.Errorf("key %s resolves to %d, want %d", key, got, id)
		}
		for _, e := range g.Out(id) {
			if !slices.ContainsFunc(g.In(e.To), func(in cgraph.Edge) bool {
				return in.From == id && in.Label.Equal(e.Label)
			}) {
				return fmt.Errorf("edge %s -%s-> %s missing from incoming set", key, e.Label, g.KeyOf(e.To))
			}
			if err := checkStep(g, e); err != nil {
				return err
			}
		}
	}

	for owner, ids := range g.ClassIndex() {
		if g.PNI().Find(owner) != owner {
			return fmt.Errorf("class index keyed by non-owner %d", owner)
		}
		for _, id := range ids {
			if seen[id] {
				return fmt.Errorf("node %d listed in two classes", id)
			}
			seen[id] = true
			if g.PNI().Find(g.Node(id).Class) != owner {
				return fmt.Errorf("node %s filed under class %d, owned by %d", g.KeyOf(id), owner, g.PNI().Find(g.Node(id).Class))
			}
		}
	}
	if len(seen) != g.Len() {
		return fmt.Errorf("class index covers %d of %d nodes", len(seen), g.Len())
	}
	return nil
}

func checkStep(g *cgraph.Graph, e cgraph.Edge) error {
	from, to := g.KeyOf(e.From), g.KeyOf(e.To)
	parent, child := from, to
	switch e.Label.Kind {
	case schema.EdgeOne:
		if e.From == e.To {
			return fmt.Errorf("identity self-loop on %s", from)
		}
		return nil
	case schema.EdgeRecall:
	case schema.EdgeForget:
		parent, child = to, from
	default:
		return nil
	}
	p, last, ok := child.Var.Parent()
	if !ok || !p.Equal(parent.Var) || !last.Equal(e.Label.Field) {
		return fmt.Errorf("%s -%s-> %s is not a one-label step", from, e.Label, to)
	}
	if parent.Variance != schema.Combine(child.Variance, last.Variance()) {
		return fmt.Errorf("%s -%s-> %s has inconsistent variance", from, e.Label, to)
	}
	return nil
}

// CheckPNIInvariants verifies the union-find arena: every handle resolves to
// an owner that resolves to itself, and every retired constraint has three
// classified operands.
func CheckPNIInvariants(p *pni.Graph) error {
	if p == nil {
		return fmt.Errorf("nil pni graph")
	}
	for i := range p.Len() {
		h, err := safecast.Conv[uint32](i)
		if err != nil {
			return fmt.Errorf("handle overflow: %w", err)
		}
		root := p.Find(pni.Handle(h))
		if p.Find(root) != root {
			return fmt.Errorf("handle %d resolves to %d, which is not an owner", h, root)
		}
	}
	for _, owner := range p.Owners() {
		if p.Find(owner) != owner {
			return fmt.Errorf("owner %d forwards to %d", owner, p.Find(owner))
		}
	}
	for i := range p.NumConstraints() {
		id, err := safecast.Conv[uint32](i)
		if err != nil {
			return fmt.Errorf("constraint id overflow: %w", err)
		}
		c := p.Constraint(pni.ConsID(id))
		if !c.Solved {
			continue
		}
		for _, h := range []pni.Handle{c.Left, c.Right, c.Result} {
			if !p.Get(h).Known() {
				return fmt.Errorf("retired constraint %d has unclassified operand %d", id, h)
			}
		}
	}
	return nil
}
