package cgraph

import (
	"maps"
	"slices"
	"strconv"

	"retype/internal/schema"
)

// Clone returns an independent copy with its own class arena. Keys and
// labels are immutable values and are shared.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Name:     g.Name,
		opts:     g.opts,
		nodes:    make([]*Node, len(g.nodes)),
		index:    maps.Clone(g.index),
		start:    g.start,
		end:      g.end,
		pni:      g.pni.Clone(),
		classes:  maps.Clone(g.classes),
		members:  g.ClassIndex(),
		subtypes: slices.Clone(g.subtypes),
		arith:    slices.Clone(g.arith),
		edges:    g.edges,
		solved:   g.solved,
	}
	out.pni.OnMerge(out.moveMembers)
	for i, n := range g.nodes {
		out.nodes[i] = &Node{
			ID:    n.ID,
			Key:   n.Key,
			Class: n.Class,
			out:   maps.Clone(n.out),
			in:    maps.Clone(n.in),
		}
	}
	return out
}

// InstPrefix names variables that carried an instance id before a graph
// was instantiated again: g<1> becomes __inst_g_1<id>.
const InstPrefix = "__inst_"

// Instantiate clones the graph for one call site: every non-primitive
// variable, in keys, base edges and recorded constraints, gets instance id.
// A variable already instantiated is renamed first, so distinct instances
// stay distinct and none lands on a signature variable.
func (g *Graph) Instantiate(id uint32) *Graph {
	out := g.Clone()
	stamp := func(tv schema.TypeVariable) schema.TypeVariable {
		if tv.Primitive {
			return tv
		}
		if tv.Instance != 0 {
			tv.Name = InstPrefix + tv.Name + "_" + strconv.FormatUint(uint64(tv.Instance), 10)
		}
		return tv.WithInstance(id)
	}
	stampLabel := func(l schema.EdgeLabel) schema.EdgeLabel {
		if l.Kind == schema.EdgeRecallBase || l.Kind == schema.EdgeForgetBase {
			l.Base = stamp(l.Base)
		}
		return l
	}
	restamp := func(m map[edgeRef]schema.EdgeLabel) map[edgeRef]schema.EdgeLabel {
		next := make(map[edgeRef]schema.EdgeLabel, len(m))
		for ref, l := range m {
			l = stampLabel(l)
			next[edgeRef{label: l.String(), node: ref.node}] = l
		}
		return next
	}

	out.index = make(map[string]NodeID, len(out.nodes))
	for _, n := range out.nodes {
		n.Key.Var = stamp(n.Key.Var)
		n.out = restamp(n.out)
		n.in = restamp(n.in)
		out.index[n.Key.String()] = n.ID
	}
	out.classes = make(map[string]classEntry, len(g.classes))
	for _, ce := range g.classes {
		ce.v = stamp(ce.v)
		out.classes[ce.v.String()] = ce
	}
	for i, c := range out.subtypes {
		out.subtypes[i] = schema.Subtype(stamp(c.Sub), stamp(c.Sup))
	}
	for i, c := range out.arith {
		c.Left, c.Right, c.Result = stamp(c.Left), stamp(c.Right), stamp(c.Result)
		out.arith[i] = c
	}
	return out
}
