package cgraph

import (
	"retype/internal/schema"
)

// layerSplit copies every layer-0 node into layer 1. Identity and forget
// edges are mirrored in layer 1; forget edges leaving layer 0 are moved so
// that they land in layer 1; recall edges stay in layer 0. A path can
// therefore recall only before its first forget.
func (g *Graph) layerSplit() {
	edges := g.Edges()
	copies := make(map[NodeID]NodeID, len(g.nodes))
	for _, id := range g.Nodes() {
		n := g.nodes[id]
		if g.isTerminal(id) || n.Key.NewLayer {
			continue
		}
		copies[id] = g.InsertNodeWithClass(n.Key.Layer(true), n.Class)
	}
	for _, e := range edges {
		from, fok := copies[e.From]
		to, tok := copies[e.To]
		if !fok || !tok {
			continue
		}
		switch e.Label.Kind {
		case schema.EdgeOne:
			g.mustAddEdge(from, to, e.Label)
		case schema.EdgeForget:
			g.RemoveEdge(e.From, e.To, e.Label)
			g.mustAddEdge(e.From, to, e.Label)
			g.mustAddEdge(from, to, e.Label)
		}
	}
}

// linkVars connects the start node to every label-free layer-0 node of an
// interesting variable or primitive, and every such node in either layer
// to the end node.
func (g *Graph) linkVars(interesting map[string]bool) {
	for _, id := range g.Nodes() {
		if g.isTerminal(id) {
			continue
		}
		k := g.nodes[id].Key
		if k.Var.HasLabels() || !(k.Var.Primitive || interesting[k.Var.String()]) {
			continue
		}
		if !k.NewLayer {
			g.mustAddEdge(g.start, id, schema.RecallBase(k.Var, k.Variance))
		}
		g.mustAddEdge(id, g.end, schema.ForgetBase(k.Var, k.Variance))
	}
}
