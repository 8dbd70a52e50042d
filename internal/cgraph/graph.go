// Package cgraph holds the constraint graph of one function: nodes keyed by
// (derived type variable, variance, layer), labelled edges, the per-variable
// pointer-or-number classes, saturation and the path-expression extraction
// of simplified constraints.
package cgraph

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"retype/internal/pni"
	"retype/internal/schema"
)

// NodeID is a stable index into the node arena.
type NodeID uint32

// Names of the distinguished start and end nodes. They are primitives so
// that they print and parse like any other key.
const (
	StartName = "Start"
	EndName   = "End"
)

type classEntry struct {
	v schema.TypeVariable
	h pni.Handle
}

type edgeRef struct {
	label string
	node  NodeID
}

// Node is one state of the graph. Edge sets are keyed by (label, endpoint)
// and so never hold duplicates.
type Node struct {
	ID    NodeID
	Key   NodeKey
	Class pni.Handle
	out   map[edgeRef]schema.EdgeLabel
	in    map[edgeRef]schema.EdgeLabel
}

// Edge is a labelled arc between two nodes.
type Edge struct {
	From  NodeID
	To    NodeID
	Label schema.EdgeLabel
}

// Options tune graph construction.
type Options struct {
	// PointerSize in bytes; zero leaves sized loads and stores unclassified.
	PointerSize uint32
	// MaxOffsetSpan bounds offsets tracked by saturation; zero derives it
	// from the offsets present in the graph.
	MaxOffsetSpan int64
}

// Graph is the constraint graph of a single function or call group.
type Graph struct {
	Name string
	opts Options

	nodes []*Node
	index map[string]NodeID
	start NodeID
	end   NodeID

	pni *pni.Graph
	// classes maps a variable (printed form) to its value class; both
	// variances and both layers share it.
	classes map[string]classEntry
	// members is the reverse index: class owner to the nodes in it.
	members map[pni.Handle][]NodeID

	subtypes []schema.SubTypeConstraint
	arith    []schema.ArithConstraint
	edges    int
	solved   bool
	onRound  func(round, added int)
}

// New returns a graph holding only the start and end nodes.
func New(name string, opts Options) *Graph {
	g := &Graph{
		Name:    name,
		opts:    opts,
		index:   make(map[string]NodeID),
		pni:     pni.NewGraph(),
		classes: make(map[string]classEntry),
		members: make(map[pni.Handle][]NodeID),
	}
	g.pni.OnMerge(g.moveMembers)
	g.start = g.insert(NodeKey{Var: schema.Prim(StartName)}, g.pni.New(pni.Value{Kind: pni.Null}))
	g.end = g.insert(NodeKey{Var: schema.Prim(EndName)}, g.pni.New(pni.Value{Kind: pni.Null}))
	return g
}

// Options returns the options the graph was built with.
func (g *Graph) Options() Options { return g.opts }

// Start returns the source node of every constraint path.
func (g *Graph) Start() NodeID { return g.start }

// End returns the sink node of every constraint path.
func (g *Graph) End() NodeID { return g.end }

// Len returns the number of nodes, start and end included.
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Solved reports whether Solve ran since the last constraint was added.
func (g *Graph) Solved() bool { return g.solved }

// PNI exposes the value-class arena.
func (g *Graph) PNI() *pni.Graph { return g.pni }

func (g *Graph) valid(id NodeID) bool { return int(id) < len(g.nodes) }

func (g *Graph) isTerminal(id NodeID) bool { return id == g.start || id == g.end }

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if !g.valid(id) {
		return nil
	}
	return g.nodes[id]
}

// KeyOf returns the key of node id.
func (g *Graph) KeyOf(id NodeID) NodeKey { return g.nodes[id].Key }

// Lookup finds the node for key.
func (g *Graph) Lookup(key NodeKey) (NodeID, error) {
	id, ok := g.index[key.String()]
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, ErrNodeNotFound)
	}
	return id, nil
}

// Nodes returns every node id in key order.
func (g *Graph) Nodes() []NodeID {
	ids := make([]NodeID, len(g.nodes))
	for i := range g.nodes {
		ids[i] = g.nodes[i].ID
	}
	slices.SortFunc(ids, func(a, b NodeID) int { return g.nodes[a].Key.Compare(g.nodes[b].Key) })
	return ids
}

func (g *Graph) insert(key NodeKey, class pni.Handle) NodeID {
	n, err := safecast.Conv[uint32](len(g.nodes))
	if err != nil {
		panic(fmt.Errorf("len(nodes) overflow: %w", err))
	}
	id := NodeID(n)
	g.nodes = append(g.nodes, &Node{
		ID:    id,
		Key:   key,
		Class: class,
		out:   make(map[edgeRef]schema.EdgeLabel),
		in:    make(map[edgeRef]schema.EdgeLabel),
	})
	g.index[key.String()] = id
	r := g.pni.Find(class)
	g.members[r] = append(g.members[r], id)
	return id
}

// GetOrInsertNode returns the node for key, creating it when absent. A new
// node joins the value class of its variable, which is created on first use.
func (g *Graph) GetOrInsertNode(key NodeKey) (NodeID, bool) {
	if id, ok := g.index[key.String()]; ok {
		return id, false
	}
	return g.insert(key, g.classOf(key.Var)), true
}

// InsertNodeWithClass creates a node bound to an existing class; used when a
// graph is rebuilt from a summary. It returns the existing node if any.
func (g *Graph) InsertNodeWithClass(key NodeKey, class pni.Handle) NodeID {
	if id, ok := g.index[key.String()]; ok {
		return id
	}
	if _, ok := g.classes[key.Var.String()]; !ok {
		g.classes[key.Var.String()] = classEntry{v: key.Var, h: class}
	}
	return g.insert(key, class)
}

// classOf returns the value class of tv, creating it together with the
// classes of its prefixes.
func (g *Graph) classOf(tv schema.TypeVariable) pni.Handle {
	name := tv.String()
	if ce, ok := g.classes[name]; ok {
		return ce.h
	}
	var h pni.Handle
	if tv.Primitive {
		h = g.pni.New(pni.Value{Kind: pni.NotApplicable, Prim: tv.Name})
	} else {
		h = g.pni.NewUnknown()
	}
	g.classes[name] = classEntry{v: tv, h: h}

	parent, last, ok := tv.Parent()
	if !ok {
		return h
	}
	ph := g.classOf(parent)
	switch {
	case last.IsMemory():
		g.pni.SetKind(ph, pni.Pointer)
		if ps := g.opts.PointerSize; ps != 0 && last.Size != schema.PointerSized && uint32(last.Size) != ps {
			g.pni.SetKind(h, pni.Number)
		}
	case last.IsOffset():
		g.pni.Unify(ph, h)
	}
	return h
}

func (g *Graph) moveMembers(winner, loser pni.Handle) {
	moved := g.members[loser]
	if len(moved) == 0 {
		return
	}
	all := append(g.members[winner], moved...)
	slices.Sort(all)
	g.members[winner] = all
	delete(g.members, loser)
}

// Value returns the pointer-or-number value of node id's class.
func (g *Graph) Value(id NodeID) pni.Value { return g.pni.Get(g.nodes[id].Class) }

// VarValue returns the class value of a variable if the graph knows it.
func (g *Graph) VarValue(tv schema.TypeVariable) (pni.Value, bool) {
	ce, ok := g.classes[tv.String()]
	if !ok {
		return pni.Value{}, false
	}
	return g.pni.Get(ce.h), true
}

// ClassMembers returns the nodes sharing id's value class, in id order.
func (g *Graph) ClassMembers(id NodeID) []NodeID {
	return slices.Clone(g.members[g.pni.Find(g.nodes[id].Class)])
}

// ClassIndex returns a copy of the owner-to-nodes index.
func (g *Graph) ClassIndex() map[pni.Handle][]NodeID {
	out := make(map[pni.Handle][]NodeID, len(g.members))
	for h, ids := range g.members {
		out[h] = slices.Clone(ids)
	}
	return out
}

// AddEdge inserts from -label-> to. It reports whether the edge is new.
// Structural edges are checked against the keys of their endpoints.
func (g *Graph) AddEdge(from, to NodeID, label schema.EdgeLabel) (bool, error) {
	if !g.valid(from) || !g.valid(to) {
		return false, invariant(KindMissingNode, "edge %d -> %d", from, to)
	}
	if label.IsOne() && from == to {
		return false, invariant(KindSelfLoop, "%s", g.nodes[from].Key)
	}
	if err := g.checkEdge(from, to, label); err != nil {
		return false, err
	}
	name := label.String()
	f, t := g.nodes[from], g.nodes[to]
	ref := edgeRef{label: name, node: to}
	if _, ok := f.out[ref]; ok {
		return false, nil
	}
	f.out[ref] = label
	t.in[edgeRef{label: name, node: from}] = label
	g.edges++
	return true, nil
}

func (g *Graph) mustAddEdge(from, to NodeID, label schema.EdgeLabel) bool {
	added, err := g.AddEdge(from, to, label)
	if err != nil {
		panic(err)
	}
	return added
}

// RemoveEdge deletes an edge and reports whether it existed.
func (g *Graph) RemoveEdge(from, to NodeID, label schema.EdgeLabel) bool {
	if !g.valid(from) || !g.valid(to) {
		return false
	}
	name := label.String()
	f, t := g.nodes[from], g.nodes[to]
	ref := edgeRef{label: name, node: to}
	if _, ok := f.out[ref]; !ok {
		return false
	}
	delete(f.out, ref)
	delete(t.in, edgeRef{label: name, node: from})
	g.edges--
	return true
}

// HasEdge reports whether from -label-> to exists.
func (g *Graph) HasEdge(from, to NodeID, label schema.EdgeLabel) bool {
	if !g.valid(from) || !g.valid(to) {
		return false
	}
	_, ok := g.nodes[from].out[edgeRef{label: label.String(), node: to}]
	return ok
}

func (g *Graph) checkEdge(from, to NodeID, label schema.EdgeLabel) error {
	f, t := g.nodes[from].Key, g.nodes[to].Key
	switch label.Kind {
	case schema.EdgeRecall:
		if !isStep(f.Var, t.Var, label.Field) || f.NewLayer != t.NewLayer {
			return invariant(KindMalformedPath, "%s -%s-> %s", f, label, t)
		}
		if f.Variance != schema.Combine(t.Variance, label.Field.Variance()) {
			return invariant(KindVariance, "%s -%s-> %s", f, label, t)
		}
	case schema.EdgeForget:
		if !isStep(t.Var, f.Var, label.Field) || (f.NewLayer && !t.NewLayer) {
			return invariant(KindMalformedPath, "%s -%s-> %s", f, label, t)
		}
		if t.Variance != schema.Combine(f.Variance, label.Field.Variance()) {
			return invariant(KindVariance, "%s -%s-> %s", f, label, t)
		}
	case schema.EdgeRecallBase:
		if from != g.start {
			return invariant(KindMalformedPath, "%s leaves %s, not the start node", label, f)
		}
	case schema.EdgeForgetBase:
		if to != g.end {
			return invariant(KindMalformedPath, "%s enters %s, not the end node", label, t)
		}
	}
	return nil
}

// isStep reports child == parent.l.
func isStep(parent, child schema.TypeVariable, l schema.FieldLabel) bool {
	p, last, ok := child.Parent()
	return ok && last.Equal(l) && p.Equal(parent)
}

func (g *Graph) compareEdges(a, b Edge) int {
	if c := a.Label.Compare(b.Label); c != 0 {
		return c
	}
	return g.nodes[a.To].Key.Compare(g.nodes[b.To].Key)
}

// Out returns the outgoing edges of id ordered by (label, target key).
func (g *Graph) Out(id NodeID) []Edge {
	n := g.nodes[id]
	out := make([]Edge, 0, len(n.out))
	for ref, l := range n.out {
		out = append(out, Edge{From: id, To: ref.node, Label: l})
	}
	slices.SortFunc(out, g.compareEdges)
	return out
}

// In returns the incoming edges of id ordered by (label, source key).
func (g *Graph) In(id NodeID) []Edge {
	n := g.nodes[id]
	in := make([]Edge, 0, len(n.in))
	for ref, l := range n.in {
		in = append(in, Edge{From: ref.node, To: id, Label: l})
	}
	slices.SortFunc(in, func(a, b Edge) int {
		if c := a.Label.Compare(b.Label); c != 0 {
			return c
		}
		return g.nodes[a.From].Key.Compare(g.nodes[b.From].Key)
	})
	return in
}

// Edges returns every edge ordered by source key, then label and target.
func (g *Graph) Edges() []Edge {
	var all []Edge
	for _, id := range g.Nodes() {
		all = append(all, g.Out(id)...)
	}
	return all
}

// Constraints returns the subtype constraints added so far.
func (g *Graph) Constraints() []schema.SubTypeConstraint { return slices.Clone(g.subtypes) }

// ArithConstraints returns the arithmetic constraints added so far.
func (g *Graph) ArithConstraints() []schema.ArithConstraint { return slices.Clone(g.arith) }
