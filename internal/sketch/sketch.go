// Package sketch builds recursive type shapes from solved constraint graphs
// and combines them with lattice join and meet.
package sketch

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"retype/internal/schema"
)

// NodeID indexes a sketch node.
type NodeID uint32

// Edge is a labelled field edge.
type Edge struct {
	Label schema.FieldLabel
	To    NodeID
}

// Node is one state of a sketch. Name is the printed key of the graph node
// it came from, for display only.
type Node struct {
	ID       NodeID
	Name     string
	Variance schema.Variance
	Elem     string
	Conflict bool
	edges    []Edge
}

// Sketch is a possibly cyclic graph of field edges rooted at the sketch of
// one type variable.
type Sketch struct {
	Var   schema.TypeVariable
	Root  NodeID
	nodes []*Node
}

// New returns a sketch holding only a covariant root.
func New(tv schema.TypeVariable) *Sketch {
	s := &Sketch{Var: tv}
	s.Root = s.AddNode(schema.Covariant, tv.String())
	return s
}

// Len returns the number of nodes.
func (s *Sketch) Len() int { return len(s.nodes) }

// Node returns node id, or nil.
func (s *Sketch) Node(id NodeID) *Node {
	if int(id) >= len(s.nodes) {
		return nil
	}
	return s.nodes[id]
}

// AddNode appends a node with no edges and no element.
func (s *Sketch) AddNode(v schema.Variance, name string) NodeID {
	n, err := safecast.Conv[uint32](len(s.nodes))
	if err != nil {
		panic(fmt.Errorf("len(nodes) overflow: %w", err))
	}
	id := NodeID(n)
	s.nodes = append(s.nodes, &Node{ID: id, Name: name, Variance: v})
	return id
}

// AddEdge adds from -l-> to. A node has at most one edge per label, and the
// target variance must follow the label.
func (s *Sketch) AddEdge(from NodeID, l schema.FieldLabel, to NodeID) error {
	f, t := s.Node(from), s.Node(to)
	if f == nil || t == nil {
		return fmt.Errorf("sketch edge %d -> %d: no such node", from, to)
	}
	if want := schema.Combine(f.Variance, l.Variance()); t.Variance != want {
		return fmt.Errorf("sketch edge %d -%s-> %d: target is %s, want %s", from, l, to, t.Variance, want)
	}
	i, found := slices.BinarySearchFunc(f.edges, l, func(e Edge, l schema.FieldLabel) int { return e.Label.Compare(l) })
	if found {
		if f.edges[i].To == to {
			return nil
		}
		return fmt.Errorf("sketch node %d already has a %s edge", from, l)
	}
	f.edges = slices.Insert(f.edges, i, Edge{Label: l, To: to})
	return nil
}

// Edges returns the field edges of id in label order.
func (s *Sketch) Edges(id NodeID) []Edge { return slices.Clone(s.nodes[id].edges) }

// Child follows the l edge of id.
func (s *Sketch) Child(id NodeID, l schema.FieldLabel) (NodeID, bool) {
	edges := s.nodes[id].edges
	i, found := slices.BinarySearchFunc(edges, l, func(e Edge, l schema.FieldLabel) int { return e.Label.Compare(l) })
	if !found {
		return 0, false
	}
	return edges[i].To, true
}

// Lookup walks path from the root.
func (s *Sketch) Lookup(path ...schema.FieldLabel) (NodeID, bool) {
	cur := s.Root
	for _, l := range path {
		next, ok := s.Child(cur, l)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// Conflicts returns the nodes whose element could not be resolved.
func (s *Sketch) Conflicts() []NodeID {
	var out []NodeID
	for _, n := range s.nodes {
		if n.Conflict {
			out = append(out, n.ID)
		}
	}
	return out
}
