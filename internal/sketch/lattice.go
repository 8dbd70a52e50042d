package sketch

import (
	"fmt"

	"retype/internal/schema"
)

type op uint8

const (
	opJoin op = iota
	opMeet
)

// at is the operation applied below a label: contravariant labels swap join
// and meet.
func (o op) at(l schema.FieldLabel) op {
	if l.Variance() == schema.Covariant {
		return o
	}
	return 1 - o
}

func (o op) elem(a, b string) (string, bool) {
	if o == opJoin {
		return JoinElem(a, b)
	}
	return MeetElem(a, b)
}

type pairKey struct {
	a, b NodeID
	op   op
}

type merger struct {
	a, b   *Sketch
	out    *Sketch
	pairs  map[pairKey]NodeID
	copies [2]map[NodeID]NodeID
}

// Join is the least upper bound of two sketches: only labels present on both
// sides survive, and leaf elements are joined.
func Join(a, b *Sketch) (*Sketch, error) { return merge(a, b, opJoin) }

// Meet is the greatest lower bound: labels from either side survive, and
// leaf elements are met.
func Meet(a, b *Sketch) (*Sketch, error) { return merge(a, b, opMeet) }

func merge(a, b *Sketch, o op) (*Sketch, error) {
	m := &merger{
		a:      a,
		b:      b,
		out:    &Sketch{Var: a.Var},
		pairs:  map[pairKey]NodeID{},
		copies: [2]map[NodeID]NodeID{{}, {}},
	}
	root, err := m.pair(a.Root, b.Root, o)
	if err != nil {
		return nil, err
	}
	m.out.Root = root
	return m.out, nil
}

func (m *merger) pair(x, y NodeID, o op) (NodeID, error) {
	key := pairKey{x, y, o}
	if id, ok := m.pairs[key]; ok {
		return id, nil
	}
	nx, ny := m.a.nodes[x], m.b.nodes[y]
	if nx.Variance != ny.Variance {
		return 0, fmt.Errorf("merge %s with %s: variance %s against %s", nx.Name, ny.Name, nx.Variance, ny.Variance)
	}
	id := m.out.AddNode(nx.Variance, nx.Name)
	m.pairs[key] = id
	elem, conflict := o.elem(nx.Elem, ny.Elem)
	n := m.out.nodes[id]
	n.Elem, n.Conflict = elem, conflict || nx.Conflict || ny.Conflict

	ex, ey := nx.edges, ny.edges
	for len(ex) > 0 || len(ey) > 0 {
		var (
			l     schema.FieldLabel
			child NodeID
			err   error
		)
		switch {
		case len(ey) == 0 || len(ex) > 0 && ex[0].Label.Compare(ey[0].Label) < 0:
			l = ex[0].Label
			cx := ex[0].To
			ex = ex[1:]
			if o != opMeet {
				continue
			}
			child, err = m.copy(0, m.a, cx)
		case len(ex) == 0 || ey[0].Label.Compare(ex[0].Label) < 0:
			l = ey[0].Label
			cy := ey[0].To
			ey = ey[1:]
			if o != opMeet {
				continue
			}
			child, err = m.copy(1, m.b, cy)
		default:
			l = ex[0].Label
			cx, cy := ex[0].To, ey[0].To
			ex, ey = ex[1:], ey[1:]
			child, err = m.pair(cx, cy, o.at(l))
		}
		if err != nil {
			return 0, err
		}
		if err := m.out.AddEdge(id, l, child); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// copy duplicates the subtree at x of src (side 0 is a, side 1 is b).
func (m *merger) copy(side int, src *Sketch, x NodeID) (NodeID, error) {
	if id, ok := m.copies[side][x]; ok {
		return id, nil
	}
	sn := src.nodes[x]
	id := m.out.AddNode(sn.Variance, sn.Name)
	m.copies[side][x] = id
	n := m.out.nodes[id]
	n.Elem, n.Conflict = sn.Elem, sn.Conflict
	for _, e := range sn.edges {
		child, err := m.copy(side, src, e.To)
		if err != nil {
			return 0, err
		}
		if err := m.out.AddEdge(id, e.Label, child); err != nil {
			return 0, err
		}
	}
	return id, nil
}
