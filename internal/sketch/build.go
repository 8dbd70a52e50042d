package sketch

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"retype/internal/cgraph"
	"retype/internal/pni"
	"retype/internal/schema"
)

type state struct {
	ids  []cgraph.NodeID
	node NodeID
}

type builder struct {
	g      *cgraph.Graph
	s      *Sketch
	states map[string]NodeID
	queue  []state
}

// FromGraph reads the sketch of root off a solved graph. Each sketch node is
// a set of graph nodes closed under identity edges; recall edges leaving the
// set become its field edges. Primitive nodes in the set fix the element,
// and pointer-or-number classes fill in what the primitives leave open.
func FromGraph(g *cgraph.Graph, root schema.TypeVariable) (*Sketch, error) {
	if !g.Solved() {
		return nil, &cgraph.InvariantError{Kind: cgraph.KindNotSaturated, Msg: "sketch of unsolved graph " + g.Name}
	}
	start, err := g.Lookup(cgraph.Key(root, schema.Covariant))
	if err != nil {
		return nil, fmt.Errorf("sketch of %s: %w", root, err)
	}
	b := &builder{g: g, s: &Sketch{Var: root}, states: map[string]NodeID{}}
	b.s.Root = b.intern(b.closure([]cgraph.NodeID{start}), schema.Covariant)
	for len(b.queue) > 0 {
		st := b.queue[0]
		b.queue = b.queue[1:]
		if err := b.expand(st); err != nil {
			return nil, err
		}
	}
	return b.s, nil
}

func (b *builder) closure(seed []cgraph.NodeID) []cgraph.NodeID {
	seen := map[cgraph.NodeID]bool{}
	stack := slices.Clone(seed)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, e := range b.g.Out(id) {
			if e.Label.IsOne() && !seen[e.To] {
				stack = append(stack, e.To)
			}
		}
	}
	out := make([]cgraph.NodeID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, c cgraph.NodeID) int { return b.g.KeyOf(a).Compare(b.g.KeyOf(c)) })
	return out
}

func stateKey(ids []cgraph.NodeID) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return sb.String()
}

func (b *builder) intern(ids []cgraph.NodeID, v schema.Variance) NodeID {
	key := stateKey(ids)
	if id, ok := b.states[key]; ok {
		return id
	}
	id := b.s.AddNode(v, b.g.KeyOf(ids[0]).Var.String())
	b.states[key] = id
	b.queue = append(b.queue, state{ids: ids, node: id})
	return id
}

type transition struct {
	label   schema.FieldLabel
	targets []cgraph.NodeID
}

func (b *builder) expand(st state) error {
	var trans []transition
	for _, id := range st.ids {
		for _, e := range b.g.Out(id) {
			if e.Label.Kind != schema.EdgeRecall {
				continue
			}
			i, found := slices.BinarySearchFunc(trans, e.Label.Field, func(t transition, l schema.FieldLabel) int {
				return t.label.Compare(l)
			})
			if !found {
				trans = slices.Insert(trans, i, transition{label: e.Label.Field})
			}
			trans[i].targets = append(trans[i].targets, e.To)
		}
	}
	n := b.s.nodes[st.node]
	for _, t := range trans {
		child := b.intern(b.closure(t.targets), schema.Combine(n.Variance, t.label.Variance()))
		if err := b.s.AddEdge(st.node, t.label, child); err != nil {
			return err
		}
	}
	n.Elem, n.Conflict = b.element(st.ids, n.Variance, len(trans) > 0)
	return nil
}

func (b *builder) element(ids []cgraph.NodeID, v schema.Variance, hasFields bool) (string, bool) {
	elem, conflict := "", false
	for _, id := range ids {
		tv := b.g.KeyOf(id).Var
		if !tv.Primitive || tv.Name == cgraph.StartName || tv.Name == cgraph.EndName {
			continue
		}
		var c bool
		if v == schema.Covariant {
			elem, c = MeetElem(elem, tv.Name)
		} else {
			elem, c = JoinElem(elem, tv.Name)
		}
		conflict = conflict || c
	}
	if elem != "" {
		return elem, conflict
	}
	switch val := b.g.Value(ids[0]); {
	case val.Kind == pni.NotApplicable:
		return val.Prim, val.Conflict
	case val.Kind == pni.Number:
		return GenericInt, val.Conflict
	case val.Kind == pni.Pointer && !hasFields:
		return PointerElem, val.Conflict
	}
	if v == schema.Covariant {
		return Top, false
	}
	return Bottom, false
}
