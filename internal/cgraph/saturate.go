package cgraph

import (
	"retype/internal/pni"
	"retype/internal/schema"
)

// Stats summarises one Solve.
type Stats struct {
	PNI        pni.Stats
	Rounds     int
	EdgesAdded int
}

// reachKey is one entry of a reaching set: the label forgotten at src, and
// the constant byte offset accumulated since.
type reachKey struct {
	label string
	src   NodeID
	off   int64
}

type reachItem struct {
	node  NodeID
	key   reachKey
	label schema.FieldLabel
}

type link struct{ from, to NodeID }

type saturator struct {
	g     *Graph
	span  int64
	reach []map[reachKey]schema.FieldLabel
	queue []reachItem
	links []link
}

// OnRound registers a callback run after every saturation round with the
// number of identity edges the round added.
func (g *Graph) OnRound(fn func(round, added int)) { g.onRound = fn }

// Solve classifies values and saturates the graph until neither changes.
// Running it again on a solved graph adds nothing.
func (g *Graph) Solve() Stats {
	var st Stats
	st.PNI = g.pni.Solve()
	for {
		added := g.saturateRound()
		st.Rounds++
		st.EdgesAdded += added
		if g.onRound != nil {
			g.onRound(st.Rounds, added)
		}
		if added == 0 {
			break
		}
		more := g.pni.Solve()
		st.PNI.Steps += more.Steps
		st.PNI.Solved, st.PNI.Pending = more.Solved, more.Pending
	}
	g.solved = true
	return st
}

// offsetSpan bounds |offset| in reaching sets. Without an explicit limit it
// is the sum of every constant offset on a recall edge, which no sequence of
// offset steps between two nodes of the graph can exceed.
func (g *Graph) offsetSpan() int64 {
	if g.opts.MaxOffsetSpan > 0 {
		return g.opts.MaxOffsetSpan
	}
	var span int64
	for _, n := range g.nodes {
		for _, l := range n.out {
			if l.Kind != schema.EdgeRecall {
				continue
			}
			if k, ok := l.Field.ConstantOffset(); ok {
				span += max(k, -k)
			}
		}
	}
	return span
}

// saturateRound computes reaching sets from every forget edge and adds the
// identity edge src -> Y whenever a label l forgotten at src reaches, at
// offset zero, a node with a recall l edge to Y. Value classes are only
// read during the round; the endpoints of new edges are unified after it.
func (g *Graph) saturateRound() int {
	s := &saturator{
		g:     g,
		span:  g.offsetSpan(),
		reach: make([]map[reachKey]schema.FieldLabel, len(g.nodes)),
	}
	for i := range s.reach {
		s.reach[i] = make(map[reachKey]schema.FieldLabel)
	}
	for _, id := range g.Nodes() {
		for _, e := range g.Out(id) {
			if e.Label.Kind == schema.EdgeForget {
				s.push(e.To, e.Label.Field, id, 0)
			}
		}
	}
	for len(s.queue) > 0 {
		it := s.queue[0]
		s.queue = s.queue[1:]
		s.visit(it)
	}
	for _, l := range s.links {
		g.pni.Unify(g.nodes[l.from].Class, g.nodes[l.to].Class)
	}
	return len(s.links)
}

func (s *saturator) push(n NodeID, label schema.FieldLabel, src NodeID, off int64) {
	if off > s.span || off < -s.span {
		return
	}
	key := reachKey{label: label.String(), src: src, off: off}
	if _, ok := s.reach[n][key]; ok {
		return
	}
	s.reach[n][key] = label
	s.queue = append(s.queue, reachItem{node: n, key: key, label: label})
}

func (s *saturator) visit(it reachItem) {
	g := s.g
	x := it.node
	src, off := it.key.src, it.key.off
	for _, e := range g.Out(x) {
		switch e.Label.Kind {
		case schema.EdgeOne:
			s.push(e.To, it.label, src, off)
		case schema.EdgeRecall:
			if k, ok := e.Label.Field.ConstantOffset(); ok {
				s.push(e.To, it.label, src, off+k)
			}
			if off == 0 && e.Label.Field.Equal(it.label) && e.To != src {
				s.connect(src, e.To)
			}
		case schema.EdgeForget:
			if k, ok := e.Label.Field.ConstantOffset(); ok {
				s.push(e.To, it.label, src, off-k)
			}
		}
	}

	// A pointer written through the contravariant view can be read back
	// through the covariant one.
	key := g.nodes[x].Key
	if key.Variance == schema.Contravariant && it.label.IsMemory() && !g.Value(x).IsNonPointer() {
		if twin, ok := g.index[key.Twin().String()]; ok {
			s.push(twin, it.label.Twin(), src, off)
		}
	}
}

func (s *saturator) connect(from, to NodeID) {
	if !s.g.mustAddEdge(from, to, schema.One()) {
		return
	}
	s.links = append(s.links, link{from: from, to: to})
	for key, label := range s.reach[from] {
		s.push(to, label, key.src, key.off)
	}
}
