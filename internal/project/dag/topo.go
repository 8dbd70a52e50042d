package dag

import (
	"slices"

	"retype/internal/rexp"
)

// Topo is a solve order. Batches hold functions whose callees are all in
// earlier batches. Functions that Kahn's algorithm cannot place (members of
// recursive call groups and their callers) follow as Groups, one strongly
// connected component each, in topological order.
type Topo struct {
	Order     []FunctionID
	Batches   [][]FunctionID
	Cyclic    bool
	Cycles    []FunctionID   // everything left after Kahn's algorithm
	Groups    [][]FunctionID // components of Cycles
	Recursive [][]FunctionID // groups that really call themselves
}

// Waves returns Batches followed by Groups.
func (t *Topo) Waves() [][]FunctionID {
	out := make([][]FunctionID, 0, len(t.Batches)+len(t.Groups))
	out = append(out, t.Batches...)
	return append(out, t.Groups...)
}

// ToposortKahn orders the present functions of g.
func ToposortKahn(g Graph) *Topo {
	n := len(g.Edges)
	indeg := slices.Clone(g.Indeg)
	topo := &Topo{Order: make([]FunctionID, 0, n)}

	active := 0
	var current []FunctionID
	for i := range n {
		if !g.Present[i] {
			continue
		}
		active++
		if indeg[i] == 0 {
			current = append(current, toID(i))
		}
	}

	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)
		var next []FunctionID
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			for _, to := range g.Edges[int(id)] {
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(topo.Order) != active {
		topo.Cyclic = true
		for i := range n {
			if g.Present[i] && indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, toID(i))
			}
		}
		topo.groups(g)
	}
	return topo
}

// groups splits the leftover functions into strongly connected components.
func (t *Topo) groups(g Graph) {
	local := make(map[FunctionID]int, len(t.Cycles))
	for i, id := range t.Cycles {
		local[id] = i
	}
	var arcs []rexp.Arc
	self := make([]bool, len(t.Cycles))
	for i, id := range t.Cycles {
		for _, to := range g.Edges[int(id)] {
			j, ok := local[to]
			if !ok {
				continue
			}
			if i == j {
				self[i] = true
			}
			arcs = append(arcs, rexp.Arc{From: i, To: j})
		}
	}
	for _, comp := range rexp.Components(len(t.Cycles), arcs) {
		group := make([]FunctionID, len(comp))
		for k, i := range comp {
			group[k] = t.Cycles[i]
		}
		t.Groups = append(t.Groups, group)
		t.Order = append(t.Order, group...)
		if len(comp) > 1 || self[comp[0]] {
			t.Recursive = append(t.Recursive, group)
		}
	}
}
