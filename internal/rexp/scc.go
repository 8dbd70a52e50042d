package rexp

import "slices"

// Arc is a labelled edge between dense node indexes.
type Arc struct {
	From int
	To   int
	Exp  *Exp
}

// Components returns the strongly connected components of the graph with n
// nodes in topological order (every arc goes from an earlier or the same
// component to a later one). Members of a component are sorted ascending.
//
// Traversal visits roots and successors in index/arc order, so the result
// depends only on the numbering the caller chose.
func Components(n int, arcs []Arc) [][]int {
	succ := make([][]int, n)
	for _, a := range arcs {
		succ[a.From] = append(succ[a.From], a.To)
	}

	type record struct {
		index   int
		lowlink int
		onstack bool
	}
	data := make([]record, n)
	index := 1
	var stack []int
	var sccs [][]int

	var strongconnect func(v int)
	strongconnect = func(v int) {
		vd := &data[v]
		vd.index = index
		vd.lowlink = index
		index++
		stack = append(stack, v)
		vd.onstack = true

		for _, w := range succ[v] {
			wd := &data[w]
			if wd.index == 0 {
				strongconnect(w)
				vd.lowlink = min(vd.lowlink, data[w].lowlink)
			} else if wd.onstack {
				vd.lowlink = min(vd.lowlink, wd.index)
			}
		}

		if vd.lowlink == vd.index {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				data[w].onstack = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for v := range n {
		if data[v].index == 0 {
			strongconnect(v)
		}
	}
	// Tarjan emits sinks first.
	slices.Reverse(sccs)
	return sccs
}
