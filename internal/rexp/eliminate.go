package rexp

import "slices"

// Step is one entry of a path sequence: the expression of all paths from
// From to To that the step contributes.
type Step struct {
	From int
	To   int
	Exp  *Exp
}

// Eliminate runs state elimination on a single component whose members are
// numbered 0..n-1 and returns its path sequence: first every non-trivial
// (u,w) with u <= w by ascending u (the loop (u,u) first), then every (u,w)
// with u > w by descending u.
func Eliminate(n int, arcs []Arc) []Step {
	p := make([][]*Exp, n)
	for i := range p {
		row := make([]*Exp, n)
		for j := range row {
			row[j] = nullExp
		}
		p[i] = row
	}
	for _, a := range arcs {
		p[a.From][a.To] = Union(p[a.From][a.To], a.Exp)
	}

	for v := range n {
		p[v][v] = Closure(p[v][v])
		for u := v + 1; u < n; u++ {
			if p[u][v].IsNull() {
				continue
			}
			p[u][v] = Concat(p[u][v], p[v][v])
			for w := v + 1; w < n; w++ {
				if p[v][w].IsNull() {
					continue
				}
				p[u][w] = Union(p[u][w], Concat(p[u][v], p[v][w]))
			}
		}
	}

	var seq []Step
	for u := range n {
		if loop := p[u][u]; !loop.IsNull() && !loop.IsEmpty() {
			seq = append(seq, Step{From: u, To: u, Exp: loop})
		}
		for w := u + 1; w < n; w++ {
			if !p[u][w].IsNull() {
				seq = append(seq, Step{From: u, To: w, Exp: p[u][w]})
			}
		}
	}
	for u := n - 1; u >= 0; u-- {
		for w := range u {
			if !p[u][w].IsNull() {
				seq = append(seq, Step{From: u, To: w, Exp: p[u][w]})
			}
		}
	}
	return seq
}

// PathSequence builds the path sequence of a whole graph: components in
// topological order, each contributing its elimination sequence followed by
// the arcs that leave it.
func PathSequence(n int, arcs []Arc) []Step {
	comps := Components(n, arcs)
	compOf := make([]int, n)
	local := make([]int, n)
	for ci, c := range comps {
		for li, v := range c {
			compOf[v] = ci
			local[v] = li
		}
	}

	inner := make([][]Arc, len(comps))
	outer := make([][]Arc, len(comps))
	for _, a := range arcs {
		cf, ct := compOf[a.From], compOf[a.To]
		if cf == ct {
			inner[cf] = append(inner[cf], Arc{From: local[a.From], To: local[a.To], Exp: a.Exp})
			continue
		}
		outer[cf] = append(outer[cf], a)
	}

	var seq []Step
	for ci, c := range comps {
		if len(inner[ci]) > 0 {
			for _, st := range Eliminate(len(c), inner[ci]) {
				seq = append(seq, Step{From: c[st.From], To: c[st.To], Exp: st.Exp})
			}
		}
		out := slices.Clone(outer[ci])
		slices.SortStableFunc(out, func(a, b Arc) int {
			if a.From != b.From {
				return a.From - b.From
			}
			return a.To - b.To
		})
		for _, a := range out {
			seq = append(seq, Step{From: a.From, To: a.To, Exp: a.Exp})
		}
	}
	return seq
}

// Solve evaluates a path sequence from source and returns, for every node,
// the expression of all paths source ~> node.
func Solve(n, source int, seq []Step) []*Exp {
	p := make([]*Exp, n)
	for i := range p {
		p[i] = nullExp
	}
	p[source] = emptyExp
	for _, st := range seq {
		if st.From == st.To {
			p[st.From] = Concat(p[st.From], st.Exp)
			continue
		}
		if p[st.From].IsNull() {
			continue
		}
		p[st.To] = Union(p[st.To], Concat(p[st.From], st.Exp))
	}
	return p
}
