package pni

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"retype/internal/schema"
)

// Handle names a value class cell. After a merge the handle keeps working:
// Find follows forwarding cells to the owner.
type Handle uint32

type cell struct {
	owner   bool
	forward Handle
	rank    uint8
	value   Value
}

// Graph owns the union-find arena and the arithmetic constraints over it.
type Graph struct {
	cells []cell
	cons  []Constraint
	// users maps an owner to the constraints mentioning its class.
	users map[Handle][]ConsID
	// onMerge, when set, observes every union as (winner, loser).
	onMerge func(winner, loser Handle)
}

// NewGraph returns an empty arena.
func NewGraph() *Graph {
	return &Graph{users: make(map[Handle][]ConsID)}
}

// OnMerge registers a callback run after each union.
func (g *Graph) OnMerge(fn func(winner, loser Handle)) {
	g.onMerge = fn
}

// New allocates a fresh class holding v.
func (g *Graph) New(v Value) Handle {
	n, err := safecast.Conv[uint32](len(g.cells))
	if err != nil {
		panic(fmt.Errorf("len(cells) overflow: %w", err))
	}
	h := Handle(n)
	g.cells = append(g.cells, cell{owner: true, value: v})
	return h
}

// NewUnknown allocates a class with no classification.
func (g *Graph) NewUnknown() Handle { return g.New(Value{Kind: Unknown}) }

// Len returns the number of cells, owners and forwarders alike.
func (g *Graph) Len() int { return len(g.cells) }

func (g *Graph) valid(h Handle) bool { return int(h) < len(g.cells) }

// Find returns the owner of h's class, compressing the path it walked.
func (g *Graph) Find(h Handle) Handle {
	if !g.valid(h) {
		panic(fmt.Errorf("pni: handle %d out of range", h))
	}
	root := h
	for !g.cells[root].owner {
		root = g.cells[root].forward
	}
	for cur := h; cur != root; {
		next := g.cells[cur].forward
		g.cells[cur].forward = root
		cur = next
	}
	return root
}

// Same reports whether a and b are in one class.
func (g *Graph) Same(a, b Handle) bool { return g.Find(a) == g.Find(b) }

// Get returns the value of h's class.
func (g *Graph) Get(h Handle) Value { return g.cells[g.Find(h)].value }

// Set merges v into h's class and reports whether the class changed.
func (g *Graph) Set(h Handle, v Value) bool {
	r := g.Find(h)
	old := g.cells[r].value
	next := Merge(old, v)
	if next == old {
		return false
	}
	g.cells[r].value = next
	return true
}

// SetKind is Set with a bare classification.
func (g *Graph) SetKind(h Handle, k PtrOrNum) bool { return g.Set(h, Value{Kind: k}) }

// Unify merges the classes of a and b. The winner is the higher-rank owner,
// ties going to the smaller handle. It reports whether anything changed.
func (g *Graph) Unify(a, b Handle) (Handle, bool) {
	ra, rb := g.Find(a), g.Find(b)
	if ra == rb {
		return ra, false
	}
	ca, cb := &g.cells[ra], &g.cells[rb]
	winner, loser := ra, rb
	switch {
	case ca.rank < cb.rank:
		winner, loser = rb, ra
	case ca.rank == cb.rank:
		if rb < ra {
			winner, loser = rb, ra
		}
		g.cells[winner].rank++
	}
	merged := Merge(g.cells[winner].value, g.cells[loser].value)
	g.cells[winner].value = merged
	g.cells[loser] = cell{owner: false, forward: winner}

	if moved := g.users[loser]; len(moved) > 0 {
		all := append(g.users[winner], moved...)
		slices.Sort(all)
		g.users[winner] = slices.Compact(all)
	}
	delete(g.users, loser)

	if g.onMerge != nil {
		g.onMerge(winner, loser)
	}
	return winner, true
}

// Owners returns every class owner in handle order.
func (g *Graph) Owners() []Handle {
	var out []Handle
	for i := range g.cells {
		if g.cells[i].owner {
			out = append(out, Handle(i))
		}
	}
	return out
}

// Clone deep-copies the arena and constraints; hooks are not copied.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		cells: slices.Clone(g.cells),
		cons:  slices.Clone(g.cons),
		users: make(map[Handle][]ConsID, len(g.users)),
	}
	for h, ids := range g.users {
		out.users[h] = slices.Clone(ids)
	}
	return out
}

// ArithOperands resolves the operands of constraint id to class owners.
func (g *Graph) ArithOperands(id ConsID) (kind schema.ArithKind, left, right, result Handle) {
	c := g.cons[id]
	return c.Kind, g.Find(c.Left), g.Find(c.Right), g.Find(c.Result)
}
