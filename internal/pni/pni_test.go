package pni

import (
	"fmt"
	"testing"

	"retype/internal/schema"
)

func kindOf(letter byte) Value {
	switch letter {
	case 'i', 'I':
		return Value{Kind: Number}
	case 'p', 'P':
		return Value{Kind: Pointer}
	}
	return Value{Kind: Unknown}
}

func TestMergeLattice(t *testing.T) {
	prim := Value{Kind: NotApplicable, Prim: "float"}
	if got := Merge(prim, prim); got != prim {
		t.Fatalf("Merge(prim, prim) = %v", got)
	}
	got := Merge(Value{Kind: Pointer}, Value{Kind: Number})
	if !got.Conflict || got.Kind != Pointer {
		t.Fatalf("Merge(pointer, number) = %v, want conflicting pointer", got)
	}
	if got := Merge(Value{Kind: Null}, Value{Kind: Number}); got.Kind != Number || got.Conflict {
		t.Fatalf("Null should be the identity, got %v", got)
	}
	if got := Merge(Value{Kind: Unknown}, Value{Kind: Pointer}); got.Kind != Pointer {
		t.Fatalf("Unknown should yield, got %v", got)
	}
	if got := Merge(prim, Value{Kind: Number}); got != prim {
		t.Fatalf("primitive absorbs number, got %v", got)
	}

	all := []Value{
		{Kind: Unknown}, {Kind: Number}, {Kind: Pointer}, {Kind: Null},
		{Kind: NotApplicable, Prim: "float"}, {Kind: NotApplicable, Prim: "i16"},
		{Kind: Number, Conflict: true},
	}
	for _, a := range all {
		for _, b := range all {
			if Merge(a, b) != Merge(b, a) {
				t.Fatalf("Merge(%v,%v) is not commutative", a, b)
			}
		}
	}
}

func TestAddRules(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "iiu", want: "iii"},
		{in: "uui", want: "iii"},
		{in: "puu", want: "pip"},
		{in: "uip", want: "pip"},
		{in: "upu", want: "ipp"},
		{in: "iup", want: "ipp"},
	}
	for _, tc := range cases {
		checkRule(t, schema.ArithAdd, tc.in, tc.want)
	}
}

func TestSubRules(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "iuu", want: "iii"},
		{in: "uii", want: "iii"},
		{in: "uip", want: "pip"},
		{in: "upu", want: "ppi"},
		{in: "pui", want: "ppi"},
		{in: "piu", want: "pip"},
		{in: "pup", want: "pip"},
	}
	for _, tc := range cases {
		checkRule(t, schema.ArithSub, tc.in, tc.want)
	}
}

func checkRule(t *testing.T, kind schema.ArithKind, in, want string) {
	t.Helper()
	g := NewGraph()
	var hs [3]Handle
	for i := range 3 {
		hs[i] = g.New(kindOf(in[i]))
	}
	g.AddArith(kind, hs[0], hs[1], hs[2], "")
	st := g.Solve()
	for i := range 3 {
		got := g.Get(hs[i])
		if got.Kind != kindOf(want[i]).Kind || got.Conflict {
			t.Fatalf("%s %s: operand %d = %v, want %c", kind, in, i, got, want[i])
		}
	}
	if st.Solved != 1 {
		t.Fatalf("%s %s: constraint not retired: %+v", kind, in, st)
	}
}

func TestAddAliasForcesNumbers(t *testing.T) {
	g := NewGraph()
	x, r := g.NewUnknown(), g.NewUnknown()
	g.AddArith(schema.ArithAdd, x, x, r, "x + x")
	g.Solve()
	if g.Get(x).Kind != Number || g.Get(r).Kind != Number {
		t.Fatalf("x = %v, r = %v; want numbers", g.Get(x), g.Get(r))
	}
}

func TestSubAliasRules(t *testing.T) {
	g := NewGraph()
	x, r := g.NewUnknown(), g.NewUnknown()
	g.AddArith(schema.ArithSub, x, x, r, "x - x")
	g.Solve()
	if g.Get(r).Kind != Number {
		t.Fatalf("x - x should be a number, got %v", g.Get(r))
	}
	if g.Get(x).Kind != Unknown {
		t.Fatalf("x should stay unknown, got %v", g.Get(x))
	}

	g = NewGraph()
	l, y := g.NewUnknown(), g.NewUnknown()
	g.AddArith(schema.ArithSub, l, y, y, "l - y = y")
	g.Solve()
	if g.Get(l).Kind != Number || g.Get(y).Kind != Number {
		t.Fatalf("result aliasing right forces numbers: %v %v", g.Get(l), g.Get(y))
	}
}

func TestMergeFallbackUnifies(t *testing.T) {
	g := NewGraph()
	n := g.New(Value{Kind: Number})
	r, res := g.NewUnknown(), g.NewUnknown()
	g.AddArith(schema.ArithAdd, n, r, res, "")
	g.Solve()
	if !g.Same(r, res) {
		t.Fatalf("number + u = u should unify the unknowns")
	}

	// Once the merged class learns something the constraint resolves.
	p := g.NewUnknown()
	g.SetKind(p, Pointer)
	g.Unify(p, r)
	g.Solve()
	if g.Get(res).Kind != Pointer {
		t.Fatalf("result should follow right, got %v", g.Get(res))
	}
}

func TestConflictIsSoft(t *testing.T) {
	g := NewGraph()
	a, b, c := g.New(Value{Kind: Pointer}), g.New(Value{Kind: Pointer}), g.NewUnknown()
	g.AddArith(schema.ArithAdd, a, b, c, "ptr + ptr")
	g.Solve()
	if !g.Get(b).Conflict {
		t.Fatalf("pointer + pointer should flag a conflict, got %v", g.Get(b))
	}
	if g.Get(c).Kind != Pointer {
		t.Fatalf("result = %v", g.Get(c))
	}
}

func TestFindCompressesPaths(t *testing.T) {
	g := NewGraph()
	hs := make([]Handle, 6)
	for i := range hs {
		hs[i] = g.NewUnknown()
	}
	for i := 1; i < len(hs); i++ {
		g.Unify(hs[i-1], hs[i])
	}
	root := g.Find(hs[len(hs)-1])
	for _, h := range hs {
		if g.Find(h) != root {
			t.Fatalf("handle %d resolves to %d, want %d", h, g.Find(h), root)
		}
		if h != root && g.cells[h].forward != root {
			t.Fatalf("handle %d not compressed", h)
		}
	}
	if len(g.Owners()) != 1 {
		t.Fatalf("expected exactly one owner, got %v", g.Owners())
	}
}

func TestMergeHookObservesUnions(t *testing.T) {
	g := NewGraph()
	var seen []string
	g.OnMerge(func(w, l Handle) { seen = append(seen, fmt.Sprintf("%d<-%d", w, l)) })
	a, b := g.NewUnknown(), g.NewUnknown()
	g.Unify(b, a)
	if len(seen) != 1 || seen[0] != "0<-1" {
		t.Fatalf("hook saw %v", seen)
	}
	if _, changed := g.Unify(a, b); changed {
		t.Fatalf("second unify should be a no-op")
	}
}

type arith struct {
	kind             schema.ArithKind
	left, right, res int
}

func solvePermutation(order []arith, seeds map[int]PtrOrNum) []Value {
	g := NewGraph()
	hs := make([]Handle, 6)
	for i := range hs {
		hs[i] = g.NewUnknown()
	}
	for i, k := range seeds {
		g.SetKind(hs[i], k)
	}
	for _, a := range order {
		g.AddArith(a.kind, hs[a.left], hs[a.right], hs[a.res], "")
	}
	g.Solve()
	out := make([]Value, len(hs))
	for i, h := range hs {
		out[i] = g.Get(h)
	}
	return out
}

func permutations(xs []arith) [][]arith {
	if len(xs) <= 1 {
		return [][]arith{append([]arith(nil), xs...)}
	}
	var out [][]arith
	for i := range xs {
		rest := make([]arith, 0, len(xs)-1)
		rest = append(rest, xs[:i]...)
		rest = append(rest, xs[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]arith{xs[i]}, p...))
		}
	}
	return out
}

func TestSolveIsOrderIndependent(t *testing.T) {
	cons := []arith{
		{kind: schema.ArithAdd, left: 0, right: 3, res: 1},
		{kind: schema.ArithSub, left: 1, right: 0, res: 2},
		{kind: schema.ArithAdd, left: 2, right: 4, res: 5},
		{kind: schema.ArithSub, left: 5, right: 3, res: 4},
	}
	seeds := map[int]PtrOrNum{0: Pointer, 3: Number}
	var want []Value
	for _, p := range permutations(cons) {
		got := solvePermutation(p, seeds)
		if want == nil {
			want = got
			continue
		}
		for i := range want {
			if got[i] != want[i] || got[i].Conflict {
				t.Fatalf("order %v: value %d = %v, want %v", p, i, got[i], want[i])
			}
		}
	}
}

func TestSolveIsIdempotent(t *testing.T) {
	g := NewGraph()
	a, b, c := g.New(Value{Kind: Pointer}), g.NewUnknown(), g.NewUnknown()
	g.AddArith(schema.ArithAdd, a, b, c, "")
	g.Solve()
	before := []Value{g.Get(a), g.Get(b), g.Get(c)}
	st := g.Solve()
	after := []Value{g.Get(a), g.Get(b), g.Get(c)}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("second solve changed operand %d: %v -> %v", i, before[i], after[i])
		}
	}
	if st.Steps != 0 {
		t.Fatalf("second solve should have nothing queued, did %d steps", st.Steps)
	}
}

// Contradictory inputs resolve in constraint order; the same order always
// gives the same classes.
func TestConflictingInputsAreDeterministic(t *testing.T) {
	solve := func() []Value {
		g := NewGraph()
		var h [5]Handle
		for i := range h {
			h[i] = g.NewUnknown()
		}
		g.SetKind(h[1], Pointer)
		g.AddArith(schema.ArithAdd, h[2], h[3], h[3], "c1")
		g.AddArith(schema.ArithSub, h[2], h[4], h[2], "c2")
		g.AddArith(schema.ArithSub, h[2], h[1], h[4], "c3")
		g.Solve()
		out := make([]Value, len(h))
		for i, x := range h {
			out[i] = g.Get(x)
		}
		return out
	}
	first := solve()
	for range 5 {
		if got := solve(); fmt.Sprint(got) != fmt.Sprint(first) {
			t.Fatalf("solve gave %v, then %v", first, got)
		}
	}
}
