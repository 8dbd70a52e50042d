package cgraph

import (
	"errors"
	"testing"

	"retype/internal/pni"
	"retype/internal/schema"
)

func mustVar(t *testing.T, s string) schema.TypeVariable {
	t.Helper()
	tv, err := schema.ParseVar(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tv
}

func mustNode(t *testing.T, g *Graph, s string, v schema.Variance) NodeID {
	t.Helper()
	id, err := g.Lookup(Key(mustVar(t, s), v))
	if err != nil {
		t.Fatalf("lookup %s: %v", s, err)
	}
	return id
}

func TestNodeKeyRoundTrip(t *testing.T) {
	for _, s := range []string{"x⊕", "x.load4⊖", "f.in_0.@8+4[nul]⊕'", "#int⊖", "g<2>.out⊕"} {
		k, err := ParseNodeKey(s)
		if err != nil {
			t.Fatalf("ParseNodeKey(%q): %v", s, err)
		}
		if got := k.String(); got != s {
			t.Fatalf("round trip %q -> %q", s, got)
		}
	}
	if _, err := ParseNodeKey("x"); err == nil {
		t.Fatalf("a key without variance should not parse")
	}
}

func TestAddConstraintBuildsChains(t *testing.T) {
	g := New("f", Options{})
	if err := g.AddConstraint(mustVar(t, "A"), mustVar(t, "x.store4")); err != nil {
		t.Fatal(err)
	}
	a := mustNode(t, g, "A", schema.Covariant)
	st := mustNode(t, g, "x.store4", schema.Covariant)
	if !g.HasEdge(a, st, schema.One()) {
		t.Fatalf("missing A⊕ -> x.store4⊕")
	}
	// store is contravariant: the covariant child hangs off the contravariant parent.
	xc := mustNode(t, g, "x", schema.Contravariant)
	if !g.HasEdge(xc, st, schema.Recall(schema.Store(4))) || !g.HasEdge(st, xc, schema.Forget(schema.Store(4))) {
		t.Fatalf("missing recall/forget between x⊖ and x.store4⊕")
	}
	mirror := mustNode(t, g, "x.store4", schema.Contravariant)
	if !g.HasEdge(mirror, mustNode(t, g, "A", schema.Contravariant), schema.One()) {
		t.Fatalf("missing mirrored edge x.store4⊖ -> A⊖")
	}
}

func TestAddEdgeErrors(t *testing.T) {
	g := New("f", Options{})
	if err := g.AddConstraint(mustVar(t, "a.load4"), mustVar(t, "b")); err != nil {
		t.Fatal(err)
	}
	a := mustNode(t, g, "a", schema.Covariant)
	al := mustNode(t, g, "a.load4", schema.Covariant)
	b := mustNode(t, g, "b", schema.Covariant)

	if _, err := g.AddEdge(a, a, schema.One()); !IsInvariant(err, KindSelfLoop) {
		t.Fatalf("self loop: got %v", err)
	}
	if _, err := g.AddEdge(a, NodeID(999), schema.One()); !IsInvariant(err, KindMissingNode) {
		t.Fatalf("missing node: got %v", err)
	}
	if _, err := g.AddEdge(b, al, schema.Recall(schema.Load(4))); !IsInvariant(err, KindMalformedPath) {
		t.Fatalf("malformed recall: got %v", err)
	}
	ac := mustNode(t, g, "a", schema.Contravariant)
	if _, err := g.AddEdge(ac, al, schema.Recall(schema.Load(4))); !IsInvariant(err, KindVariance) {
		t.Fatalf("variance: got %v", err)
	}
	if _, err := g.AddEdge(b, a, schema.RecallBase(mustVar(t, "a"), schema.Covariant)); !IsInvariant(err, KindMalformedPath) {
		t.Fatalf("recall_base off the start node: got %v", err)
	}

	added, err := g.AddEdge(a, al, schema.Recall(schema.Load(4)))
	if err != nil || added {
		t.Fatalf("duplicate edge: added=%v err=%v", added, err)
	}
	before := g.EdgeCount()
	if !g.RemoveEdge(al, b, schema.One()) {
		t.Fatalf("RemoveEdge should find the edge")
	}
	if g.EdgeCount() != before-1 || len(g.In(b)) != 0 {
		t.Fatalf("removal did not update both sides: in(b)=%v", g.In(b))
	}
	if g.RemoveEdge(al, b, schema.One()) {
		t.Fatalf("second removal should report false")
	}
}

func TestLookupNotFound(t *testing.T) {
	g := New("f", Options{})
	_, err := g.Lookup(Key(schema.Var("nope"), schema.Covariant))
	if !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("got %v, want ErrNodeNotFound", err)
	}
}

func TestRejectsMalformedVariables(t *testing.T) {
	g := New("f", Options{})
	bad := schema.Prim("int").With(schema.Load(4))
	if err := g.AddConstraint(bad, schema.Var("x")); !IsInvariant(err, KindMalformedPath) {
		t.Fatalf("labelled primitive: got %v", err)
	}
	if err := g.AddConstraint(schema.Prim(StartName), schema.Var("x")); !IsInvariant(err, KindMalformedPath) {
		t.Fatalf("reserved name: got %v", err)
	}
}

func TestClassSeeding(t *testing.T) {
	g := New("f", Options{PointerSize: 8})
	cs := schema.MustParseConstraints(
		"x.load4 <= a",
		"x.@8 <= y",
		"p.loadp <= q",
		"c <= #float",
	)
	if err := g.AddSubTypes(cs); err != nil {
		t.Fatal(err)
	}
	want := map[string]pni.PtrOrNum{
		"x":       pni.Pointer,
		"x.load4": pni.Number,
		"a":       pni.Number,
		"p":       pni.Pointer,
		"p.loadp": pni.Unknown,
		"c":       pni.NotApplicable,
	}
	for s, k := range want {
		v, ok := g.VarValue(mustVar(t, s))
		if !ok || v.Kind != k {
			t.Errorf("%s = %v (known=%v), want %v", s, v, ok, k)
		}
	}
	// An offset child shares its parent's class, and so does its supertype.
	xs := g.ClassMembers(mustNode(t, g, "x", schema.Covariant))
	y := mustNode(t, g, "y", schema.Contravariant)
	found := false
	for _, id := range xs {
		found = found || id == y
	}
	if !found {
		t.Fatalf("y⊖ should share x's class, members %v", xs)
	}
}

func TestLayerSplit(t *testing.T) {
	g := New("f", Options{})
	if err := g.AddSubTypes(schema.MustParseConstraints("a.load4 <= b", "b <= c.load4")); err != nil {
		t.Fatal(err)
	}
	g.Solve()
	w := g.Clone()
	w.layerSplit()
	if w.Len() != 2*g.Len()-2 {
		t.Fatalf("split graph has %d nodes, want %d", w.Len(), 2*g.Len()-2)
	}
	for _, e := range w.Edges() {
		from, to := w.KeyOf(e.From), w.KeyOf(e.To)
		switch e.Label.Kind {
		case schema.EdgeRecall:
			if from.NewLayer || to.NewLayer {
				t.Fatalf("recall edge in layer 1: %s -> %s", from, to)
			}
		case schema.EdgeForget:
			if !to.NewLayer {
				t.Fatalf("forget edge lands in layer 0: %s -> %s", from, to)
			}
		case schema.EdgeOne:
			if from.NewLayer != to.NewLayer {
				t.Fatalf("identity edge crosses layers: %s -> %s", from, to)
			}
		}
	}
	// The original is untouched.
	for _, id := range g.Nodes() {
		if g.KeyOf(id).NewLayer {
			t.Fatalf("layer split leaked into the source graph")
		}
	}
}
