package sketch

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"retype/internal/cgraph"
	"retype/internal/schema"
)

func solved(t *testing.T, lines ...string) *cgraph.Graph {
	t.Helper()
	g := cgraph.New("f", cgraph.Options{})
	if err := g.AddSubTypes(schema.MustParseConstraints(lines...)); err != nil {
		t.Fatalf("add constraints: %v", err)
	}
	g.Solve()
	return g
}

func elemAt(t *testing.T, s *Sketch, path ...schema.FieldLabel) *Node {
	t.Helper()
	id, ok := s.Lookup(path...)
	if !ok {
		t.Fatalf("no node at %v in\n%s", path, s)
	}
	return s.Node(id)
}

type field struct {
	label schema.FieldLabel
	elem  string
}

// leafSketch builds root -label-> leaf for each field.
func leafSketch(t *testing.T, fields ...field) *Sketch {
	t.Helper()
	s := New(schema.Var("v"))
	s.Node(s.Root).Elem = Top
	for _, f := range fields {
		id := s.AddNode(schema.Combine(schema.Covariant, f.label.Variance()), "leaf")
		s.Node(id).Elem = f.elem
		if err := s.AddEdge(s.Root, f.label, id); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestElementLattice(t *testing.T) {
	tests := []struct {
		a, b         string
		join, meet   string
		joinConflict bool
		meetConflict bool
	}{
		{"int", "int", "int", "int", false, false},
		{"", "float", "float", "float", false, false},
		{Bottom, "float", "float", Bottom, false, false},
		{Top, "float", Top, "float", false, false},
		{"int", "i32", Top, "i32", true, false},
		{"float", "int", Top, Top, true, true},
	}
	for _, tt := range tests {
		j, jc := JoinElem(tt.a, tt.b)
		m, mc := MeetElem(tt.a, tt.b)
		if j != tt.join || m != tt.meet {
			t.Errorf("%s, %s: join=%s meet=%s, want %s %s", tt.a, tt.b, j, m, tt.join, tt.meet)
		}
		if mc != tt.meetConflict {
			t.Errorf("%s meet %s: conflict=%v", tt.a, tt.b, mc)
		}
		if jc != tt.joinConflict {
			t.Errorf("%s join %s: conflict=%v", tt.a, tt.b, jc)
		}
		// Both operations are commutative.
		if j2, _ := JoinElem(tt.b, tt.a); j2 != j {
			t.Errorf("join not commutative on %s, %s", tt.a, tt.b)
		}
		if m2, _ := MeetElem(tt.b, tt.a); m2 != m {
			t.Errorf("meet not commutative on %s, %s", tt.a, tt.b)
		}
	}
}

func TestFromGraph(t *testing.T) {
	g := solved(t, "p.load4 <= #int", "p.@8.load4 <= q", "q <= #float")
	s, err := FromGraph(g, schema.Var("p"))
	if err != nil {
		t.Fatal(err)
	}
	if n := elemAt(t, s); n.Elem != Top {
		t.Errorf("root element %q, want %q", n.Elem, Top)
	}
	if n := elemAt(t, s, schema.Load(4)); n.Elem != "int" {
		t.Errorf("load4 element %q, want int", n.Elem)
	}
	if n := elemAt(t, s, schema.Offset(8), schema.Load(4)); n.Elem != "float" {
		t.Errorf("@8.load4 element %q, want float", n.Elem)
	}
	if len(s.Conflicts()) != 0 {
		t.Errorf("unexpected conflicts in\n%s", s)
	}
}

func TestFromGraphRequiresSolve(t *testing.T) {
	g := cgraph.New("f", cgraph.Options{})
	if err := g.AddSubTypes(schema.MustParseConstraints("p.load4 <= q")); err != nil {
		t.Fatal(err)
	}
	if _, err := FromGraph(g, schema.Var("p")); !cgraph.IsInvariant(err, cgraph.KindNotSaturated) {
		t.Fatalf("got %v, want a not-saturated error", err)
	}
}

func TestNumberHint(t *testing.T) {
	g := cgraph.New("f", cgraph.Options{})
	cs := schema.MustParseConstraints("p.load4 <= a", "q.load4 <= b", "n <= c")
	if err := g.AddSubTypes(cs); err != nil {
		t.Fatal(err)
	}
	if err := g.AddArith(schema.ArithConstraint{Kind: schema.ArithSub, Left: schema.Var("p"), Right: schema.Var("q"), Result: schema.Var("n")}); err != nil {
		t.Fatal(err)
	}
	g.Solve()
	s, err := FromGraph(g, schema.Var("n"))
	if err != nil {
		t.Fatal(err)
	}
	if n := elemAt(t, s); n.Elem != GenericInt {
		t.Fatalf("pointer difference sketched as %q, want %q", n.Elem, GenericInt)
	}
}

func TestJoinPrunesAndConflicts(t *testing.T) {
	a := leafSketch(t, field{schema.Load(4), "int"}, field{schema.Offset(4), "float"})
	b := leafSketch(t, field{schema.Load(4), "float"})
	j, err := Join(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := j.Lookup(schema.Offset(4)); ok {
		t.Fatalf("join kept a one-sided field:\n%s", j)
	}
	if n := elemAt(t, j, schema.Load(4)); n.Elem != Top || !n.Conflict {
		t.Fatalf("load4 = %q conflict=%v, want top with a conflict", n.Elem, n.Conflict)
	}
}

func TestMeetUnionsAndRefines(t *testing.T) {
	a := leafSketch(t, field{schema.Load(4), "int"})
	b := leafSketch(t, field{schema.Load(4), "i32"}, field{schema.Store(4), "float"})
	m, err := Meet(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if n := elemAt(t, m, schema.Load(4)); n.Elem != "i32" || n.Conflict {
		t.Fatalf("load4 = %q conflict=%v, want i32", n.Elem, n.Conflict)
	}
	if n := elemAt(t, m, schema.Store(4)); n.Elem != "float" || n.Variance != schema.Contravariant {
		t.Fatalf("store4 = %q %s, want a copied contravariant float", n.Elem, n.Variance)
	}
}

func TestContravariantLabelFlipsOperation(t *testing.T) {
	a := leafSketch(t, field{schema.Store(4), "int"})
	b := leafSketch(t, field{schema.Store(4), "i32"})
	j, err := Join(a, b)
	if err != nil {
		t.Fatal(err)
	}
	// Below a store the join becomes a meet.
	if n := elemAt(t, j, schema.Store(4)); n.Elem != "i32" || n.Conflict {
		t.Fatalf("store4 = %q conflict=%v, want i32", n.Elem, n.Conflict)
	}
}

func TestRecursiveSketch(t *testing.T) {
	g := solved(t, "x.load8 <= x", "x.@4.load4 <= #int")
	s, err := FromGraph(g, schema.Var("x"))
	if err != nil {
		t.Fatal(err)
	}
	next := elemAt(t, s, schema.Load(8))
	if again := elemAt(t, s, schema.Load(8), schema.Load(8)); again.ID != next.ID {
		t.Fatalf("list tail not folded into a cycle:\n%s", s)
	}
	if n := elemAt(t, s, schema.Load(8), schema.Offset(4), schema.Load(4)); n.Elem != "int" {
		t.Fatalf("payload element %q, want int", n.Elem)
	}

	j, err := Join(s, s)
	if err != nil {
		t.Fatal(err)
	}
	if j.Len() != s.Len() {
		t.Fatalf("self-join has %d nodes, want %d", j.Len(), s.Len())
	}
	if !strings.Contains(s.String(), "load8: -> #") {
		t.Fatalf("cycle printed without a back-reference:\n%s", s)
	}
}

func TestYAML(t *testing.T) {
	g := solved(t, "x.load8 <= x", "x.@4.load4 <= #int")
	s, err := FromGraph(g, schema.Var("x"))
	if err != nil {
		t.Fatal(err)
	}
	data, err := s.YAML()
	if err != nil {
		t.Fatal(err)
	}
	var got Doc
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if diff := cmp.Diff(s.Doc(), got); diff != "" {
		t.Fatalf("yaml round trip (-want +got):\n%s", diff)
	}
}
