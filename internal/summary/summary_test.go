package summary_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"retype/internal/cgraph"
	"retype/internal/diag"
	"retype/internal/schema"
	"retype/internal/source"
	"retype/internal/summary"
	"retype/internal/testkit"
)

func solved(t *testing.T, name string, lines ...string) *cgraph.Graph {
	t.Helper()
	g := cgraph.New(name, cgraph.Options{})
	if err := g.AddSubTypes(schema.MustParseConstraints(lines...)); err != nil {
		t.Fatal(err)
	}
	g.Solve()
	return g
}

func parseOne(t *testing.T, text string) *summary.Summary {
	t.Helper()
	ss, bag := summary.ParseSource(source.NewFileSet(), "s.dot", []byte(text))
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v\n%s", bag.Items(), text)
	}
	if len(ss) != 1 {
		t.Fatalf("got %d summaries, want 1", len(ss))
	}
	return ss[0]
}

func simplify(t *testing.T, g *cgraph.Graph, names ...string) []string {
	t.Helper()
	var vars []schema.TypeVariable
	for _, n := range names {
		tv, err := schema.ParseVar(n)
		if err != nil {
			t.Fatal(err)
		}
		vars = append(vars, tv)
	}
	cs, err := g.Simplify(vars)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, c := range cs {
		out = append(out, c.String())
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	g := solved(t, "f", "y <= p", "p <= x", "A <= x.store4", "y.load4 <= B")
	text := summary.FromGraph(g).String()
	if !strings.HasPrefix(text, "// f\ndigraph f {\n  node [shape=record];\n") {
		t.Fatalf("unexpected header:\n%s", text)
	}

	back, err := summary.ToGraph(parseOne(t, text), cgraph.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := testkit.CheckGraphInvariants(back); err != nil {
		t.Fatal(err)
	}
	if back.EdgeCount() != g.EdgeCount() || back.Len() != g.Len() {
		t.Fatalf("rebuilt graph has %d nodes/%d edges, want %d/%d", back.Len(), back.EdgeCount(), g.Len(), g.EdgeCount())
	}
	if diff := cmp.Diff(text, summary.FromGraph(back).String()); diff != "" {
		t.Fatalf("second round trip changed the text (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A <= B"}, simplify(t, back, "A", "B")); diff != "" {
		t.Fatalf("rebuilt graph simplifies differently (-want +got):\n%s", diff)
	}
}

func TestInstanceNamesSurviveRecordEscapes(t *testing.T) {
	g := solved(t, "f", "y <= p", "p <= x", "A <= x.store4", "y.load4 <= B").Instantiate(3)
	text := summary.FromGraph(g).String()
	if !strings.Contains(text, `A\<3\>⊕`) {
		t.Fatalf("instance brackets not escaped:\n%s", text)
	}
	back, err := summary.ToGraph(parseOne(t, text), cgraph.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"A<3> <= B<3>"}, simplify(t, back, "A<3>", "B<3>")); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestClassesAndValues(t *testing.T) {
	s := parseOne(t, `// g
digraph g {
  a [label="{0|p⊕|c0 pointer!}"];
  b [label="{1|p⊖|c0 pointer!}"];
  c [label="{2|#float⊕|c1 primitive(float)}"];
}`)
	g, err := summary.ToGraph(s, cgraph.Options{})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := g.VarValue(schema.Var("p"))
	if p.Kind.String() != "pointer" || !p.Conflict {
		t.Fatalf("p = %v", p)
	}
	pc, _ := g.Lookup(cgraph.Key(schema.Var("p"), schema.Covariant))
	if n := len(g.ClassMembers(pc)); n != 2 {
		t.Fatalf("p's class has %d members, want 2", n)
	}
	f, _ := g.VarValue(schema.Prim("float"))
	if f.Prim != "float" {
		t.Fatalf("#float = %v", f)
	}
}

func TestMultipleGraphsAndQuotedNames(t *testing.T) {
	a := summary.FromGraph(solved(t, "f@plt", "a <= b"))
	b := summary.FromGraph(solved(t, "g", "c.load4 <= d"))
	var sb strings.Builder
	if err := summary.WriteAll(&sb, []*summary.Summary{a, b}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), `digraph "f@plt" {`) {
		t.Fatalf("name not quoted:\n%s", sb.String())
	}
	ss, bag := summary.ParseSource(source.NewFileSet(), "s.dot", []byte(sb.String()))
	if bag.Len() != 0 {
		t.Fatalf("diagnostics: %v", bag.Items())
	}
	var names []string
	for _, s := range ss {
		names = append(names, s.Comment+"/"+s.Name)
	}
	if diff := cmp.Diff([]string{"f@plt/f@plt", "g/g"}, names); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestDiagnostics(t *testing.T) {
	src := `// f
digraph f {
  n0 [label="{0|x⊕|c0 pointer}"];
  n0 -> n9 [label="1"];
  n1 [label="{1|x|c0 pointer}"];
  n2 [label="{2|y⊕|c1 sideways}"];
  n0 -> n0 [label="sideways"];
}
$`
	ss, bag := summary.ParseSource(source.NewFileSet(), "bad.dot", []byte(src))
	if len(ss) != 1 || len(ss[0].Nodes) != 1 {
		t.Fatalf("expected the graph to survive with one node, got %+v", ss)
	}
	var codes []diag.Code
	for _, d := range bag.Items() {
		codes = append(codes, d.Code)
	}
	slices.Sort(codes)
	want := []diag.Code{diag.DocSummaryToken, diag.DocSummaryToken, diag.DocSummaryNode, diag.DocSummaryNode, diag.DocSummaryEdge, diag.DocSummaryUnknownNode}
	slices.Sort(want)
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Fatalf("diagnostic codes (-want +got):\n%s", diff)
	}
}

func TestToGraphRejectsBrokenSteps(t *testing.T) {
	s := parseOne(t, `digraph f {
  a [label="{0|x⊕|c0 unknown}"];
  b [label="{1|y.load4⊕|c1 unknown}"];
  a -> b [label="recall load4"];
}`)
	_, err := summary.ToGraph(s, cgraph.Options{})
	if !cgraph.IsInvariant(err, cgraph.KindMalformedPath) {
		t.Fatalf("got %v, want a malformed-path invariant error", err)
	}
}
