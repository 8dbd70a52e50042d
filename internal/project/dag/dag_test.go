package dag

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"retype/internal/diag"
	"retype/internal/project"
	"retype/internal/source"
)

func idsToNames(idx FunctionIndex, ids []FunctionID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}

func batchesToNames(idx FunctionIndex, batches [][]FunctionID) [][]string {
	out := make([][]string, len(batches))
	for i, batch := range batches {
		out[i] = idsToNames(idx, batch)
	}
	return out
}

func fn(name string, span source.Span, callees ...string) project.FunctionMeta {
	m := project.FunctionMeta{Name: name, Span: span}
	for i, c := range callees {
		m.Calls = append(m.Calls, project.CallMeta{Callee: c, Instance: uint32(i + 1), Span: span})
	}
	return m
}

func build(t *testing.T, external func(string) bool, metas ...project.FunctionMeta) (FunctionIndex, Graph, []FunctionSlot, []*diag.Bag) {
	t.Helper()
	nodes := make([]FunctionNode, len(metas))
	bags := make([]*diag.Bag, len(metas))
	for i, m := range metas {
		bags[i] = diag.NewBag(10)
		nodes[i] = FunctionNode{Meta: m, Reporter: diag.BagReporter{Bag: bags[i]}}
	}
	idx := BuildIndex(metas)
	g, slots := BuildGraph(idx, nodes, external)
	return idx, g, slots, bags
}

func TestBuildIndexIncludesCallees(t *testing.T) {
	idx := BuildIndex([]project.FunctionMeta{fn("main", source.Span{}, "strlen", "memcpy"), fn("strlen", source.Span{})})
	if diff := cmp.Diff([]string{"main", "memcpy", "strlen"}, idx.IDToName); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
	for i, name := range idx.IDToName {
		if int(idx.NameToID[name]) != i {
			t.Fatalf("NameToID[%q] = %d, want %d", name, idx.NameToID[name], i)
		}
	}
}

func TestBuildGraphReportsUnknownCallees(t *testing.T) {
	sp := source.Span{File: 1, Start: 3, End: 9}
	external := func(name string) bool { return name == "memcpy" }
	idx, g, _, bags := build(t, external, fn("main", sp, "strlen", "memcpy", "puts"), fn("strlen", sp))

	mainID, strlenID := idx.NameToID["main"], idx.NameToID["strlen"]
	if diff := cmp.Diff([]FunctionID{mainID}, g.Edges[int(strlenID)]); diff != "" {
		t.Fatalf("strlen callers (-want +got):\n%s", diff)
	}
	if g.Indeg[int(mainID)] != 1 {
		t.Fatalf("main indegree %d, want 1", g.Indeg[int(mainID)])
	}
	if g.Present[int(idx.NameToID["puts"])] {
		t.Fatal("puts marked present")
	}
	items := bags[0].Items()
	if len(items) != 1 || items[0].Code != diag.GraphUnknownCall || items[0].Severity != diag.SevWarning {
		t.Fatalf("main diagnostics = %v", items)
	}
	if want := "puts<3> names no function or summary; its constraints stay local to main"; items[0].Message != want {
		t.Fatalf("message %q", items[0].Message)
	}
}

func TestBuildGraphDuplicateFunctions(t *testing.T) {
	spanA := source.Span{File: 1, Start: 0, End: 5}
	spanB := source.Span{File: 2, Start: 0, End: 5}
	idx, g, slots, bags := build(t, nil, fn("f", spanA), fn("f", spanB))

	if !g.Present[idx.NameToID["f"]] {
		t.Fatal("f not present")
	}
	if bags[0].Len() != 0 {
		t.Fatalf("first definition got diagnostics: %v", bags[0].Items())
	}
	items := bags[1].Items()
	if len(items) != 1 || items[0].Code != diag.DocDuplicateFunction || len(items[0].Notes) != 1 {
		t.Fatalf("duplicate diagnostics = %v", items)
	}
	if items[0].Notes[0].Span != spanA {
		t.Fatalf("note points at %v, want %v", items[0].Notes[0].Span, spanA)
	}
	if slot := slots[int(idx.NameToID["f"])]; slot.Meta.Span != spanA {
		t.Fatal("slot lost the first definition")
	}
}

func TestToposortKahnBatches(t *testing.T) {
	idx, g, _, _ := build(t, nil, fn("b", source.Span{}, "c"), fn("a", source.Span{}), fn("c", source.Span{}))
	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatal("expected acyclic graph")
	}
	if diff := cmp.Diff([]string{"a", "c", "b"}, idsToNames(idx, topo.Order)); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"a", "c"}, {"b"}}, batchesToNames(idx, topo.Batches)); diff != "" {
		t.Fatalf("batches (-want +got):\n%s", diff)
	}
}

func TestRecursiveGroups(t *testing.T) {
	sp := source.Span{File: 1, Start: 0, End: 4}
	// even and odd call each other, main calls even, fact calls itself.
	idx, g, slots, bags := build(t, nil,
		fn("even", sp, "odd"),
		fn("odd", sp, "even"),
		fn("main", sp, "even"),
		fn("fact", sp, "fact"),
		fn("leaf", sp),
	)
	topo := ToposortKahn(g)
	if !topo.Cyclic {
		t.Fatal("expected cycles")
	}
	if diff := cmp.Diff([][]string{{"leaf"}}, batchesToNames(idx, topo.Batches)); diff != "" {
		t.Fatalf("batches (-want +got):\n%s", diff)
	}
	waves := batchesToNames(idx, topo.Waves())
	pos := map[string]int{}
	for i, w := range waves {
		for _, name := range w {
			pos[name] = i
		}
	}
	if pos["main"] <= pos["even"] || pos["even"] != pos["odd"] {
		t.Fatalf("waves %v do not put the even/odd group before main", waves)
	}
	if len(topo.Recursive) != 2 {
		t.Fatalf("recursive groups %v", batchesToNames(idx, topo.Recursive))
	}

	ReportCycles(idx, slots, topo)
	for i, name := range []string{"even", "odd", "main", "fact", "leaf"} {
		want := 1
		if name == "main" || name == "leaf" {
			want = 0
		}
		if bags[i].Len() != want {
			t.Errorf("%s has %d diagnostics, want %d: %v", name, bags[i].Len(), want, bags[i].Items())
		}
	}
	if msg := bags[0].Items()[0].Message; msg != "fn even is part of a recursive call group {even, odd}; calls inside the group are not instantiated" {
		t.Errorf("message %q", msg)
	}
}

func TestReportBrokenCallees(t *testing.T) {
	sp := source.Span{File: 1, Start: 2, End: 6}
	first := &diag.Diagnostic{Message: "boom", Primary: source.Span{File: 2, Start: 0, End: 1}}
	metas := []project.FunctionMeta{fn("main", sp, "bad"), fn("bad", sp)}
	bag := diag.NewBag(10)
	nodes := []FunctionNode{
		{Meta: metas[0], Reporter: diag.BagReporter{Bag: bag}},
		{Meta: metas[1], Broken: true, FirstErr: first},
	}
	idx := BuildIndex(metas)
	_, slots := BuildGraph(idx, nodes, nil)
	ReportBrokenCallees(idx, slots)
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.GraphCalleeFailed {
		t.Fatalf("diagnostics = %v", items)
	}
	if items[0].Notes[0].Msg != "first error in callee: boom" {
		t.Fatalf("note %q", items[0].Notes[0].Msg)
	}
}
