package diag

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"retype/internal/source"
)

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/work")
	id := fs.AddVirtual("/work/f.rt", []byte("fn f {\n  A <= \n}\n"))
	bag := NewBag(10)
	r := BagReporter{Bag: bag}
	ReportWarning(r, DocEmptyFunction, source.Span{File: id, Start: 0, End: 6}, "function f has no constraints").Emit()
	ReportError(r, ParseBadConstraint, source.Span{File: id, Start: 9, End: 13}, "expected a type variable\nafter <=").
		WithNote(source.Span{File: id, Start: 0, End: 2}, "in this function").
		Emit()

	got := FormatShort(bag.Items(), fs, true)
	want := "warning DOC2005 f.rt:1:1 function f has no constraints\n" +
		"note PAR1003 f.rt:1:1 in this function\n" +
		"error PAR1003 f.rt:2:3 expected a type variable after <="
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("short format (-want +got):\n%s", diff)
	}
	if !bag.HasErrors() || !bag.HasWarnings() {
		t.Fatalf("bag should report errors and warnings")
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	bag := NewBag(3)
	sp := func(s uint32) source.Span { return source.Span{Start: s, End: s + 1} }
	bag.Add(New(SevWarning, LatPNIConflict, sp(5), "b"))
	bag.Add(New(SevError, ParseBadLabel, sp(1), "a"))
	bag.Add(New(SevWarning, LatPNIConflict, sp(5), "b again"))
	if bag.Add(New(SevInfo, ObsTimings, sp(0), "over")) {
		t.Fatalf("limit not enforced")
	}
	bag.Sort()
	bag.Dedup()
	var codes []Code
	for _, d := range bag.Items() {
		codes = append(codes, d.Code)
	}
	if diff := cmp.Diff([]Code{ParseBadLabel, LatPNIConflict}, codes); diff != "" {
		t.Fatalf("codes (-want +got):\n%s", diff)
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	for range 3 {
		r.Report(LatSketchConflict, SevWarning, source.Span{}, "x", nil)
	}
	if bag.Len() != 1 {
		t.Fatalf("got %d diagnostics, want 1", bag.Len())
	}
}

func TestCodeID(t *testing.T) {
	for code, want := range map[Code]string{ParseBadVariable: "PAR1001", GraphInvariant: "GRF3001", LatPNIConflict: "LAT4001", Code(42): "E0000"} {
		if got := code.ID(); got != want {
			t.Errorf("%d: got %s, want %s", code, got, want)
		}
	}
}
