package cfile

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"retype/internal/diag"
	"retype/internal/source"
)

const sample = `// two functions and a loose line
fn f {
  interesting A B
  A <= x.store4   // store through x
  y.load4 <= B
  add x y z // 0x1000
}

fn g {}

loose <= other
`

func TestParseDocument(t *testing.T) {
	fs := source.NewFileSet()
	doc, bag := ParseSource(fs, "dir/mod.rt", []byte(sample))

	var names []string
	for _, f := range doc.Functions {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"f", "g", "mod"}, names); diff != "" {
		t.Fatalf("functions (-want +got):\n%s", diff)
	}

	f, _ := doc.Function("f")
	var got []string
	for _, c := range f.Constraints {
		got = append(got, c.String())
	}
	if diff := cmp.Diff([]string{"A <= x.store4", "y.load4 <= B"}, got); diff != "" {
		t.Fatalf("constraints (-want +got):\n%s", diff)
	}
	if len(f.Arith) != 1 || f.Arith[0].Origin != "0x1000" {
		t.Fatalf("arith = %+v", f.Arith)
	}
	if len(f.Interesting) != 2 || f.Interesting[1].String() != "B" {
		t.Fatalf("interesting = %v", f.Interesting)
	}
	start, _ := fs.Resolve(f.Constraints[1].Span)
	if start != (source.LineCol{Line: 5, Col: 3}) {
		t.Fatalf("second constraint at %+v", start)
	}

	// g is empty: one warning, nothing else.
	if diff := cmp.Diff("warning DOC2005 dir/mod.rt:9:1 fn g has no constraints", diag.FormatShort(bag.Items(), fs, false)); diff != "" {
		t.Fatalf("diagnostics (-want +got):\n%s", diff)
	}
}

func TestDiagnostics(t *testing.T) {
	src := `fn f {
  A <= x.lod4
  interesting Q
  mul a b c
  A <= B
}
}
fn f {
  C <= D
fn h {
  E <= F
`
	fs := source.NewFileSet()
	fs.SetBaseDir("/")
	_, bag := ParseSource(fs, "/t.rt", []byte(src))
	want := []string{
		"error DOC2002 t.rt:8:1 fn f is never closed",
		"error DOC2002 t.rt:10:1 fn h is never closed",
		"error DOC2003 t.rt:8:1 fn f is already defined",
		"error DOC2004 t.rt:7:1 '}' without an open fn block",
		"error PAR1002 t.rt:2:10 unknown field label at \"lod4\"",
		"error PAR1003 t.rt:4:7 expected '<=' or '⊑' at \"a b c\"",
		"warning DOC2006 t.rt:1:1 Q does not occur in fn f",
	}
	var got []string
	for _, d := range bag.Items() {
		got = append(got, diag.FormatShort([]diag.Diagnostic{d}, fs, false))
	}
	slices.Sort(got)
	slices.Sort(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("diagnostics (-want +got):\n%s", diff)
	}
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	fs := source.NewFileSet()
	a, _ := ParseSource(fs, "a.rt", []byte("fn f {\n  a <= b\n  c <= d\n  add a c e // here\n}\n"))
	b, _ := ParseSource(fs, "b.rt", []byte("fn f {\n  add a c e\n  c <= d\n  a <= b\n  a <= b\n}\n"))
	c, _ := ParseSource(fs, "c.rt", []byte("fn f {\n  a <= b\n}\n"))
	fa, fb, fc := a.Functions[0].Fingerprint(), b.Functions[0].Fingerprint(), c.Functions[0].Fingerprint()
	if fa != fb {
		t.Fatalf("reordering changed the fingerprint")
	}
	if fa == fc {
		t.Fatalf("different bodies share a fingerprint")
	}
}

func TestSpansWithCRLF(t *testing.T) {
	src := "fn f {\r\n  A <= B\r\n  A <= x.lod4\r\n}\r\n"
	fs := source.NewFileSet()
	fs.SetBaseDir("/")
	doc, bag := ParseSource(fs, "/t.rt", []byte(src))
	want := "error PAR1002 t.rt:3:10 unknown field label at \"lod4\""
	if got := diag.FormatShort(bag.Items(), fs, false); got != want {
		t.Fatalf("diagnostics = %q, want %q", got, want)
	}
	if n := len(doc.Functions); n != 1 {
		t.Fatalf("%d functions, want 1", n)
	}
}
