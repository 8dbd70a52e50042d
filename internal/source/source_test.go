package source

import (
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()
	id1 := fs.Add("a.rt", []byte("x <= y"), 0)
	id2 := fs.Add("./a.rt", []byte("y <= z"), 0)
	if id1 == id2 {
		t.Fatalf("re-adding a path must give a new id")
	}
	if got, ok := fs.GetLatest("a.rt"); !ok || got != id2 {
		t.Fatalf("GetLatest = %d,%v, want %d", got, ok, id2)
	}
	if string(fs.Get(id1).Content) != "x <= y" {
		t.Fatalf("old version lost")
	}
}

func TestResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("f.rt", []byte("fn f {\n  A <= B\n}\n"))
	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{6, LineCol{1, 7}},
		{7, LineCol{2, 1}},
		{9, LineCol{2, 3}},
		{16, LineCol{3, 1}},
	}
	for _, tt := range tests {
		got, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if got != tt.want {
			t.Errorf("offset %d: got %+v, want %+v", tt.off, got, tt.want)
		}
	}
	if line := fs.Get(id).GetLine(2); line != "  A <= B" {
		t.Errorf("GetLine(2) = %q", line)
	}
	if line := fs.Get(id).GetLine(9); line != "" {
		t.Errorf("GetLine past the end = %q", line)
	}
}

func TestNormalisation(t *testing.T) {
	out, bom := removeBOM([]byte("\xEF\xBB\xBFx"))
	if !bom || string(out) != "x" {
		t.Fatalf("removeBOM = %q,%v", out, bom)
	}
	out, crlf := normalizeCRLF([]byte("a\r\nb\rc"))
	if !crlf || string(out) != "a\nb\rc" {
		t.Fatalf("normalizeCRLF = %q,%v", out, crlf)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	if got := a.Cover(Span{File: 1, Start: 2, End: 6}); got != (Span{File: 1, Start: 2, End: 8}) {
		t.Fatalf("cover = %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 20}); got != a {
		t.Fatalf("cross-file cover changed the span: %v", got)
	}
	if got := a.Sub(1, 3); got != (Span{File: 1, Start: 5, End: 7}) {
		t.Fatalf("sub = %v", got)
	}
}
