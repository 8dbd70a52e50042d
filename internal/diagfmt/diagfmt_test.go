package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"retype/internal/diag"
	"retype/internal/source"
)

func fixture() (*diag.Bag, *source.FileSet) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/home/user/project")
	id := fs.AddVirtual("/home/user/project/fns/f.rt", []byte("fn f {\n  A <= x.lod4\n}\n"))
	bag := diag.NewBag(10)
	d := diag.NewError(diag.ParseBadLabel, source.Span{File: id, Start: 16, End: 20}, "unknown field label").
		WithNote(source.Span{File: id, Start: 0, End: 4}, "in function f")
	bag.Add(d)
	return bag, fs
}

func TestPathModes(t *testing.T) {
	bag, fs := fixture()
	tests := []struct {
		mode PathMode
		want string
	}{
		{PathModeAbsolute, "/home/user/project/fns/f.rt:2:10:"},
		{PathModeRelative, "fns/f.rt:2:10:"},
		{PathModeBasename, "f.rt:2:10:"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode})
		if first := strings.SplitN(buf.String(), " ", 2)[0]; first != tt.want {
			t.Errorf("mode %d: location %q, want %q", tt.mode, first, tt.want)
		}
	}
}

func TestPrettyUnderline(t *testing.T) {
	bag, fs := fixture()
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	want := "f.rt:2:10: error PAR1002: unknown field label\n" +
		"  2 |   A <= x.lod4\n" +
		"    |          ^~~~\n" +
		"f.rt:1:1: note: in function f\n" +
		"  1 | fn f {\n" +
		"    | ^~~~\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("pretty output (-want +got):\n%s", diff)
	}
}

func TestUnderlineWideRunes(t *testing.T) {
	// "变量 " is five display columns wide but seven bytes.
	line := "变量 <= x"
	got := underline(line, 8, source.LineCol{Line: 1, Col: 10}, 1)
	if got != "     ^~" {
		t.Fatalf("underline = %q", got)
	}
}

func TestJSON(t *testing.T) {
	bag, fs := fixture()
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	want := DiagnosticsOutput{
		Count: 1,
		Diagnostics: []DiagnosticJSON{{
			Severity: "error",
			Code:     "PAR1002",
			Message:  "unknown field label",
			Location: LocationJSON{File: "f.rt", StartByte: 16, EndByte: 20, StartLine: 2, StartCol: 10, EndLine: 2, EndCol: 14},
			Notes: []NoteJSON{{
				Message:  "in function f",
				Location: LocationJSON{File: "f.rt", StartByte: 0, EndByte: 4, StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 5},
			}},
		}},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("json (-want +got):\n%s", diff)
	}
}
