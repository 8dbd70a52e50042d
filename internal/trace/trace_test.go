package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)

	root := Begin(tr, ScopePass, "solve", 0)
	fn := Begin(tr, ScopeFunction, "fn:main", root.ID())
	Point(tr, ScopeNode, "sketch", fn.ID(), "A", nil)
	Point(tr, ScopeFunction, "round", fn.ID(), "", map[string]string{"round": "1", "added": "3"})
	fn.End("")
	root.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), buf.String())
	}
	if strings.Contains(buf.String(), "sketch") {
		t.Errorf("node scope leaked at detail level:\n%s", buf.String())
	}
	if !strings.HasSuffix(lines[2], "• round {added=3, round=1}") {
		t.Errorf("extra keys not sorted: %q", lines[2])
	}
	if !strings.HasSuffix(lines[4], "← solve (ok)") {
		t.Errorf("last line %q", lines[4])
	}
}

func TestInertSpan(t *testing.T) {
	s := Begin(Nop, ScopeDriver, "x", 7)
	if s.ID() != 0 {
		t.Fatalf("nop span has id %d", s.ID())
	}
	s.WithExtra("k", "v")
	if s.End("") < 0 {
		t.Fatal("negative duration")
	}
}

func TestRingWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopeNode, name, 0, "", nil)
	}
	var got []string
	for _, ev := range r.Snapshot() {
		got = append(got, ev.Name)
	}
	if strings.Join(got, "") != "cde" {
		t.Fatalf("snapshot %v, want [c d e]", got)
	}
}

func TestErrorLevelRingRecordsEverything(t *testing.T) {
	r := NewRingTracer(8, LevelError)
	Begin(r, ScopeNode, "deep", 0).End("")
	if n := len(r.Snapshot()); n != 2 {
		t.Fatalf("ring kept %d events, want 2", n)
	}
}

func TestNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, Format: FormatNDJSON, RingSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopeDriver, "retype solve", 0).WithExtra("files", "2").End("")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	dec := json.NewDecoder(&buf)
	var kinds []string
	for dec.More() {
		var ev jsonEvent
		if err := dec.Decode(&ev); err != nil {
			t.Fatal(err)
		}
		kinds = append(kinds, ev.Kind)
		if ev.Kind == "end" && ev.Extra["files"] != "2" {
			t.Errorf("end event lost extra: %+v", ev)
		}
	}
	if strings.Join(kinds, ",") != "begin,end" {
		t.Fatalf("kinds %v", kinds)
	}
	if m, ok := tr.(*MultiTracer); !ok || len(m.Ring().Snapshot()) != 2 {
		t.Fatalf("ring half of %T did not record", tr)
	}
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != Nop {
		t.Fatal("empty context should give Nop")
	}
	r := NewRingTracer(1, LevelDebug)
	ctx = WithSpan(WithTracer(ctx, r), 42)
	if FromContext(ctx) != r || CurrentSpan(ctx) != 42 {
		t.Fatal("context lost tracer or span")
	}
}

func TestParse(t *testing.T) {
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Errorf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Error("ParseMode accepted disk")
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Errorf("ParseFormat = %v, %v", f, err)
	}
}
