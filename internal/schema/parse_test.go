package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFieldLabelRoundTrip(t *testing.T) {
	labels := []FieldLabel{
		In("0"),
		In("stack0"),
		Out(""),
		Out("eax"),
		Offset(0),
		Offset(-16),
		Offset(8, ArrayAccess{Stride: 4}),
		Offset(4, ArrayAccess{Stride: 4, Bound: Bound{Kind: BoundFixed, Count: 10}}, ArrayAccess{Stride: 40}),
		Offset(0, ArrayAccess{Stride: 1, Bound: Bound{Kind: BoundNulTerminated}}),
		Offset(2, ArrayAccess{Stride: 8, Bound: Bound{Kind: BoundUnbounded}}),
		Load(4),
		Load(PointerSized),
		Store(1),
		Store(PointerSized),
	}
	for _, l := range labels {
		text := l.String()
		got, rest, err := ParseFieldLabel(text)
		if err != nil {
			t.Fatalf("ParseFieldLabel(%q): %v", text, err)
		}
		if rest != "" {
			t.Fatalf("ParseFieldLabel(%q): leftover %q", text, rest)
		}
		if !got.Equal(l) {
			t.Fatalf("round trip of %q gave %q", text, got.String())
		}
	}
}

func TestTypeVariableRoundTrip(t *testing.T) {
	vars := []TypeVariable{
		Var("x"),
		Var("F", In("stack0"), Load(4)),
		Var("__temp_0", Offset(4), Load(PointerSized)),
		Prim("int"),
		Prim("FileDescriptor"),
		Var("memcpy", Out("eax")).WithInstance(3),
		Var("𝛿", Store(8)),
	}
	for _, tv := range vars {
		text := tv.String()
		got, err := ParseVar(text)
		if err != nil {
			t.Fatalf("ParseVar(%q): %v", text, err)
		}
		if diff := cmp.Diff(tv.String(), got.String()); diff != "" || !got.Equal(tv) {
			t.Fatalf("round trip of %q mismatch (-want +got):\n%s", text, diff)
		}
	}
}

func TestConstraintRoundTrip(t *testing.T) {
	inputs := []string{
		"A <= B",
		"A ⊑ x.store4",
		"y.load4 <= B",
		"#SuccessZ <= F.out_eax",
		"x.@2 <= C",
		"f<2>.in_0 <= #int",
	}
	for _, in := range inputs {
		c, err := ParseConstraint(in)
		if err != nil {
			t.Fatalf("ParseConstraint(%q): %v", in, err)
		}
		for _, unicode := range []bool{false, true} {
			text := c.Format(unicode)
			back, err := ParseConstraint(text)
			if err != nil {
				t.Fatalf("reparse %q: %v", text, err)
			}
			if back.Compare(c) != 0 {
				t.Fatalf("round trip of %q gave %q", text, back.String())
			}
		}
	}
}

func TestParseConstraintStructure(t *testing.T) {
	c, err := ParseConstraint("F.in_stack0.load4 ⊑ __temp_0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Subtype(Var("F", In("stack0"), Load(4)), Var("__temp_0"))
	if c.Compare(want) != 0 {
		t.Fatalf("got %s, want %s", c, want)
	}
	if got := PathVariance(c.Sub.Labels); got != Contravariant {
		t.Fatalf("path variance = %v, want contravariant", got)
	}
}

func TestParseErrorsKeepRemainder(t *testing.T) {
	cases := []struct {
		in   string
		rest string
	}{
		{in: "x.bogus", rest: "bogus"},
		{in: "x.load", rest: ""},
		{in: "x.load0", rest: "0"},
		{in: "x.@", rest: ""},
		{in: "x.@4+8[", rest: ""},
	}
	for _, tc := range cases {
		_, _, err := ParseTypeVariable(tc.in)
		if err == nil {
			t.Fatalf("ParseTypeVariable(%q): expected error", tc.in)
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("ParseTypeVariable(%q): error %T is not a *ParseError", tc.in, err)
		}
		if perr.Rest != tc.rest {
			t.Fatalf("ParseTypeVariable(%q): rest = %q, want %q", tc.in, perr.Rest, tc.rest)
		}
	}

	if _, err := ParseConstraint("A B"); err == nil {
		t.Fatalf("expected missing operator error")
	}
	if _, err := ParseConstraint("A <= B junk"); err == nil {
		t.Fatalf("expected trailing input error")
	}
}

func TestTypeVariableOrder(t *testing.T) {
	a := Var("x", Load(4))
	b := Var("x", Store(4))
	if a.Compare(b) >= 0 {
		t.Fatalf("load should sort before store")
	}
	if Prim("int").Compare(Var("a")) >= 0 {
		t.Fatalf("primitives sort first")
	}
	if Var("x").Compare(Var("x").WithInstance(1)) >= 0 {
		t.Fatalf("uninstantiated sorts before instance 1")
	}
	parent, last, ok := a.Parent()
	if !ok || !last.Equal(Load(4)) || !parent.Equal(Var("x")) {
		t.Fatalf("Parent() = %v %v %v", parent, last, ok)
	}
}

func TestCombine(t *testing.T) {
	if Combine(Covariant, Covariant) != Covariant ||
		Combine(Contravariant, Contravariant) != Covariant ||
		Combine(Covariant, Contravariant) != Contravariant ||
		Combine(Contravariant, Covariant) != Contravariant {
		t.Fatalf("combine table is wrong")
	}
	if Covariant.Invert() != Contravariant {
		t.Fatalf("invert is wrong")
	}
}

func TestEdgeLabelRoundTrip(t *testing.T) {
	labels := []EdgeLabel{
		One(),
		Recall(Load(4)),
		Forget(Offset(8)),
		RecallBase(Var("A"), Covariant),
		ForgetBase(Prim("int"), Contravariant),
	}
	for _, l := range labels {
		got, err := ParseEdgeLabel(l.String())
		if err != nil {
			t.Fatalf("ParseEdgeLabel(%q): %v", l.String(), err)
		}
		if !got.Equal(l) {
			t.Fatalf("round trip of %q gave %q", l.String(), got.String())
		}
	}
}

func TestParseArith(t *testing.T) {
	c, err := ParseArith("sub x.@4 y r // 0x401000")
	if err != nil {
		t.Fatal(err)
	}
	want := ArithConstraint{Kind: ArithSub, Left: Var("x", Offset(4)), Right: Var("y"), Result: Var("r"), Origin: "0x401000"}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	back, err := ParseArith(c.String())
	if err != nil || back.Compare(c) != 0 || back.Origin != c.Origin {
		t.Fatalf("round trip of %q gave %v, %v", c.String(), back, err)
	}
	for _, bad := range []string{"mul a b c", "add a b", "add a b c d"} {
		if _, err := ParseArith(bad); err == nil {
			t.Errorf("%q should not parse", bad)
		}
	}
}
