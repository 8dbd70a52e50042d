package project

import (
	"cmp"
	"slices"

	"retype/internal/cfile"
	"retype/internal/schema"
	"retype/internal/source"
)

// CallMeta is one call-site instance of another function: a variable
// written callee<N> in the caller's constraints.
type CallMeta struct {
	Callee   string
	Instance uint32
	Span     source.Span // first constraint mentioning the instance
}

// FunctionMeta describes a function for call ordering and caching.
type FunctionMeta struct {
	Name        string
	Span        source.Span
	Calls       []CallMeta // by callee, then instance
	ContentHash Digest     // body only
	ResultHash  Digest     // body, configuration and callee results
}

// Callees returns the distinct callee names in order.
func (m FunctionMeta) Callees() []string {
	var out []string
	for _, c := range m.Calls {
		if len(out) == 0 || out[len(out)-1] != c.Callee {
			out = append(out, c.Callee)
		}
	}
	return out
}

// FromFunction collects the metadata of a parsed function.
func FromFunction(f *cfile.Function) FunctionMeta {
	meta := FunctionMeta{
		Name:        f.Name,
		Span:        f.Span,
		ContentHash: Sum([]byte(f.Fingerprint())),
	}
	type key struct {
		name string
		id   uint32
	}
	seen := map[key]bool{}
	note := func(tv schema.TypeVariable, sp source.Span) {
		if tv.Primitive || tv.Instance == 0 {
			return
		}
		k := key{tv.Name, tv.Instance}
		if seen[k] {
			return
		}
		seen[k] = true
		meta.Calls = append(meta.Calls, CallMeta{Callee: tv.Name, Instance: tv.Instance, Span: sp})
	}
	for _, c := range f.Constraints {
		note(c.Sub, c.Span)
		note(c.Sup, c.Span)
	}
	for _, a := range f.Arith {
		note(a.Left, a.Span)
		note(a.Right, a.Span)
		note(a.Result, a.Span)
	}
	slices.SortFunc(meta.Calls, func(a, b CallMeta) int {
		if c := cmp.Compare(a.Callee, b.Callee); c != 0 {
			return c
		}
		return cmp.Compare(a.Instance, b.Instance)
	})
	return meta
}
