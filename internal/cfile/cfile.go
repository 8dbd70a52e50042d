// Package cfile reads constraint files: one or more functions, each with an
// optional interesting set, subtype constraints and arithmetic constraints.
//
//	// comment
//	fn NAME {
//	  interesting A B
//	  A <= x.store4
//	  add x y z
//	}
//
// Lines outside any fn block belong to a function named after the file.
package cfile

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"slices"
	"strings"

	"retype/internal/schema"
	"retype/internal/source"
)

// Constraint is a subtype constraint with the span of its line.
type Constraint struct {
	schema.SubTypeConstraint
	Span source.Span
}

// Arith is an arithmetic constraint with the span of its line.
type Arith struct {
	schema.ArithConstraint
	Span source.Span
}

// Function is one fn block.
type Function struct {
	Name        string
	Span        source.Span
	Interesting []schema.TypeVariable
	Constraints []Constraint
	Arith       []Arith
}

// Document is a parsed constraint file.
type Document struct {
	File      *source.File
	Functions []*Function
}

// Function looks a function up by name.
func (d *Document) Function(name string) (*Function, bool) {
	for _, f := range d.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Subtypes returns the subtype constraints in file order.
func (f *Function) Subtypes() []schema.SubTypeConstraint {
	out := make([]schema.SubTypeConstraint, len(f.Constraints))
	for i, c := range f.Constraints {
		out[i] = c.SubTypeConstraint
	}
	return out
}

// ArithConstraints returns the arithmetic constraints in file order.
func (f *Function) ArithConstraints() []schema.ArithConstraint {
	out := make([]schema.ArithConstraint, len(f.Arith))
	for i, a := range f.Arith {
		out[i] = a.ArithConstraint
	}
	return out
}

// Fingerprint hashes the function body independent of line order, so
// reordering constraints keeps cached results valid.
func (f *Function) Fingerprint() string {
	lines := make([]string, 0, len(f.Constraints)+len(f.Arith)+1)
	for _, c := range f.Constraints {
		lines = append(lines, c.String())
	}
	for _, a := range f.Arith {
		a.Origin = ""
		lines = append(lines, a.String())
	}
	slices.Sort(lines)
	lines = slices.Compact(lines)
	var vars []string
	for _, tv := range f.Interesting {
		vars = append(vars, tv.String())
	}
	slices.Sort(vars)
	lines = append(lines, "interesting "+strings.Join(vars, " "))
	sum := sha256.Sum256([]byte(f.Name + "\n" + strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// Vars returns the base variables used by the function's constraints.
func (f *Function) Vars() map[string]bool {
	seen := map[string]bool{}
	add := func(tv schema.TypeVariable) { seen[tv.Base().String()] = true }
	for _, c := range f.Constraints {
		add(c.Sub)
		add(c.Sup)
	}
	for _, a := range f.Arith {
		add(a.Left)
		add(a.Right)
		add(a.Result)
	}
	return seen
}

func defaultName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
