package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"retype/internal/diagfmt"
	"retype/internal/driver"
	"retype/internal/project"
	"retype/internal/schema"
	"retype/internal/sketch"
)

type statsOutput struct {
	Rounds     int `json:"rounds" yaml:"rounds"`
	EdgesAdded int `json:"edges_added" yaml:"edges_added"`
	PNISteps   int `json:"pni_steps" yaml:"pni_steps"`
}

type functionOutput struct {
	Name        string       `json:"name" yaml:"name"`
	File        string       `json:"file" yaml:"file"`
	Interesting []string     `json:"interesting" yaml:"interesting"`
	Constraints []string     `json:"constraints" yaml:"constraints"`
	Calls       []string     `json:"calls,omitempty" yaml:"calls,omitempty"`
	Cached      bool         `json:"cached,omitempty" yaml:"cached,omitempty"`
	Stats       statsOutput  `json:"stats" yaml:"stats"`
	Sketches    []sketch.Doc `json:"sketches,omitempty" yaml:"sketches,omitempty"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
}

type solveOutput struct {
	Functions   []functionOutput          `json:"functions" yaml:"functions"`
	Waves       [][]string                `json:"waves" yaml:"waves"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics" yaml:"-"`
}

func buildOutput(res *driver.Result, unicode bool) solveOutput {
	out := solveOutput{Waves: res.Waves}
	for _, fn := range res.Functions {
		fo := functionOutput{
			Name:   fn.Name,
			File:   fn.Path,
			Cached: fn.Cached,
			Stats:  statsOutput{Rounds: fn.Stats.Rounds, EdgesAdded: fn.Stats.EdgesAdded, PNISteps: fn.Stats.PNI.Steps},
		}
		for _, tv := range fn.Interesting {
			fo.Interesting = append(fo.Interesting, tv.String())
		}
		for _, c := range fn.Constraints {
			fo.Constraints = append(fo.Constraints, c.Format(unicode))
		}
		for _, call := range fn.Calls {
			fo.Calls = append(fo.Calls, fmt.Sprintf("%s<%d>", call.Callee, call.Instance))
		}
		for _, s := range fn.Sketches {
			fo.Sketches = append(fo.Sketches, s.Doc())
		}
		if fn.Err != nil {
			fo.Error = fn.Err.Error()
		}
		out.Functions = append(out.Functions, fo)
	}
	out.Diagnostics = diagfmt.BuildDiagnosticsOutput(res.Bag, res.Files, diagfmt.JSONOpts{IncludePositions: true, IncludeNotes: true})
	return out
}

// writeResult renders res in format. Text output lists each function with
// its constraints aligned on the subtype operator.
func writeResult(w io.Writer, res *driver.Result, format string, unicode bool) error {
	switch format {
	case project.FormatJSON:
		return writeJSON(w, buildOutput(res, unicode))
	case project.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(buildOutput(res, unicode)); err != nil {
			return err
		}
		return enc.Close()
	}
	for i, fn := range res.Functions {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeFunctionText(w, fn, unicode)
	}
	return nil
}

func writeFunctionText(w io.Writer, fn *driver.FunctionResult, unicode bool) {
	header := "fn " + fn.Name
	if fn.Cached {
		header += " (cached)"
	}
	fmt.Fprintln(w, header)
	if fn.Err != nil {
		fmt.Fprintf(w, "  error: %v\n", fn.Err)
		return
	}
	fmt.Fprintln(w, alignConstraints(fn.Constraints, unicode, "  "))
	for _, s := range fn.Sketches {
		fmt.Fprint(w, indent(s.String(), "  "))
	}
}

// alignConstraints pads the left-hand sides to a common display width.
func alignConstraints(cs []schema.SubTypeConstraint, unicode bool, prefix string) string {
	if len(cs) == 0 {
		return prefix + "(no constraints)"
	}
	op := "<="
	if unicode {
		op = "⊑"
	}
	width := 0
	for _, c := range cs {
		width = max(width, runewidth.StringWidth(c.Sub.String()))
	}
	lines := make([]string, len(cs))
	for i, c := range cs {
		lines[i] = prefix + runewidth.FillRight(c.Sub.String(), width) + " " + op + " " + c.Sup.String()
	}
	return strings.Join(lines, "\n")
}

func indent(text, prefix string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(l)
	}
	return b.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
