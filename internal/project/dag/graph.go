package dag

import (
	"fmt"
	"slices"
	"strings"

	"retype/internal/diag"
	"retype/internal/project"
	"retype/internal/source"
)

// Graph is the call graph with edges from callee to caller, so that a
// topological order lists callees first.
type Graph struct {
	Edges   [][]FunctionID // Edges[callee] = callers
	Indeg   []int          // counts only present callees
	Present []bool         // defined in the input, not only called
}

// FunctionNode is a parsed function handed to BuildGraph.
type FunctionNode struct {
	Meta     project.FunctionMeta
	Reporter diag.Reporter
	Broken   bool
	FirstErr *diag.Diagnostic
}

// FunctionSlot is the per-ID view of the graph.
type FunctionSlot struct {
	Meta     project.FunctionMeta
	Reporter diag.Reporter
	Present  bool
	Broken   bool
	FirstErr *diag.Diagnostic
}

// BuildGraph links callers to callees. A second definition of a name is
// reported and dropped. Calls to names that are neither defined nor known
// to external are reported as warnings.
func BuildGraph(idx FunctionIndex, nodes []FunctionNode, external func(name string) bool) (Graph, []FunctionSlot) {
	n := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]FunctionID, n),
		Indeg:   make([]int, n),
		Present: make([]bool, n),
	}
	slots := make([]FunctionSlot, n)
	for i, name := range idx.IDToName {
		slots[i].Meta.Name = name
	}

	for _, node := range nodes {
		meta := node.Meta
		id, ok := idx.NameToID[meta.Name]
		if !ok {
			continue
		}
		slot := &slots[int(id)]
		if slot.Present {
			if node.Reporter != nil {
				var notes []diag.Note
				if slot.Meta.Span != (source.Span{}) {
					notes = append(notes, diag.Note{Span: slot.Meta.Span, Msg: fmt.Sprintf("previous definition of %q", meta.Name)})
				}
				node.Reporter.Report(diag.DocDuplicateFunction, diag.SevError, meta.Span,
					fmt.Sprintf("fn %s is defined more than once", meta.Name), notes)
			}
			continue
		}
		slot.Meta = meta
		slot.Reporter = node.Reporter
		slot.Present = true
		slot.Broken = node.Broken
		slot.FirstErr = node.FirstErr
		g.Present[int(id)] = true
	}

	for caller := range slots {
		slot := &slots[caller]
		if !slot.Present {
			continue
		}
		seen := make(map[FunctionID]bool, len(slot.Meta.Calls))
		for _, call := range slot.Meta.Calls {
			callee := idx.NameToID[call.Callee]
			if seen[callee] {
				continue
			}
			seen[callee] = true
			if !g.Present[int(callee)] {
				if (external == nil || !external(call.Callee)) && slot.Reporter != nil {
					slot.Reporter.Report(diag.GraphUnknownCall, diag.SevWarning, call.Span,
						fmt.Sprintf("%s<%d> names no function or summary; its constraints stay local to %s",
							call.Callee, call.Instance, slot.Meta.Name), nil)
				}
				continue
			}
			g.Edges[int(callee)] = append(g.Edges[int(callee)], toID(caller))
			g.Indeg[caller]++
		}
	}
	for i := range g.Edges {
		slices.Sort(g.Edges[i])
	}
	return g, slots
}

// ReportCycles warns on every member of a recursive call group.
func ReportCycles(idx FunctionIndex, slots []FunctionSlot, topo *Topo) {
	for _, group := range topo.Recursive {
		names := make([]string, len(group))
		for i, id := range group {
			names[i] = idx.IDToName[int(id)]
		}
		summary := strings.Join(names, ", ")
		for _, id := range group {
			slot := slots[int(id)]
			if slot.Reporter == nil {
				continue
			}
			msg := fmt.Sprintf("fn %s is part of a recursive call group {%s}; calls inside the group are not instantiated",
				slot.Meta.Name, summary)
			slot.Reporter.Report(diag.GraphCallCycle, diag.SevWarning, slot.Meta.Span, msg, nil)
		}
	}
}

// ReportBrokenCallees warns at each call of a function that failed.
func ReportBrokenCallees(idx FunctionIndex, slots []FunctionSlot) {
	for i := range slots {
		from := &slots[i]
		if !from.Present || from.Reporter == nil {
			continue
		}
		emitted := make(map[string]bool, len(from.Meta.Calls))
		for _, call := range from.Meta.Calls {
			to := slots[int(idx.NameToID[call.Callee])]
			if !to.Broken || emitted[call.Callee] {
				continue
			}
			emitted[call.Callee] = true
			var notes []diag.Note
			if to.FirstErr != nil {
				notes = append(notes, diag.Note{
					Span: to.FirstErr.Primary,
					Msg:  "first error in callee: " + to.FirstErr.Message,
				})
			}
			from.Reporter.Report(diag.GraphCalleeFailed, diag.SevWarning, call.Span,
				fmt.Sprintf("fn %s has errors; calls to it are not instantiated", call.Callee), notes)
		}
	}
}
