package driver

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"retype/internal/cfile"
	"retype/internal/cgraph"
	"retype/internal/diag"
	"retype/internal/project"
	"retype/internal/source"
	"retype/internal/summary"
)

// Source is an in-memory constraint file.
type Source struct {
	Path    string
	Content []byte
}

// ReadSources reads every path. An unreadable file is reported and skipped.
func ReadSources(paths []string, bag *diag.Bag) []Source {
	out := make([]Source, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			reportIO(bag, p, err)
			continue
		}
		out = append(out, Source{Path: p, Content: data})
	}
	return out
}

func reportIO(bag *diag.Bag, path string, err error) {
	diag.ReportError(diag.BagReporter{Bag: bag}, diag.IOLoadFileError, source.Span{}, fmt.Sprintf("read %s: %v", path, err)).Emit()
}

// loadedFunction is a parsed function and the file it came from.
type loadedFunction struct {
	fn   *cfile.Function
	path string
}

// parseSources adds every source to fs and parses it. Diagnostics go to bag.
func parseSources(fs *source.FileSet, srcs []Source, bag *diag.Bag) []loadedFunction {
	var out []loadedFunction
	rep := diag.BagReporter{Bag: bag}
	for _, src := range srcs {
		id := fs.Add(src.Path, src.Content, 0)
		doc := cfile.Parse(fs.Get(id), rep)
		for _, fn := range doc.Functions {
			out = append(out, loadedFunction{fn: fn, path: src.Path})
		}
	}
	return out
}

// loadSummaries reads summary files into solved callee graphs keyed by
// function name. The first summary of a name wins.
func loadSummaries(fs *source.FileSet, paths []string, opts cgraph.Options, bag *diag.Bag) map[string]calleeEntry {
	out := map[string]calleeEntry{}
	rep := diag.BagReporter{Bag: bag}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			reportIO(bag, p, err)
			continue
		}
		id := fs.Add(p, data, 0)
		for _, s := range summary.Parse(fs.Get(id), rep) {
			if _, dup := out[s.Name]; dup {
				continue
			}
			g, err := summary.ToGraph(s, opts)
			if err != nil {
				diag.ReportError(rep, diag.GraphInvariant, source.Span{File: id}, err.Error()).Emit()
				continue
			}
			var text strings.Builder
			if err := summary.Write(&text, s); err != nil {
				continue
			}
			out[s.Name] = calleeEntry{hash: project.Sum([]byte(text.String())), graph: g}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func joinSorted(ss []string) string {
	c := slices.Clone(ss)
	slices.Sort(c)
	return strings.Join(c, " ")
}
