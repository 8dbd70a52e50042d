package driver

import (
	"context"
	"strconv"

	"retype/internal/diag"
	"retype/internal/source"
	"retype/internal/trace"
)

// CheckResult is the outcome of parsing and linking without solving.
type CheckResult struct {
	Files     *source.FileSet
	Functions []string
	Waves     [][]string
	Bag       *diag.Bag
}

// Check parses srcs and links calls, reporting what Solve would report
// before the first function is solved.
func Check(ctx context.Context, srcs []Source, opts Options) *CheckResult {
	sp := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "check", trace.CurrentSpan(ctx))
	fs := source.NewFileSet()
	bag := diag.NewBag(opts.maxDiagnostics())
	loaded := parseSources(fs, srcs, bag)
	external := loadSummaries(fs, opts.Summaries, opts.Config.GraphOptions(), bag)
	jobs, _, idx, topo := plan(loaded, external, opts)

	out := &CheckResult{Files: fs, Bag: bag}
	for _, j := range jobs {
		if !j.dup {
			out.Functions = append(out.Functions, j.meta.Name)
		}
		bag.Merge(j.bag)
	}
	for _, wave := range topo.Waves() {
		names := make([]string, len(wave))
		for i, id := range wave {
			names[i] = idx.IDToName[int(id)]
		}
		out.Waves = append(out.Waves, names)
	}
	bag.Sort()
	bag.Dedup()
	sp.WithExtra("functions", strconv.Itoa(len(out.Functions))).End("")
	return out
}
