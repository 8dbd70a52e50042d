// Package driver runs the solve pipeline over constraint files: parse,
// order functions by their calls, then saturate, simplify and sketch each
// function with callee summaries instantiated at every call site.
package driver

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"retype/internal/diag"
	"retype/internal/observ"
	"retype/internal/project"
	"retype/internal/project/dag"
	"retype/internal/source"
	"retype/internal/trace"
)

// Result is the outcome of a solve run.
type Result struct {
	Files *source.FileSet
	// Functions are in input order.
	Functions []*FunctionResult
	// Waves lists function names by solve wave: callees come first, and a
	// recursive call group forms one wave.
	Waves [][]string
	// Bag holds every diagnostic of the run, sorted.
	Bag *diag.Bag
}

// Function looks a result up by name.
func (r *Result) Function(name string) (*FunctionResult, bool) {
	for _, f := range r.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// HasErrors reports an error diagnostic anywhere in the run.
func (r *Result) HasErrors() bool { return r.Bag.HasErrors() }

// Solve reads the constraint files at paths and solves every function.
func Solve(ctx context.Context, paths []string, opts Options) (*Result, error) {
	bag := diag.NewBag(opts.maxDiagnostics())
	srcs := ReadSources(paths, bag)
	res, err := SolveSources(ctx, srcs, opts)
	if res != nil {
		res.Bag.Merge(bag)
		res.Bag.Sort()
	}
	return res, err
}

// SolveSources solves in-memory constraint files. The error is non-nil only
// when ctx is cancelled; everything else is a diagnostic.
func SolveSources(ctx context.Context, srcs []Source, opts Options) (*Result, error) {
	tracer := trace.FromContext(ctx)
	run := trace.Begin(tracer, trace.ScopeDriver, "solve", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, run.ID())
	if opts.Timer == nil {
		opts.Timer = observ.NewTimer()
	}
	timer := opts.Timer
	fs := source.NewFileSet()
	bag := diag.NewBag(opts.maxDiagnostics())
	out := &Result{Files: fs, Bag: bag}

	phase := timer.Begin("parse")
	parse := trace.Begin(tracer, trace.ScopePass, "parse", run.ID())
	loaded := parseSources(fs, srcs, bag)
	callees := newCalleeCache(len(loaded))
	external := loadSummaries(fs, opts.Summaries, opts.Config.GraphOptions(), bag)
	for _, name := range sortedKeys(external) {
		callees.put(name, external[name])
	}
	parse.WithExtra("functions", fmt.Sprint(len(loaded))).End("")
	timer.End(phase, fmt.Sprintf("%d functions", len(loaded)))

	phase = timer.Begin("link")
	link := trace.Begin(tracer, trace.ScopePass, "link", run.ID())
	jobs, slots, idx, topo := plan(loaded, external, opts)
	link.WithExtra("waves", fmt.Sprint(len(topo.Waves()))).End("")
	timer.End(phase, "")

	byID := make(map[dag.FunctionID]*job, len(jobs))
	for _, j := range jobs {
		if !j.dup {
			byID[idx.NameToID[j.meta.Name]] = j
		}
	}
	results := make(map[*job]*FunctionResult, len(jobs))

	phase = timer.Begin("solve")
	r := newRunner(opts, callees)
	for n, wave := range topo.Waves() {
		if err := ctx.Err(); err != nil {
			run.End("cancelled")
			return nil, err
		}
		var names []string
		var todo []*job
		for _, id := range wave {
			if j, ok := byID[id]; ok {
				todo = append(todo, j)
				names = append(names, j.meta.Name)
			}
		}
		out.Waves = append(out.Waves, names)
		solved, err := r.runWave(ctx, n, todo)
		if err != nil {
			run.End("cancelled")
			return nil, err
		}
		for i, j := range todo {
			results[j] = solved[i]
			if solved[i].Err != nil {
				slot := &slots[int(idx.NameToID[j.meta.Name])]
				slot.Broken = true
				slot.FirstErr = firstError(j.solveItems())
			}
		}
	}
	dag.ReportBrokenCallees(idx, slots)
	timer.End(phase, fmt.Sprintf("%d waves", len(out.Waves)))

	for _, j := range jobs {
		if res, ok := results[j]; ok {
			out.Functions = append(out.Functions, res)
		}
		bag.Merge(j.bag)
	}
	bag.Sort()
	bag.Dedup()
	run.End("ok")
	return out, nil
}

// plan builds one job per defined function, links calls and orders the
// jobs into waves. Duplicate definitions across files keep the first.
func plan(loaded []loadedFunction, external map[string]calleeEntry, opts Options) ([]*job, []dag.FunctionSlot, dag.FunctionIndex, *dag.Topo) {
	metas := make([]project.FunctionMeta, len(loaded))
	nodes := make([]dag.FunctionNode, len(loaded))
	bags := make([]*diag.Bag, len(loaded))
	for i, lf := range loaded {
		metas[i] = project.FromFunction(lf.fn)
		bags[i] = diag.NewBag(opts.maxDiagnostics())
		nodes[i] = dag.FunctionNode{Meta: metas[i], Reporter: diag.BagReporter{Bag: bags[i]}}
	}
	idx := dag.BuildIndex(metas)
	isExternal := func(name string) bool {
		_, ok := external[name]
		return ok
	}
	g, slots := dag.BuildGraph(idx, nodes, isExternal)
	topo := dag.ToposortKahn(g)
	dag.ReportCycles(idx, slots, topo)

	group := map[dag.FunctionID]map[string]bool{}
	for _, members := range topo.Recursive {
		set := make(map[string]bool, len(members))
		for _, id := range members {
			set[idx.IDToName[int(id)]] = true
		}
		for _, id := range members {
			group[id] = set
		}
	}

	var jobs []*job
	claimed := map[string]bool{}
	for i, lf := range loaded {
		name := metas[i].Name
		if claimed[name] {
			// Reported by BuildGraph; its diagnostics still surface.
			jobs = append(jobs, &job{fn: lf.fn, path: lf.path, meta: metas[i], bag: bags[i], dup: true})
			continue
		}
		claimed[name] = true
		id := idx.NameToID[name]
		jobs = append(jobs, &job{
			fn:     lf.fn,
			path:   lf.path,
			meta:   metas[i],
			bag:    bags[i],
			group:  group[id],
			called: len(g.Edges[int(id)]) > 0,
		})
	}
	return jobs, slots, idx, topo
}

// runWave solves the jobs of one wave in parallel. Jobs in a wave never
// instantiate each other.
func (r *runner) runWave(ctx context.Context, n int, todo []*job) ([]*FunctionResult, error) {
	tracer := trace.FromContext(ctx)
	sp := trace.Begin(tracer, trace.ScopePass, fmt.Sprintf("wave %d", n), trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, sp.ID())
	for _, j := range todo {
		emit(r.opts.Progress, j.meta.Name, StageSolve, StatusQueued, nil, 0)
	}
	out := make([]*FunctionResult, len(todo))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.jobs())
	for i, j := range todo {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res := r.solveFunction(ctx, j)
			status := StatusDone
			switch {
			case res.Err != nil:
				status = StatusError
			case res.Cached:
				status = StatusCached
			}
			emit(r.opts.Progress, j.meta.Name, StageSolve, status, res.Err, time.Since(start))
			out[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		sp.End("cancelled")
		return nil, err
	}
	sp.WithExtra("functions", fmt.Sprint(len(todo))).End("")
	return out, nil
}

func (r *runner) jobs() int {
	switch {
	case r.opts.Jobs > 0:
		return r.opts.Jobs
	case r.opts.Config.Solve.Jobs > 0:
		return r.opts.Config.Solve.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// AppendTimings adds the run's phase timings to the result as an info
// diagnostic.
func AppendTimings(res *Result, timer *observ.Timer, path string) {
	if res == nil || timer == nil {
		return
	}
	report := timer.Report()
	appendTimingDiagnostic(res.Bag, timingPayload{Kind: "solve", Path: path, TotalMS: report.TotalMS, Phases: report.Phases})
}
