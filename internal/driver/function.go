package driver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"retype/internal/cfile"
	"retype/internal/cgraph"
	"retype/internal/diag"
	"retype/internal/pni"
	"retype/internal/project"
	"retype/internal/schema"
	"retype/internal/sketch"
	"retype/internal/source"
	"retype/internal/summary"
	"retype/internal/trace"
)

// FunctionResult is the outcome of solving one function.
type FunctionResult struct {
	Name        string
	Path        string
	Span        source.Span
	Meta        project.FunctionMeta
	Interesting []schema.TypeVariable
	Constraints []schema.SubTypeConstraint
	Sketches    []*sketch.Sketch
	// Summary is the saturated graph in summary format.
	Summary string
	// Graph is set with Options.KeepGraphs.
	Graph  *cgraph.Graph
	Stats  cgraph.Stats
	Calls  []project.CallMeta // call sites that were instantiated
	Cached bool
	Bag    *diag.Bag
	Err    error
}

// job is one function scheduled for solving.
type job struct {
	fn     *cfile.Function
	path   string
	meta   project.FunctionMeta
	bag    *diag.Bag
	group  map[string]bool // members of its recursive call group
	called bool            // some other function instantiates it
	mark   int             // bag length before the solve started
	dup    bool            // a later definition of an already defined name
}

// solveItems returns the diagnostics reported since the solve started.
func (j *job) solveItems() []diag.Diagnostic { return j.bag.Items()[j.mark:] }

func (j *job) inGroup(name string) bool { return j.group[name] }

// runner holds what every function solve shares.
type runner struct {
	opts      Options
	graphOpts cgraph.Options
	digest    project.Digest
	cfgVars   []schema.TypeVariable
	callees   *calleeCache
}

func newRunner(opts Options, callees *calleeCache) *runner {
	return &runner{
		opts:      opts,
		graphOpts: opts.Config.GraphOptions(),
		digest:    opts.Config.Digest(),
		cfgVars:   opts.Config.InterestingVars(),
		callees:   callees,
	}
}

// interestingFor picks, in order: the run override, the function's own
// interesting line, the configured set, and finally every uninstantiated
// base variable of the function.
func (r *runner) interestingFor(fn *cfile.Function) []schema.TypeVariable {
	switch {
	case len(r.opts.Interesting) > 0:
		return slices.Clone(r.opts.Interesting)
	case len(fn.Interesting) > 0:
		return slices.Clone(fn.Interesting)
	case len(r.cfgVars) > 0:
		return slices.Clone(r.cfgVars)
	}
	var out []schema.TypeVariable
	for _, name := range sortedKeys(fn.Vars()) {
		tv, err := schema.ParseVar(name)
		if err != nil || tv.Primitive || tv.Instance != 0 {
			continue
		}
		out = append(out, tv)
	}
	return out
}

func (r *runner) sketchVars(interesting []schema.TypeVariable) []schema.TypeVariable {
	out := slices.Clone(r.opts.Sketch)
	if r.opts.SketchAll {
		for _, tv := range interesting {
			if !slices.ContainsFunc(out, tv.Equal) {
				out = append(out, tv)
			}
		}
	}
	return out
}

func varNames(tvs []schema.TypeVariable) []string {
	out := make([]string, len(tvs))
	for i, tv := range tvs {
		out[i] = tv.String()
	}
	return out
}

func (r *runner) solveFunction(ctx context.Context, j *job) *FunctionResult {
	fn := j.fn
	res := &FunctionResult{Name: fn.Name, Path: j.path, Span: fn.Span, Meta: j.meta, Bag: j.bag}
	rep := diag.BagReporter{Bag: j.bag}
	j.mark = j.bag.Len()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeFunction, "fn "+fn.Name, trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span.ID())

	res.Interesting = r.interestingFor(fn)
	key := resultHash(j.meta, r.digest, varNames(res.Interesting), r.callees, j.inGroup)
	res.Meta.ResultHash = key

	g, cached := r.fromCache(ctx, j, res)
	if !cached {
		var err error
		g, err = r.solveFresh(ctx, j, res, rep)
		if err != nil {
			res.Err = err
			r.callees.put(fn.Name, calleeEntry{hash: key, broken: true, first: firstError(j.solveItems())})
			span.End("error")
			return res
		}
	}
	r.callees.put(fn.Name, calleeEntry{hash: key, graph: g})

	if vars := r.sketchVars(res.Interesting); len(vars) > 0 {
		if g == nil {
			res.Err = fmt.Errorf("fn %s: no graph to sketch", fn.Name)
			span.End("error")
			return res
		}
		r.sketch(ctx, j, res, g, vars, rep)
	}
	if r.opts.KeepGraphs {
		res.Graph = g
	}
	if res.Cached {
		span.End("cached")
	} else {
		span.End("ok")
	}
	return res
}

// solveFresh builds, saturates and simplifies the function graph.
func (r *runner) solveFresh(ctx context.Context, j *job, res *FunctionResult, rep diag.Reporter) (*cgraph.Graph, error) {
	fn := j.fn
	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx)

	emit(r.opts.Progress, fn.Name, StageLink, StatusWorking, nil, 0)
	start := time.Now()
	ingest := trace.Begin(tracer, trace.ScopeFunction, "ingest", parent)
	g, err := r.ingest(j, res, rep)
	ingest.WithExtra("calls", strconv.Itoa(len(res.Calls))).End("")
	r.opts.Timer.Add("ingest", time.Since(start))
	if err != nil {
		emit(r.opts.Progress, fn.Name, StageLink, StatusError, err, time.Since(start))
		return nil, err
	}
	emit(r.opts.Progress, fn.Name, StageLink, StatusDone, nil, time.Since(start))

	emit(r.opts.Progress, fn.Name, StageSolve, StatusWorking, nil, 0)
	start = time.Now()
	sat := trace.Begin(tracer, trace.ScopeFunction, "saturate", parent)
	g.OnRound(func(round, added int) {
		trace.Point(tracer, trace.ScopeNode, "round", sat.ID(), "", map[string]string{
			"round": strconv.Itoa(round),
			"added": strconv.Itoa(added),
		})
	})
	res.Stats = g.Solve()
	g.OnRound(nil)
	sat.WithExtra("rounds", strconv.Itoa(res.Stats.Rounds)).
		WithExtra("pni_steps", strconv.Itoa(res.Stats.PNI.Steps)).
		End(fmt.Sprintf("%d edges", res.Stats.EdgesAdded))
	r.opts.Timer.Add("saturate", time.Since(start))
	reportPNIConflicts(g, fn, rep)
	emit(r.opts.Progress, fn.Name, StageSolve, StatusDone, nil, time.Since(start))

	emit(r.opts.Progress, fn.Name, StageSimplify, StatusWorking, nil, 0)
	start = time.Now()
	simp := trace.Begin(tracer, trace.ScopeFunction, "simplify", parent)
	cs, err := g.Simplify(res.Interesting)
	r.opts.Timer.Add("simplify", time.Since(start))
	if err != nil {
		simp.End("error")
		reportSolveError(rep, fn, err)
		emit(r.opts.Progress, fn.Name, StageSimplify, StatusError, err, time.Since(start))
		return nil, err
	}
	res.Constraints = cs
	simp.WithExtra("constraints", strconv.Itoa(len(cs))).End("")
	emit(r.opts.Progress, fn.Name, StageSimplify, StatusDone, nil, time.Since(start))

	var text strings.Builder
	if err := summary.Write(&text, summary.FromGraph(g)); err == nil {
		res.Summary = text.String()
	}
	r.store(res, j)
	return g, nil
}

// ingest adds the function's own constraints and one instantiated callee
// summary per call site.
func (r *runner) ingest(j *job, res *FunctionResult, rep diag.Reporter) (*cgraph.Graph, error) {
	fn := j.fn
	g := cgraph.New(fn.Name, r.graphOpts)
	for _, c := range fn.Constraints {
		if err := g.AddConstraint(c.Sub, c.Sup); err != nil {
			diag.ReportError(rep, diag.GraphInvariant, c.Span, err.Error()).Emit()
			return nil, err
		}
	}
	for _, a := range fn.Arith {
		if err := g.AddArith(a.ArithConstraint); err != nil {
			diag.ReportError(rep, diag.GraphInvariant, a.Span, err.Error()).Emit()
			return nil, err
		}
	}
	for _, call := range j.meta.Calls {
		if j.inGroup(call.Callee) {
			continue
		}
		e, ok := r.callees.get(call.Callee)
		if !ok || e.broken || e.graph == nil {
			continue
		}
		cs, err := instantiate(e.graph, call)
		if err != nil {
			diag.ReportWarning(rep, diag.GraphCalleeFailed, call.Span,
				fmt.Sprintf("%s<%d> could not be instantiated: %v", call.Callee, call.Instance, err)).Emit()
			continue
		}
		if err := g.AddSubTypes(cs); err != nil {
			diag.ReportError(rep, diag.GraphInvariant, call.Span, err.Error()).Emit()
			return nil, err
		}
		res.Calls = append(res.Calls, call)
	}
	return g, nil
}

// instantiate returns the constraints a call site inherits from its
// callee: the callee summary with every variable stamped with the call's
// instance, reduced to the callee's own signature variable. Temporaries
// are renamed after the callee so two calls sharing an instance id do not
// collide.
func instantiate(callee *cgraph.Graph, call project.CallMeta) ([]schema.SubTypeConstraint, error) {
	sig := schema.Var(call.Callee).WithInstance(call.Instance)
	cs, err := callee.Instantiate(call.Instance).Simplify([]schema.TypeVariable{sig})
	if err != nil {
		return nil, err
	}
	stamp := func(tv schema.TypeVariable) schema.TypeVariable {
		if tv.Primitive || tv.Instance != 0 {
			return tv
		}
		if rest, ok := strings.CutPrefix(tv.Name, cgraph.TempPrefix); ok {
			tv.Name = cgraph.TempPrefix + call.Callee + "_" + rest
		}
		return tv.WithInstance(call.Instance)
	}
	for i, c := range cs {
		cs[i] = schema.Subtype(stamp(c.Sub), stamp(c.Sup))
	}
	return cs, nil
}

func reportPNIConflicts(g *cgraph.Graph, fn *cfile.Function, rep diag.Reporter) {
	var names []string
	for owner, members := range g.ClassIndex() {
		if !g.PNI().Get(owner).Conflict {
			continue
		}
		for _, id := range members {
			if id == g.Start() || id == g.End() {
				continue
			}
			names = append(names, g.KeyOf(id).Var.String())
			break
		}
	}
	slices.Sort(names)
	for _, name := range names {
		diag.ReportWarning(rep, diag.LatPNIConflict, fn.Span,
			fmt.Sprintf("%s is used both as a pointer and as a number in fn %s", name, fn.Name)).Emit()
	}
}

func reportSolveError(rep diag.Reporter, fn *cfile.Function, err error) {
	var inv *cgraph.InvariantError
	switch {
	case errors.Is(err, cgraph.ErrTooManyPaths):
		diag.ReportError(rep, diag.GraphTooManyPaths, fn.Span, fmt.Sprintf("fn %s: %v", fn.Name, err)).Emit()
	case errors.As(err, &inv):
		diag.ReportError(rep, diag.GraphInvariant, fn.Span, fmt.Sprintf("fn %s: %v", fn.Name, err)).Emit()
	default:
		diag.ReportError(rep, diag.GraphInfo, fn.Span, fmt.Sprintf("fn %s: %v", fn.Name, err)).Emit()
	}
}

func (r *runner) sketch(ctx context.Context, j *job, res *FunctionResult, g *cgraph.Graph, vars []schema.TypeVariable, rep diag.Reporter) {
	fn := j.fn
	emit(r.opts.Progress, fn.Name, StageSketch, StatusWorking, nil, 0)
	start := time.Now()
	sp := trace.Begin(trace.FromContext(ctx), trace.ScopeFunction, "sketch", trace.CurrentSpan(ctx))
	for _, tv := range vars {
		s, err := sketch.FromGraph(g, tv)
		switch {
		case errors.Is(err, cgraph.ErrNodeNotFound):
			diag.ReportWarning(rep, diag.GraphUnknownVar, fn.Span,
				fmt.Sprintf("%s does not occur in fn %s", tv, fn.Name)).Emit()
			continue
		case err != nil:
			reportSolveError(rep, fn, err)
			continue
		}
		if n := len(s.Conflicts()); n > 0 {
			diag.ReportWarning(rep, diag.LatSketchConflict, fn.Span,
				fmt.Sprintf("sketch of %s merges incompatible primitives at %d node(s)", tv, n)).Emit()
		}
		res.Sketches = append(res.Sketches, s)
	}
	sp.WithExtra("sketches", strconv.Itoa(len(res.Sketches))).End("")
	r.opts.Timer.Add("sketch", time.Since(start))
	emit(r.opts.Progress, fn.Name, StageSketch, StatusDone, nil, time.Since(start))
}

// store writes a successful result to the disk cache. Warnings reported so
// far are replayed on a hit; sketches are always recomputed.
func (r *runner) store(res *FunctionResult, j *job) {
	if r.opts.Cache == nil || slices.ContainsFunc(j.solveItems(), func(d diag.Diagnostic) bool { return d.Severity >= diag.SevError }) {
		return
	}
	payload := &CachePayload{
		Name:        res.Name,
		Interesting: varNames(res.Interesting),
		Summary:     res.Summary,
		Rounds:      res.Stats.Rounds,
		EdgesAdded:  res.Stats.EdgesAdded,
		PNISteps:    res.Stats.PNI.Steps,
	}
	for _, c := range res.Constraints {
		payload.Constraints = append(payload.Constraints, c.String())
	}
	for _, d := range j.solveItems() {
		if d.Severity == diag.SevWarning {
			payload.Warnings = append(payload.Warnings, CachedDiag{Code: uint16(d.Code), Msg: d.Message})
		}
	}
	if err := r.opts.Cache.Put(res.Meta.ResultHash, payload); err != nil {
		diag.ReportWarning(diag.BagReporter{Bag: j.bag}, diag.IOCacheError, res.Span, "cache write: "+err.Error()).Emit()
	}
}

// fromCache fills res from a cache hit. The graph is rebuilt from the
// stored summary only when a caller, a sketch or KeepGraphs needs it.
func (r *runner) fromCache(ctx context.Context, j *job, res *FunctionResult) (*cgraph.Graph, bool) {
	if r.opts.Cache == nil {
		return nil, false
	}
	var payload CachePayload
	ok, err := r.opts.Cache.Get(res.Meta.ResultHash, &payload)
	if err != nil {
		diag.ReportWarning(diag.BagReporter{Bag: j.bag}, diag.IOCacheError, res.Span, "cache read: "+err.Error()).Emit()
		return nil, false
	}
	if !ok || payload.Name != res.Name {
		return nil, false
	}
	cs := make([]schema.SubTypeConstraint, 0, len(payload.Constraints))
	for _, line := range payload.Constraints {
		c, err := schema.ParseConstraint(line)
		if err != nil {
			return nil, false
		}
		cs = append(cs, c)
	}
	var g *cgraph.Graph
	if j.called || r.opts.KeepGraphs || len(r.sketchVars(res.Interesting)) > 0 {
		sp := trace.Begin(trace.FromContext(ctx), trace.ScopeFunction, "rebuild", trace.CurrentSpan(ctx))
		ss, bag := summary.ParseSource(source.NewFileSet(), res.Name+".dot", []byte(payload.Summary))
		if bag.HasErrors() || len(ss) != 1 {
			sp.End("miss")
			return nil, false
		}
		if g, err = summary.ToGraph(ss[0], r.graphOpts); err != nil {
			sp.End("miss")
			return nil, false
		}
		sp.End("")
	}
	res.Constraints = cs
	res.Summary = payload.Summary
	res.Cached = true
	res.Stats = cgraph.Stats{Rounds: payload.Rounds, EdgesAdded: payload.EdgesAdded, PNI: pni.Stats{Steps: payload.PNISteps}}
	rep := diag.BagReporter{Bag: j.bag}
	for _, w := range payload.Warnings {
		diag.ReportWarning(rep, diag.Code(w.Code), res.Span, w.Msg).Emit()
	}
	for _, call := range j.meta.Calls {
		if e, ok := r.callees.get(call.Callee); ok && !e.broken && !j.inGroup(call.Callee) {
			res.Calls = append(res.Calls, call)
		}
	}
	emit(r.opts.Progress, res.Name, StageSolve, StatusCached, nil, 0)
	return g, true
}

func firstError(items []diag.Diagnostic) *diag.Diagnostic {
	for _, d := range items {
		if d.Severity >= diag.SevError {
			return &d
		}
	}
	return nil
}
