package driver

import (
	"retype/internal/observ"
	"retype/internal/project"
	"retype/internal/schema"
)

// Options control a solve run.
type Options struct {
	Config project.Config
	// Interesting overrides the interesting set of every function.
	Interesting []schema.TypeVariable
	// Sketch lists variables to sketch in every function. With SketchAll the
	// interesting set is sketched as well.
	Sketch    []schema.TypeVariable
	SketchAll bool
	// KeepGraphs retains solved graphs on the results.
	KeepGraphs     bool
	Jobs           int // 0 = Config.Solve.Jobs, then GOMAXPROCS
	MaxDiagnostics int
	Cache          *DiskCache // nil disables the result cache
	Progress       ProgressSink
	Timer          *observ.Timer
	// Summaries are callee graphs loaded from summary files, by name.
	Summaries []string
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return 100
	}
	return o.MaxDiagnostics
}
