// Package trace records spans and point events from the solver pipeline.
//
// Tracing is configured from the command line:
//
//	retype solve --trace=- --trace-level=detail prog.rt
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes each event as it happens (text or NDJSON)
//   - RingTracer: keeps the last N events in memory for dumping on failure
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// Events carry a scope. LevelPhase shows driver and pass events, LevelDetail
// adds per-function solver phases and saturation rounds, LevelDebug adds
// node-level events such as individual sketches.
//
// # Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeFunction, "saturate", parent)
//	defer span.End("")
package trace
