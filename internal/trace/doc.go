// Package trace records what a boxy compile is doing: the driver commands,
// the pipeline stages and the per-object kernel work.
//
// Turn it on from the command line:
//
//	boxy build --trace=- --trace-level=detail scene.boxy
//
// Tracers:
//
//   - Nop: disabled tracing, no cost
//   - StreamTracer: writes each event as it happens
//   - RingTracer: keeps the last N events for a dump after a failure
//   - MultiTracer: fans out to several tracers
//
// Levels select which scopes are written. LevelPhase writes driver and
// stage spans, LevelDetail adds one span per scene object, LevelDebug adds
// script statements.
//
// The tracer travels in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "triangulate", 0)
//	defer span.End("")
package trace
