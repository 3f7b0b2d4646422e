// Package trace is the structured logging layer of pragmax.
//
// Every pipeline phase and every transformation opens a span; rewrites inside
// a transformation emit instant points. Events are written as they arrive by a
// StreamTracer (text or NDJSON), kept in memory by a RingTracer, or both.
//
// # Levels
//
//   - off
//   - phase: driver runs and pipeline passes
//   - transform: adds one span per transformation
//   - node: adds the rewrite points of loop extraction and fusion
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.StartSpan(ctx, trace.ScopeDriver, "transform")
//	defer span.End("")
//
// Code without a context passes the parent span id to Begin or Point.
package trace
