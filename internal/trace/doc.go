// Package trace records what the lowering pipeline is doing.
//
// Tracers are attached to a context and pulled back out where work happens:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "lower", 0)
//	defer span.End("")
//
// Levels gate scopes: phase shows driver and pass boundaries, detail adds
// per-function events, debug adds per-statement events.
package trace
