// Package task implements the node primitive of the engine: a named unit of
// deferred computation with a single-fire result per generation, strong
// references to the nodes it depends on, an optional weak reference to a
// continuation fired on completion, and scoped timing instrumentation.
//
// Nodes are built with New, given work with Bind or BindRaw, and driven by
// Invoke, usually from the scheduler package. Then, ThenRun and ThenDo chain
// continuation nodes that run synchronously on the goroutine completing
// their trigger.
package task
