// Package graph turns a loaded flow model into an executable graph of task
// nodes. Building resolves every step to its registered handler, wires
// explicit and implicit dependencies, attaches chained steps as
// continuations of their triggers, and rejects cycles. The resulting Graph
// hands its root nodes to a scheduler and answers for the run's outcome
// afterwards.
package graph
