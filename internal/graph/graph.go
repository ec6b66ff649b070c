package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mk/taskchaingo/internal/flow"
	"github.com/mk/taskchaingo/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Graph is a fully linked, validated set of task nodes ready to run. Nodes
// are keyed by their fully qualified ID, e.g. "task.print.greeter".
type Graph struct {
	nodes map[string]*task.Node[cty.Value]
	steps map[string]*flow.Step

	// order preserves flow-file declaration order for deterministic
	// iteration.
	order []string

	// deps records dependency edges by ID, including each continuation's
	// trigger edge, for cycle detection and failure propagation.
	deps map[string][]string

	// chainOf maps a continuation node's ID to its trigger's ID.
	chainOf map[string]string
}

// Node returns the task node with the given fully qualified ID.
func (g *Graph) Node(id string) (*task.Node[cty.Value], bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len reports the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Roots returns the nodes a scheduler must drive, in declaration order.
// Continuation nodes are excluded: their triggers fire them.
func (g *Graph) Roots() []task.Handle {
	var roots []task.Handle
	for _, id := range g.order {
		if n := g.nodes[id]; !n.IsContinuation() {
			roots = append(roots, n)
		}
	}
	return roots
}

// DependencyError marks a task that never ran because one of its
// dependencies failed. It is a symptom, not a cause: FirstError skips it
// when looking for the run's root failure.
type DependencyError struct {
	// ID names the failed dependency.
	ID  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("skipped due to upstream failure of '%s': %v", e.ID, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// FirstError inspects the outcome of a completed run and returns an error
// naming every task that genuinely failed, wrapping the first such failure
// as the root cause. Tasks skipped because of an upstream failure, and
// continuations that merely relayed their trigger's error, are symptoms and
// do not count. It returns nil when nothing failed.
func (g *Graph) FirstError() error {
	var failed []string
	var rootCause error

	for _, id := range g.order {
		n := g.nodes[id]
		if !n.Future().Ready() {
			continue
		}
		_, err := n.Future().Wait(context.Background())
		if err == nil {
			continue
		}

		var depErr *DependencyError
		if errors.As(err, &depErr) {
			continue
		}
		if trigger, ok := g.chainOf[id]; ok {
			if _, triggerErr := g.nodes[trigger].Future().Wait(context.Background()); errors.Is(err, triggerErr) {
				continue
			}
		}

		failed = append(failed, id)
		if rootCause == nil {
			rootCause = err
		}
	}

	if rootCause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failed, ", "), rootCause)
	}
	return nil
}
