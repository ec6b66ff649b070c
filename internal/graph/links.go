package graph

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/flow"
	"github.com/mk/taskchaingo/internal/taskid"
)

// linkNodes performs the second pass, establishing dependency links. Chained
// steps are excluded; their only edge, the trigger, is recorded when the
// continuation is created.
func (b *builder) linkNodes(ctx context.Context) error {
	for _, id := range b.g.order {
		step := b.g.steps[id]
		if step.ChainFrom != "" {
			continue
		}

		if err := b.linkExplicitDeps(ctx, step); err != nil {
			return err
		}
		for _, expr := range step.Arguments {
			if err := b.linkImplicitDeps(ctx, step, expr); err != nil {
				return err
			}
		}
	}
	return nil
}

// linkExplicitDeps resolves dependencies from a step's depends_on list.
func (b *builder) linkExplicitDeps(ctx context.Context, step *flow.Step) error {
	logger := ctxlog.FromContext(ctx)
	for _, depRef := range step.DependsOn {
		ref, err := taskid.ParseRef(depRef)
		if err != nil {
			return fmt.Errorf("task '%s': invalid depends_on reference: %w", step.ID(), err)
		}
		if _, ok := b.g.nodes[ref.ID()]; !ok {
			return fmt.Errorf("task '%s' depends on non-existent task '%s'", step.ID(), depRef)
		}
		if b.addDep(step.ID(), ref.ID()) {
			logger.Debug("Linking explicit dependency.", "from", step.ID(), "to", ref.ID())
		}
	}
	return nil
}

// linkImplicitDeps parses an expression for `task.<type>.<name>` traversals
// to create dependency links. The `task` root belongs exclusively to this
// engine, so a traversal naming an unknown task is an error rather than a
// reference to something else.
func (b *builder) linkImplicitDeps(ctx context.Context, step *flow.Step, expr hcl.Expression) error {
	logger := ctxlog.FromContext(ctx)
	for _, traversal := range expr.Variables() {
		if traversal.RootName() != "task" || len(traversal) < 3 {
			continue
		}
		typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
		nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
		if !typeOk || !nameOk {
			continue
		}

		depRef := typeAttr.Name + "." + nameAttr.Name
		depID := taskid.Prefix + depRef
		if _, ok := b.g.nodes[depID]; !ok {
			return fmt.Errorf("task '%s' references non-existent task '%s'", step.ID(), depRef)
		}
		if b.addDep(step.ID(), depID) {
			logger.Debug("Linking implicit dependency.", "from", step.ID(), "to", depID)
		}
	}
	return nil
}

// addDep records a dependency edge and mirrors it onto the task node. It
// reports false for edges that already exist.
func (b *builder) addDep(id, depID string) bool {
	for _, existing := range b.g.deps[id] {
		if existing == depID {
			return false
		}
	}
	b.g.deps[id] = append(b.g.deps[id], depID)
	b.g.nodes[id].AddDependencies(b.g.nodes[depID])
	return true
}

// detectCycles checks for circular dependencies using depth-first search.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		visiting[id] = true
		for _, depID := range g.deps[id] {
			if visiting[depID] {
				return fmt.Errorf("cycle detected involving task '%s'", depID)
			}
			if !visited[depID] {
				if err := visit(depID); err != nil {
					return err
				}
			}
		}
		delete(visiting, id)
		visited[id] = true
		return nil
	}

	for _, id := range g.order {
		if !visited[id] {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
