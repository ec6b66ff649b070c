package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/flow"
	"github.com/mk/taskchaingo/internal/registry"
	"github.com/mk/taskchaingo/internal/task"
	"github.com/mk/taskchaingo/internal/taskid"
	"github.com/mk/taskchaingo/internal/timeline"
	"github.com/zclconf/go-cty/cty"
)

// palette provides the span colors assigned to runner types, in first-seen
// order.
var palette = []timeline.Color{
	{0.90, 0.45, 0.30},
	{0.30, 0.65, 0.90},
	{0.40, 0.80, 0.40},
	{0.90, 0.75, 0.25},
	{0.65, 0.50, 0.90},
	{0.45, 0.85, 0.80},
}

// Build constructs a complete, validated task graph from a flow model.
//
// Handler invocations capture ctx, so the same cancellable context must be
// given to Build and to the scheduler that runs the graph for cancellation
// to reach running handlers. When collector is non-nil every node records a
// profiling span into it.
func Build(
	ctx context.Context,
	model *flow.Model,
	reg *registry.Registry,
	conv flow.Converter,
	collector *timeline.Collector,
) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")

	b := &builder{
		ctx:       ctx,
		reg:       reg,
		conv:      conv,
		coll:      collector,
		handlers:  make(map[string]*registry.Handler),
		shapes:    make(map[string]registry.Shape),
		colors:    make(map[string]timeline.Color),
		chainedBy: make(map[string]string),
		g: &Graph{
			nodes:   make(map[string]*task.Node[cty.Value]),
			steps:   make(map[string]*flow.Step),
			deps:    make(map[string][]string),
			chainOf: make(map[string]string),
		},
	}

	if err := b.createNodes(model); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(b.g.nodes))

	if err := b.linkNodes(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node linking complete.")

	if err := b.g.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: Cycle detection passed.")

	logger.Debug("Build: Graph construction successful.")
	return b.g, nil
}

// builder carries the intermediate state of a Build call.
type builder struct {
	ctx  context.Context
	reg  *registry.Registry
	conv flow.Converter
	coll *timeline.Collector

	handlers map[string]*registry.Handler
	shapes   map[string]registry.Shape
	colors   map[string]timeline.Color

	// chainedBy tracks which step already continues each trigger. A node
	// carries a single continuation slot, so a second chain_from on the
	// same trigger is a configuration error.
	chainedBy map[string]string

	g *Graph
}

// createNodes is the first pass: it resolves every step's handler, creates
// plain task nodes, and attaches chained steps as continuations of their
// triggers. Chains may hang off other chains, so resolution iterates until
// no step is left or no progress is possible.
func (b *builder) createNodes(model *flow.Model) error {
	var chained []*flow.Step
	for _, step := range model.Steps {
		if err := b.resolveHandler(step); err != nil {
			return err
		}
		b.g.steps[step.ID()] = step

		if step.ChainFrom != "" {
			chained = append(chained, step)
			continue
		}
		b.makeNode(step)
	}

	for len(chained) > 0 {
		progress := false
		remaining := chained[:0]
		for _, step := range chained {
			if done, err := b.tryChain(step); err != nil {
				return err
			} else if done {
				progress = true
			} else {
				remaining = append(remaining, step)
			}
		}
		chained = remaining
		if !progress {
			step := chained[0]
			return fmt.Errorf("unresolvable chain_from '%s' for task '%s'", step.ChainFrom, step.ID())
		}
	}

	return nil
}

// resolveHandler looks up and validates the step's handler at build time,
// so a flow naming an unknown runner fails before anything runs.
func (b *builder) resolveHandler(step *flow.Step) error {
	id := step.ID()
	handler, err := b.reg.HandlerFor(step.RunnerType)
	if err != nil {
		return fmt.Errorf("task '%s': %w", id, err)
	}
	shape, err := handler.Shape()
	if err != nil {
		return fmt.Errorf("task '%s': handler for runner '%s': %w", id, step.RunnerType, err)
	}
	b.handlers[id] = handler
	b.shapes[id] = shape

	if _, ok := b.colors[step.RunnerType]; !ok {
		b.colors[step.RunnerType] = palette[len(b.colors)%len(palette)]
	}
	return nil
}

// makeNode creates and binds the task node for a plain (non-chained) step.
func (b *builder) makeNode(step *flow.Step) {
	id := step.ID()
	n := task.New[cty.Value](id,
		task.WithColor(b.colors[step.RunnerType]),
		task.WithCollector(b.coll),
	)
	n.Bind(func() (cty.Value, error) {
		return b.runStep(b.ctx, step)
	})
	b.g.nodes[id] = n
	b.g.order = append(b.g.order, id)
}

// tryChain attaches a chained step to its trigger. It reports false, nil
// when the trigger node does not exist yet, so the caller can retry after
// other chains resolve.
func (b *builder) tryChain(step *flow.Step) (bool, error) {
	id := step.ID()

	if len(step.Arguments) > 0 || len(step.DependsOn) > 0 {
		return false, fmt.Errorf("task '%s' uses chain_from and cannot declare arguments or depends_on", id)
	}
	if shape := b.shapes[id]; shape.InputType != nil {
		return false, fmt.Errorf("task '%s': chained runner '%s' must accept a cty.Value or no input", id, step.RunnerType)
	}

	ref, err := taskid.ParseRef(step.ChainFrom)
	if err != nil {
		return false, fmt.Errorf("task '%s': invalid chain_from: %w", id, err)
	}
	trigger, ok := b.g.nodes[ref.ID()]
	if !ok {
		if _, declared := b.g.steps[ref.ID()]; declared {
			return false, nil // the trigger is itself a pending chain
		}
		return false, fmt.Errorf("task '%s' chains from non-existent task '%s'", id, step.ChainFrom)
	}
	if prev, taken := b.chainedBy[ref.ID()]; taken {
		return false, fmt.Errorf("task '%s' cannot chain from '%s': '%s' already continues it", id, step.ChainFrom, prev)
	}
	b.chainedBy[ref.ID()] = id

	n := task.Then(trigger, func(v cty.Value) (cty.Value, error) {
		return b.runChained(b.ctx, step, v)
	},
		task.WithName(id),
		task.WithColor(b.colors[step.RunnerType]),
		task.WithCollector(b.coll),
	)
	b.g.nodes[id] = n
	b.g.order = append(b.g.order, id)
	b.g.deps[id] = []string{ref.ID()}
	b.g.chainOf[id] = ref.ID()
	return true, nil
}

// runStep executes a plain step: it refuses to run when a dependency
// failed, evaluates the step's arguments against completed results, and
// invokes the handler.
func (b *builder) runStep(ctx context.Context, step *flow.Step) (cty.Value, error) {
	id := step.ID()
	logger := ctxlog.FromContext(ctx).With("task", id)
	logger.Info("▶️ Starting task")

	for _, depID := range b.g.deps[id] {
		if _, err := b.g.nodes[depID].Future().Wait(ctx); err != nil {
			logger.Warn("Skipping task due to upstream failure.", "dependency", depID)
			return cty.NilVal, &DependencyError{ID: depID, Err: err}
		}
	}

	handler, shape := b.handlers[id], b.shapes[id]

	var input any
	switch {
	case shape.InputType != nil:
		inputStruct := handler.NewInput()
		evalCtx := b.buildEvalContext(ctx, id)
		if err := b.conv.DecodeInput(ctx, inputStruct, step.Arguments, evalCtx); err != nil {
			return cty.NilVal, fmt.Errorf("decoding arguments for '%s': %w", id, err)
		}
		input = inputStruct
	case shape.InputIsValue:
		input = cty.NilVal
	}

	return b.callHandler(ctx, logger, step, handler, input)
}

// runChained executes a chained step with its trigger's result as input.
func (b *builder) runChained(ctx context.Context, step *flow.Step, triggerResult cty.Value) (cty.Value, error) {
	id := step.ID()
	logger := ctxlog.FromContext(ctx).With("task", id)
	logger.Info("▶️ Starting task", "chained_from", step.ChainFrom)

	handler, shape := b.handlers[id], b.shapes[id]

	var input any
	if shape.InputIsValue {
		input = triggerResult
	}

	return b.callHandler(ctx, logger, step, handler, input)
}

func (b *builder) callHandler(ctx context.Context, logger *slog.Logger, step *flow.Step, handler *registry.Handler, input any) (cty.Value, error) {
	out, err := handler.Call(ctx, input)
	if err != nil {
		logger.Error("Task execution failed.", "error", err)
		return cty.NilVal, err
	}

	result, err := b.conv.ToCtyValue(out)
	if err != nil {
		return cty.NilVal, fmt.Errorf("converting result of '%s': %w", step.ID(), err)
	}

	logger.Info("✅ Task finished")
	return result, nil
}

// buildEvalContext creates the HCL evaluation context for a step. It
// collects the results of every completed task in the graph under the
// `task` root, nested as task.<runner_type>.<name>.result, so argument
// expressions can reference upstream outputs.
func (b *builder) buildEvalContext(ctx context.Context, forID string) *hcl.EvalContext {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building HCL evaluation context.", "task", forID)

	resultsByRunner := make(map[string]map[string]cty.Value)
	for _, id := range b.g.order {
		n := b.g.nodes[id]
		if id == forID || !n.Future().Ready() {
			continue
		}
		result, err := n.Future().Wait(ctx)
		if err != nil || result == cty.NilVal {
			continue
		}

		step := b.g.steps[id]
		if _, ok := resultsByRunner[step.RunnerType]; !ok {
			resultsByRunner[step.RunnerType] = make(map[string]cty.Value)
		}
		resultsByRunner[step.RunnerType][step.Name] = cty.ObjectVal(map[string]cty.Value{
			"result": result,
		})
	}

	byRunner := make(map[string]cty.Value, len(resultsByRunner))
	for runnerType, instances := range resultsByRunner {
		byRunner[runnerType] = cty.ObjectVal(instances)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"task": cty.ObjectVal(byRunner),
		},
	}
}
