package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/flow"
	"github.com/mk/taskchaingo/internal/taskid"
)

// Loader is the HCL-specific implementation of the flow.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL flow loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses and merges one or more HCL flow files into a single model.
// Tasks sharing an identifier are merged last-wins: a later file's task
// replaces the earlier one in place, with a warning.
func (l *Loader) Load(ctx context.Context, paths ...string) (*flow.Model, flow.Converter, error) {
	logger := ctxlog.FromContext(ctx)

	model := &flow.Model{}
	index := make(map[string]int)
	parser := hclparse.NewParser()

	for _, path := range paths {
		logger.Debug("Decoding flow file.", "path", path)
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse flow file '%s': %s", path, diags.Error())
		}

		var ff flowFile
		diags = gohcl.DecodeBody(file.Body, nil, &ff)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode flow file '%s': %s", path, diags.Error())
		}
		logger.Debug("Successfully decoded flow file.", "path", path, "tasks_found", len(ff.Tasks))

		for _, block := range ff.Tasks {
			step, err := l.translateTask(block)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid task block in '%s': %w", path, err)
			}

			if at, exists := index[step.ID()]; exists {
				logger.Warn("Duplicate task definition found, overwriting.", "id", step.ID(), "path", path)
				model.Steps[at] = step
				continue
			}
			index[step.ID()] = len(model.Steps)
			model.Steps = append(model.Steps, step)
		}
	}

	logger.Info("Flow configuration loaded.", "tasks", len(model.Steps))
	return model, NewConverter(), nil
}

// translateTask converts the HCL-specific task schema into the agnostic model.
func (l *Loader) translateTask(block *taskBlock) (*flow.Step, error) {
	step := &flow.Step{
		RunnerType: block.RunnerType,
		Name:       block.Name,
		Arguments:  extractBodyAttributes(block.Arguments),
		DependsOn:  block.DependsOn,
		ChainFrom:  block.ChainFrom,
	}
	if _, err := taskid.ParseRef(step.Ref()); err != nil {
		return nil, err
	}
	return step, nil
}

func extractBodyAttributes(args *taskArgs) map[string]hcl.Expression {
	if args == nil || args.Body == nil {
		return nil
	}
	attrs, _ := args.Body.JustAttributes()
	if len(attrs) == 0 {
		return nil
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap
}
