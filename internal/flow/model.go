package flow

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/mk/taskchaingo/internal/taskid"
)

// Step is one `task` block from a flow file: a runnable instance of a
// registered runner type.
type Step struct {
	RunnerType string
	Name       string

	// Arguments holds the raw expressions of the step's arguments block,
	// keyed by argument name. They are evaluated against the results of the
	// step's dependencies when the step runs.
	Arguments map[string]hcl.Expression

	// DependsOn lists explicit ordering edges as `runner_type.name`
	// references.
	DependsOn []string

	// ChainFrom names the trigger step this step continues from. A chained
	// step receives its trigger's result directly and declares neither
	// arguments nor depends_on.
	ChainFrom string
}

// Ref returns the step's reference form, `runner_type.name`.
func (s *Step) Ref() string {
	return s.RunnerType + "." + s.Name
}

// ID returns the step's fully qualified identifier, `task.runner_type.name`.
func (s *Step) ID() string {
	return taskid.Prefix + s.Ref()
}

// Model is the fully loaded, format-agnostic representation of a flow.
type Model struct {
	Steps []*Step
}
