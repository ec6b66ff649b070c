package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// taskArgs represents the content of the 'arguments' block within a task.
type taskArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// taskBlock represents a `task` block from a user's flow file. It is a
// runnable instance of a registered runner type.
type taskBlock struct {
	RunnerType string    `hcl:"runner_type,label"`
	Name       string    `hcl:"task_name,label"`
	Arguments  *taskArgs `hcl:"arguments,block"`
	DependsOn  []string  `hcl:"depends_on,optional"`
	ChainFrom  string    `hcl:"chain_from,optional"`
}

// flowFile represents the top-level structure of a user's flow file,
// containing all declared tasks.
type flowFile struct {
	Tasks []*taskBlock `hcl:"task,block"`
	Body  hcl.Body     `hcl:",remain"`
}
