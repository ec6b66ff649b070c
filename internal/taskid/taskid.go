// Package taskid provides the structured representation of task
// identifiers. A task is addressed by its runner type and its name,
// written `runner_type.name` in flow references and `task.runner_type.name`
// as a fully qualified ID. This package centralizes parsing and formatting
// of both forms.
package taskid

import (
	"fmt"
	"regexp"
	"strings"
)

// Prefix qualifies a task reference into a full ID.
const Prefix = "task."

// labelRegex validates a single label, e.g. `print` or `env_vars`.
var labelRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// Address is the structured form of a task identifier.
type Address struct {
	RunnerType string
	Name       string
}

// String serializes the Address into its reference form, `runner_type.name`.
func (a Address) String() string {
	return a.RunnerType + "." + a.Name
}

// ID serializes the Address into its fully qualified form,
// `task.runner_type.name`.
func (a Address) ID() string {
	return Prefix + a.String()
}

// ParseRef parses a task reference of the form `runner_type.name`.
func ParseRef(ref string) (Address, error) {
	if ref == "" {
		return Address{}, fmt.Errorf("task reference cannot be empty")
	}

	runnerType, name, ok := strings.Cut(ref, ".")
	if !ok {
		return Address{}, fmt.Errorf("invalid task reference %q: want runner_type.name", ref)
	}
	if !labelRegex.MatchString(runnerType) {
		return Address{}, fmt.Errorf("invalid runner type %q in task reference %q", runnerType, ref)
	}
	if !labelRegex.MatchString(name) {
		return Address{}, fmt.Errorf("invalid task name %q in task reference %q", name, ref)
	}

	return Address{RunnerType: runnerType, Name: name}, nil
}

// ParseID parses a fully qualified task ID of the form
// `task.runner_type.name`.
func ParseID(id string) (Address, error) {
	ref, ok := strings.CutPrefix(id, Prefix)
	if !ok {
		return Address{}, fmt.Errorf("identifier %q lacks the %q prefix", id, Prefix)
	}
	return ParseRef(ref)
}
