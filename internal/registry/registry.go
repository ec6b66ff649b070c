package registry

import (
	"fmt"
	"log/slog"
	"sort"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Definition describes a runner type that flow files may instantiate.
type Definition struct {
	// Type is the runner type label used in flow files, e.g. "print".
	Type string
	// Description is a short human-readable summary.
	Description string
	// OnRun names the handler executed for each task of this runner type.
	OnRun string
}

// Registry holds all registered runner definitions and handlers for a single
// application instance.
type Registry struct {
	definitions map[string]*Definition
	handlers    map[string]*Handler
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		definitions: make(map[string]*Definition),
		handlers:    make(map[string]*Handler),
	}
}

// RegisterRunner registers a runner definition under its type label.
func (r *Registry) RegisterRunner(def *Definition) {
	if _, exists := r.definitions[def.Type]; exists {
		panic(fmt.Sprintf("runner with type '%s' already registered", def.Type))
	}
	slog.Debug("Registering runner definition.", "type", def.Type)
	r.definitions[def.Type] = def
}

// Definition returns the definition registered for a runner type.
func (r *Registry) Definition(runnerType string) (*Definition, bool) {
	def, ok := r.definitions[runnerType]
	return def, ok
}

// RunnerTypes returns all registered runner type labels in sorted order.
func (r *Registry) RunnerTypes() []string {
	types := make([]string, 0, len(r.definitions))
	for t := range r.definitions {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// HandlerFor resolves a runner type to its OnRun handler.
func (r *Registry) HandlerFor(runnerType string) (*Handler, error) {
	def, ok := r.definitions[runnerType]
	if !ok {
		return nil, fmt.Errorf("unknown runner type '%s'", runnerType)
	}
	handler, ok := r.handlers[def.OnRun]
	if !ok {
		return nil, fmt.Errorf("runner '%s' names handler '%s', which is not registered", runnerType, def.OnRun)
	}
	return handler, nil
}
