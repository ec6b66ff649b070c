// Package env_vars provides a runner that snapshots the process environment.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Output defines the data structure returned by the runner.
type Output struct {
	All map[string]string `cty:"all"`
}

// OnRunEnvVars is the handler for the 'env_vars' runner.
func OnRunEnvVars(ctx context.Context) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	logger.Debug("Captured process environment.", "count", len(envMap))

	return &Output{All: envMap}, nil
}

// Register registers the runner and its handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner(&registry.Definition{
		Type:        "env_vars",
		Description: "Captures the process environment as a map.",
		OnRun:       "OnRunEnvVars",
	})
	r.RegisterHandler("OnRunEnvVars", &registry.Handler{
		Fn: OnRunEnvVars,
	})
}
