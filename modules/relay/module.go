// Package relay provides a chain target that forwards the result of the task
// that triggered it.
package relay

import (
	"context"

	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunRelay is the handler for the 'relay' runner. It receives the raw
// result of its trigger and passes it through unchanged.
func OnRunRelay(ctx context.Context, result cty.Value) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Relaying trigger result.", "result", result.GoString())
	return result, nil
}

// Register registers the runner and its handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner(&registry.Definition{
		Type:        "relay",
		Description: "Forwards the result of the task it chains from.",
		OnRun:       "OnRunRelay",
	})
	r.RegisterHandler("OnRunRelay", &registry.Handler{
		Fn: OnRunRelay,
	})
}
