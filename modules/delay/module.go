// Package delay provides a runner that pauses a flow for a configured
// duration.
package delay

import (
	"context"
	"fmt"
	"time"

	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the delay runner.
type Input struct {
	Duration string `flow:"duration,required"`
}

// OnRunDelay is the handler for the 'delay' runner. The sleep watches ctx so
// cancellation does not strand a worker.
func OnRunDelay(ctx context.Context, input *Input) error {
	logger := ctxlog.FromContext(ctx)

	d, err := time.ParseDuration(input.Duration)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", input.Duration, err)
	}

	logger.Info("Delaying.", "duration", d)
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register registers the runner and its handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner(&registry.Definition{
		Type:        "delay",
		Description: "Pauses the flow for the given duration.",
		OnRun:       "OnRunDelay",
	})
	r.RegisterHandler("OnRunDelay", &registry.Handler{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunDelay,
	})
}
