package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/flow"
	"github.com/mk/taskchaingo/internal/fsutil"
	"github.com/mk/taskchaingo/internal/registry"
	"github.com/mk/taskchaingo/internal/timeline"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	config    *Config
	logger    *slog.Logger
	registry  *registry.Registry
	model     *flow.Model
	converter flow.Converter
	collector *timeline.Collector
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// A failure during startup is fatal and panics; the CLI edge recovers it
// into an exit error.
func NewApp(outW io.Writer, cfg *Config, loader flow.Loader, extra ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	paths, err := fsutil.Resolve(cfg.FlowPath, ".hcl")
	if err != nil {
		panic(fmt.Errorf("failed to load flow configuration: %w", err))
	}
	if len(paths) == 0 {
		logger.Warn("No .hcl flow files found in path.", "path", cfg.FlowPath)
	}

	model, converter, err := loader.Load(ctx, paths...)
	if err != nil {
		panic(fmt.Errorf("failed to load flow configuration: %w", err))
	}
	logger.Debug("Flow configuration loaded and translated into unified model.")

	reg := registry.New()
	modules := make([]registry.Module, 0, len(coreModules)+len(extra))
	modules = append(modules, coreModules...)
	modules = append(modules, extra...)
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.Validate(ctx); err != nil {
		// A mismatch between runner definitions and their Go handlers is a
		// programmer error, not a runtime condition.
		panic(err)
	}

	var collector *timeline.Collector
	if cfg.Profile {
		collector = timeline.New()
		logger.Debug("Profiling enabled, collector attached.")
	}

	return &App{
		outW:      outW,
		config:    cfg,
		logger:    logger,
		registry:  reg,
		model:     model,
		converter: converter,
		collector: collector,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Collector returns the profiling collector, or nil when profiling is off.
func (a *App) Collector() *timeline.Collector {
	return a.collector
}
