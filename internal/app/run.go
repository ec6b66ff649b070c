package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/graph"
	"github.com/mk/taskchaingo/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// Run executes the loaded flow. The health check server, when enabled, lives
// for exactly the duration of the run; cancelling ctx stops both.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)

	if a.config.HealthcheckPort > 0 {
		group.Go(func() error {
			return a.serveHealthcheck(groupCtx, a.config.HealthcheckPort)
		})
	}

	group.Go(func() error {
		// The run settling, with or without an error, retires the health
		// check server as well.
		defer cancel()
		return a.execute(groupCtx)
	})

	err := group.Wait()
	a.logger.Debug("App.Run method finished.")
	return err
}

// execute builds the task graph from the loaded model and drives it through
// the scheduler.
func (a *App) execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	logger.Debug("Building task graph from flow model...")
	g, err := graph.Build(ctx, a.model, a.registry, a.converter, a.collector)
	if err != nil {
		return fmt.Errorf("failed to build task graph: %w", err)
	}
	logger.Debug("Task graph built.", "node_count", g.Len())

	if g.Len() == 0 {
		logger.Warn("No tasks found in flow, execution not required.")
		return nil
	}

	logger.Info("🚀 Starting concurrent execution...", "tasks", g.Len(), "workers", a.config.WorkerCount)
	sched := scheduler.New(scheduler.WithWorkers(a.config.WorkerCount))
	for _, h := range g.Roots() {
		sched.Submit(h)
	}

	started := time.Now()
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	logger.Info("🏁 Execution finished.", "elapsed", time.Since(started).Round(time.Millisecond))

	if a.collector != nil {
		a.logProfile(logger, started)
	}

	if err := g.FirstError(); err != nil {
		logger.Error("🔥 Flow finished with failures.", "error", err)
		return err
	}
	return nil
}

// logProfile writes one timing line per recorded interval, offset from the
// start of the run, followed by a summary line.
func (a *App) logProfile(logger *slog.Logger, started time.Time) {
	intervals := a.collector.Intervals()
	for _, iv := range intervals {
		logger.Info("⏱️ Task timing.",
			"task", iv.Name,
			"offset", iv.Start.Sub(started).Round(time.Microsecond),
			"duration", iv.Elapsed().Round(time.Microsecond),
		)
	}
	logger.Info("⏱️ Profile complete.", "intervals", len(intervals), "total", time.Since(started).Round(time.Microsecond))
}
