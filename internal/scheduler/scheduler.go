// Package scheduler drives task nodes to completion on a fixed worker
// pool. Nodes are dispatched once all their dependencies are done, either
// a single time (Submit) or repeatedly under a pacing policy until they
// complete (SubmitPolling). Continuation nodes are never dispatched here:
// they ride the goroutine that completes their trigger.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/task"
)

// DefaultWorkers is the worker-pool size used when WithWorkers is not given.
const DefaultWorkers = 10

type entry struct {
	h       task.Handle
	polling bool
	bo      backoff.BackOff

	// Dispatcher-goroutine state; workers never touch these.
	notBefore time.Time
	inFlight  bool
}

// Scheduler owns a set of submitted nodes and runs them to completion.
type Scheduler struct {
	workers    int
	newBackOff func() backoff.BackOff

	mu      sync.Mutex
	entries []*entry
	running bool
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the worker-pool size. Values below one keep the default.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithPollBackOff sets the factory producing the per-node pacing policy for
// polling dispatch. A policy returning backoff.Stop ends the run with a
// budget error.
func WithPollBackOff(factory func() backoff.BackOff) Option {
	return func(s *Scheduler) {
		if factory != nil {
			s.newBackOff = factory
		}
	}
}

func defaultPollBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 0
	return bo
}

// New creates a scheduler. Submit nodes first, then call Run once.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		workers:    DefaultWorkers,
		newBackOff: defaultPollBackOff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit hands a node to the scheduler for a single dispatch once its
// dependencies are done. The node moves to StatusPending. Submitting a
// continuation node panics: its trigger drives it, and dispatching it again
// would double-fire its generation.
func (s *Scheduler) Submit(h task.Handle) {
	s.track(h, false)
}

// SubmitPolling is like Submit, but the node is re-invoked, paced by the
// scheduler's backoff policy, until its function reports completion.
func (s *Scheduler) SubmitPolling(h task.Handle) {
	s.track(h, true)
}

func (s *Scheduler) track(h task.Handle, polling bool) {
	if h.IsContinuation() {
		panic(fmt.Sprintf("scheduler: continuation node %q cannot be submitted; its trigger drives it", h.Name()))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		panic("scheduler: Submit after Run")
	}
	e := &entry{h: h, polling: polling}
	if polling {
		e.bo = s.newBackOff()
	}
	h.SetStatus(task.StatusPending)
	s.entries = append(s.entries, e)
}

// Run drives every submitted node to completion. It returns nil when all
// nodes are done, the context's error on cancellation, a stall error when
// no progress is possible, or a budget error when a polling node's pacing
// policy gives up. Node-level computation failures are not Run errors; they
// stay in the nodes' futures for consumers.
//
// On every exit path Run drains in-flight work and releases ownership of
// unfinished nodes by returning them to StatusInvalid, so abandoned nodes
// can be collected or resubmitted safely.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		panic("scheduler: Run called twice")
	}
	s.running = true
	entries := make([]*entry, len(s.entries))
	copy(entries, s.entries)
	s.mu.Unlock()

	if len(entries) == 0 {
		logger.Debug("Scheduler has nothing to run.")
		return nil
	}

	workers := s.workers
	if workers > len(entries) {
		workers = len(entries)
	}
	logger.Info("🚀 Scheduler starting.", "nodes", len(entries), "workers", workers)

	// Each entry is in flight at most once at a time, so both channels are
	// deep enough to never block their senders.
	readyCh := make(chan *entry, len(entries))
	doneCh := make(chan *entry, len(entries))
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for e := range readyCh {
				e.h.Invoke()
				doneCh <- e
			}
		}()
	}
	defer func() {
		close(readyCh)
		wg.Wait()
		releaseUnfinished(entries)
	}()

	for {
		now := time.Now()
		inFlight := 0
		unfinished := 0
		var wake time.Time
		var stuck []string

		for _, e := range entries {
			if e.inFlight {
				inFlight++
				unfinished++
				continue
			}
			st := e.h.Status()
			if st == task.StatusDone {
				continue
			}
			unfinished++
			if !depsDone(e.h) {
				stuck = append(stuck, e.h.Name())
				continue
			}
			if !e.polling && st != task.StatusPending {
				// Invoked once without completing; nothing more we can do.
				stuck = append(stuck, e.h.Name())
				continue
			}
			if e.polling && now.Before(e.notBefore) {
				if wake.IsZero() || e.notBefore.Before(wake) {
					wake = e.notBefore
				}
				continue
			}
			e.inFlight = true
			inFlight++
			if e.polling {
				e.h.SetStatus(task.StatusScheduledPolling)
			} else {
				e.h.SetStatus(task.StatusScheduledOnce)
			}
			logger.Debug("▶️ Dispatching node.", "node", e.h.Name(), "polling", e.polling)
			readyCh <- e
		}

		if unfinished == 0 {
			logger.Info("🏁 All nodes completed.")
			return nil
		}
		if inFlight == 0 && wake.IsZero() {
			sort.Strings(stuck)
			return fmt.Errorf("scheduler: no runnable nodes remain; stuck: %s", strings.Join(stuck, ", "))
		}

		var wakeCh <-chan time.Time
		if !wake.IsZero() {
			wakeCh = time.After(time.Until(wake))
		}
		select {
		case e := <-doneCh:
			e.inFlight = false
			if e.h.Status() == task.StatusDone {
				logger.Debug("✅ Node finished.", "node", e.h.Name())
			} else if e.polling {
				next := e.bo.NextBackOff()
				if next == backoff.Stop {
					return fmt.Errorf("scheduler: polling budget exhausted for node '%s'", e.h.Name())
				}
				e.notBefore = time.Now().Add(next)
			}
		case <-ctx.Done():
			logger.Warn("Scheduler cancelled; draining in-flight work.", "cause", ctx.Err())
			return ctx.Err()
		case <-wakeCh:
		}
	}
}

// releaseUnfinished returns nodes the run never finished to StatusInvalid,
// relinquishing scheduler ownership.
func releaseUnfinished(entries []*entry) {
	for _, e := range entries {
		if st := e.h.Status(); st != task.StatusDone && st != task.StatusInvalid {
			e.h.SetStatus(task.StatusInvalid)
		}
	}
}

func depsDone(h task.Handle) bool {
	for _, d := range h.Dependencies() {
		if d.Status() != task.StatusDone {
			return false
		}
	}
	return true
}
