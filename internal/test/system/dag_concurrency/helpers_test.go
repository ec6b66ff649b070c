package system

import (
	"context"
	"sync"
	"time"

	"github.com/mk/taskchaingo/internal/registry"
	"github.com/mk/taskchaingo/internal/testutil"
)

// sleeperInput names the record a sleeper writes.
type sleeperInput struct {
	ID string `flow:"id"`
}

// mockSleeperModule is a self-contained module for concurrency tests. The
// scheduler only returns once every node is done, so records are complete
// when the harness hands control back.
type mockSleeperModule struct {
	mu             sync.Mutex
	executionTimes map[string]*testutil.ExecutionRecord
	sleepDuration  time.Duration
}

// Register registers the "sleeper" runner.
func (m *mockSleeperModule) Register(r *registry.Registry) {
	r.RegisterRunner(&registry.Definition{Type: "sleeper", OnRun: "OnRunSleeper"})
	r.RegisterHandler("OnRunSleeper", &registry.Handler{
		NewInput: func() any { return new(sleeperInput) },
		Fn: func(ctx context.Context, input *sleeperInput) error {
			startTime := time.Now()
			time.Sleep(m.sleepDuration)
			endTime := time.Now()

			m.mu.Lock()
			m.executionTimes[input.ID] = &testutil.ExecutionRecord{Start: startTime, End: endTime}
			m.mu.Unlock()

			return nil
		},
	})
}

// record returns the named sleeper's execution record, or nil when it never
// ran.
func (m *mockSleeperModule) record(id string) *testutil.ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executionTimes[id]
}
