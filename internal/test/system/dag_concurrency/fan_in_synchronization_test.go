package system

import (
	"testing"
	"time"

	"github.com/mk/taskchaingo/internal/testutil"
)

// Test for: fan-in synchronization waits for all parallel tasks.
func TestDagConcurrency_FanInSynchronization(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"main.hcl": `
			task "sleeper" "a" {
				arguments { id = "a" }
			}
			task "sleeper" "b" {
				arguments { id = "b" }
			}
			task "sleeper" "c" {
				arguments { id = "c" }
			}
			task "sleeper" "d" {
				arguments { id = "d" }
				depends_on = ["sleeper.a", "sleeper.b", "sleeper.c"]
			}
		`,
	}
	mockModule := &mockSleeperModule{
		executionTimes: make(map[string]*testutil.ExecutionRecord),
		sleepDuration:  100 * time.Millisecond,
	}

	// --- Act ---
	result := testutil.RunFlow(t, files, testutil.FlowOptions{Workers: 4}, mockModule)

	// --- Assert ---
	if result.Err != nil {
		t.Fatalf("flow run failed: %v", result.Err)
	}

	for _, id := range []string{"a", "b", "c", "d"} {
		if mockModule.record(id) == nil {
			t.Fatalf("sleeper %q never ran", id)
		}
	}

	latestPrereqEnd := mockModule.record("a").End
	if end := mockModule.record("b").End; end.After(latestPrereqEnd) {
		latestPrereqEnd = end
	}
	if end := mockModule.record("c").End; end.After(latestPrereqEnd) {
		latestPrereqEnd = end
	}

	if mockModule.record("d").Start.Before(latestPrereqEnd) {
		t.Errorf("fan-in synchronization failed: task d started before all prerequisites were complete")
	}
}
