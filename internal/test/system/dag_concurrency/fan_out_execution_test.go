package system

import (
	"testing"
	"time"

	"github.com/mk/taskchaingo/internal/testutil"
)

// Test for: fan-out execution runs sibling tasks in parallel.
func TestDagConcurrency_FanOutExecution(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"main.hcl": `
			task "sleeper" "a" {
				arguments { id = "a" }
			}
			task "sleeper" "b" {
				arguments { id = "b" }
				depends_on = ["sleeper.a"]
			}
			task "sleeper" "c" {
				arguments { id = "c" }
				depends_on = ["sleeper.a"]
			}
			task "sleeper" "d" {
				arguments { id = "d" }
				depends_on = ["sleeper.a"]
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

	recordB := mockModule.record("b")
	recordC := mockModule.record("c")
	recordD := mockModule.record("d")
	if recordB == nil || recordC == nil || recordD == nil {
		t.Fatal("not every sleeper ran")
	}

	if recordB.Start.After(recordC.End) || recordC.Start.After(recordB.End) {
		t.Errorf("tasks b and c did not run in parallel")
	}
	if recordC.Start.After(recordD.End) || recordD.Start.After(recordC.End) {
		t.Errorf("tasks c and d did not run in parallel")
	}
}
