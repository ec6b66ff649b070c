package system

import (
	"testing"
	"time"

	"github.com/mk/taskchaingo/internal/testutil"
)

// Test for: disconnected parts of the graph make progress independently.
func TestDagConcurrency_IndependentTracksRunInParallel(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"main.hcl": `
			task "sleeper" "track1_a" {
				arguments { id = "1a" }
			}
			task "sleeper" "track1_b" {
				arguments { id = "1b" }
				depends_on = ["sleeper.track1_a"]
			}
			task "sleeper" "track2_a" {
				arguments { id = "2a" }
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

	track1A := mockModule.record("1a")
	track1B := mockModule.record("1b")
	track2A := mockModule.record("2a")
	if track1A == nil || track1B == nil || track2A == nil {
		t.Fatal("not every sleeper ran")
	}

	if track2A.Start.After(track1B.End) {
		t.Errorf("independent tracks did not run in parallel (track 2 started after track 1 finished)")
	}
	if track1B.Start.Before(track1A.End) {
		t.Errorf("dependency violation in track 1: task b started before a finished")
	}
}
