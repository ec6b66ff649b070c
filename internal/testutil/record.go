package testutil

import "time"

// ExecutionRecord holds the start and end times for a single task's
// execution. Concurrency tests compare records to prove ordering.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}
