package task

// Status describes where a node is in its execution lifecycle.
type Status int32

const (
	// StatusInvalid is the zero status: the node has been constructed or
	// reset and nothing has produced a result for the current generation.
	// Every bound function must move the node out of this status by the
	// time it returns.
	StatusInvalid Status = iota

	// StatusPending marks a node accepted by a scheduler but not yet
	// dispatched.
	StatusPending

	// StatusScheduledOnce marks a node dispatched for a single invocation.
	StatusScheduledOnce

	// StatusScheduledPolling marks a node dispatched under a polling
	// policy; the scheduler re-invokes it until it completes.
	StatusScheduledPolling

	// StatusDone marks a completed generation; the node's future holds the
	// result. Leaving StatusDone begins a new generation.
	StatusDone
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusInvalid:
		return "Invalid"
	case StatusPending:
		return "Pending"
	case StatusScheduledOnce:
		return "ScheduledOnce"
	case StatusScheduledPolling:
		return "ScheduledPolling"
	case StatusDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// inFlight reports whether the status means a scheduler still owns the node.
func (s Status) inFlight() bool {
	return s == StatusPending || s == StatusScheduledOnce || s == StatusScheduledPolling
}
