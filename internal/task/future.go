package task

import (
	"context"
	"sync"
)

// Future is the single-fire result cell for one generation of a node. It is
// fulfilled exactly once; fulfilling it again panics. Readers may block on
// Wait, select on Done, or poll Ready. A computation failure travels
// through the error slot as ordinary data.
type Future[T any] struct {
	mu     sync.Mutex
	done   chan struct{}
	value  T
	err    error
	filled bool
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Done returns a channel that is closed once the result is set.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the result has been set.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is available or ctx is cancelled. On
// cancellation it returns the zero value and ctx's error.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// await blocks without a deadline. Continuation wiring uses it: by the time
// a continuation fires, its trigger is done, so this returns immediately in
// correct programs and blocks in misordered ones rather than fabricating a
// result.
func (f *Future[T]) await() (T, error) {
	<-f.done
	return f.value, f.err
}

// fulfill sets the result. A second fulfill of the same generation is a
// defect, not a race to tolerate.
func (f *Future[T]) fulfill(v T, err error) {
	f.mu.Lock()
	if f.filled {
		f.mu.Unlock()
		panic("task: result already delivered for this generation")
	}
	f.value = v
	f.err = err
	f.filled = true
	close(f.done)
	f.mu.Unlock()
}
