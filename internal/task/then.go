package task

import "github.com/mk/taskchaingo/internal/timeline"

// Unit is the result type of continuations that produce no value.
type Unit struct{}

// Then chains a continuation onto n. The returned node fires synchronously,
// on the goroutine that completes n, the moment n reaches StatusDone: it
// reads n's result, applies fn and completes itself. When n's generation
// carries an error, fn is skipped and the error propagates; the
// continuation still ends StatusDone.
//
// n references the continuation weakly and the continuation references n
// strongly as a dependency, so dropping every strong reference to the
// returned node releases the chain tail-first. Dropping it while n can
// still fire is the defect Invoke panics on.
func Then[T, R any](n *Node[T], fn func(T) (R, error), opts ...Option) *Node[R] {
	return chain(n, opts, fn)
}

// ThenRun chains a continuation that ignores the trigger's value. It is
// still gated on the trigger's success: a failed trigger propagates its
// error without running fn.
func ThenRun[T, R any](n *Node[T], fn func() (R, error), opts ...Option) *Node[R] {
	return chain(n, opts, func(T) (R, error) { return fn() })
}

// ThenDo chains a continuation that consumes the trigger's value and
// produces no value of its own.
func ThenDo[T any](n *Node[T], fn func(T) error, opts ...Option) *Node[Unit] {
	return chain(n, opts, func(v T) (Unit, error) { return Unit{}, fn(v) })
}

func chain[T, R any](n *Node[T], opts []Option, apply func(T) (R, error)) *Node[R] {
	o := options{name: n.Name() + ".then", color: timeline.DefaultColor}
	for _, opt := range opts {
		opt(&o)
	}
	m := newNode[R](o, true)
	m.BindRaw(func() {
		// Read the trigger's current generation at fire time, not the one
		// that existed when the chain was built.
		v, err := n.Future().await()
		if err != nil {
			var zero R
			m.Complete(zero, err)
		} else {
			m.Complete(apply(v))
		}
		m.SetStatus(StatusDone)
	})
	m.AddDependencies(n)
	n.SetContinuation(m)
	return m
}
