package task

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/mk/taskchaingo/internal/timeline"
)

// liveNodes counts constructed but not yet collected nodes across the
// process. Tests use it to prove runs do not leak nodes.
var liveNodes atomic.Int64

// LiveNodes returns the number of nodes currently alive.
func LiveNodes() int64 {
	return liveNodes.Load()
}

// Handle is the type-erased view of a Node. Schedulers, dependency lists
// and continuation references hold Handles so nodes with different result
// types can be wired together.
type Handle interface {
	// Invoke runs the bound function and fires the continuation cascade.
	Invoke()
	// Status returns the node's current lifecycle status.
	Status() Status
	// SetStatus stores a new status; moving out of StatusDone begins a
	// new generation.
	SetStatus(Status)
	// IsContinuation reports whether the node was created by Then (or a
	// variant) and is therefore driven by its trigger, not a scheduler.
	IsContinuation() bool
	// Dependencies returns the nodes this node is gated on.
	Dependencies() []Handle
	// Name returns the node's display name.
	Name() string
	// Collector returns the attached timeline collector, if any.
	Collector() *timeline.Collector
	// SetCollector attaches a timeline collector; nil detaches.
	SetCollector(*timeline.Collector)

	// self returns the pinned cell that weak continuation references
	// point at. Unexported so only this package implements Handle.
	self() *Handle
}

// lifecycle is the slice of node state its collection cleanup may touch.
// It is allocated separately from the node so the cleanup can still
// observe it after the node itself has become unreachable.
type lifecycle struct {
	name   string
	status atomic.Int32
}

// releaseNode runs after a node is collected. Collection while a scheduler
// still owns the node is a defect: the scheduler would later invoke memory
// that no longer exists.
func releaseNode(life *lifecycle) {
	if s := Status(life.status.Load()); s.inFlight() {
		panic(fmt.Sprintf("task: node %q collected while %s", life.name, s))
	}
	liveNodes.Add(-1)
}

// Node is a unit of deferred computation producing a T. See the package
// documentation for the lifecycle.
type Node[T any] struct {
	life    *lifecycle
	isCont  bool
	selfRef *Handle

	mu        sync.Mutex
	fn        func()
	fut       *Future[T]
	deps      []Handle
	cont      weak.Pointer[Handle]
	contSet   bool
	color     timeline.Color
	collector *timeline.Collector
}

type options struct {
	name      string
	color     timeline.Color
	collector *timeline.Collector
}

// Option customizes node construction.
type Option func(*options)

// WithColor sets the display color recorded with the node's spans.
func WithColor(c timeline.Color) Option {
	return func(o *options) { o.color = c }
}

// WithCollector attaches a timeline collector at construction time.
func WithCollector(c *timeline.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithName overrides the generated name of a node built by Then, ThenRun
// or ThenDo. New ignores it; its name argument wins.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// New creates a named node with an empty current generation. The node
// starts in StatusInvalid and counts toward LiveNodes until it is
// collected.
func New[T any](name string, opts ...Option) *Node[T] {
	o := options{color: timeline.DefaultColor}
	for _, opt := range opts {
		opt(&o)
	}
	o.name = name
	return newNode[T](o, false)
}

func newNode[T any](o options, continuation bool) *Node[T] {
	n := &Node[T]{
		life:      &lifecycle{name: o.name},
		isCont:    continuation,
		fut:       newFuture[T](),
		color:     o.color,
		collector: o.collector,
	}
	n.life.status.Store(int32(StatusInvalid))
	// The self cell is what weak continuation references point at. It and
	// the node form one strongly connected unit, so they are collected
	// together once nothing else references the node.
	n.selfRef = new(Handle)
	*n.selfRef = n
	liveNodes.Add(1)
	runtime.AddCleanup(n, releaseNode, n.life)
	return n
}

func (n *Node[T]) self() *Handle {
	return n.selfRef
}

// Name returns the node's display name.
func (n *Node[T]) Name() string {
	return n.life.name
}

// IsContinuation reports whether this node is driven by a trigger.
func (n *Node[T]) IsContinuation() bool {
	return n.isCont
}

// Status returns the node's current lifecycle status.
func (n *Node[T]) Status() Status {
	return Status(n.life.status.Load())
}

// SetStatus stores s. Moving out of StatusDone allocates a fresh future
// first, so consumers of the finished generation keep a stable view while
// the node becomes reusable.
func (n *Node[T]) SetStatus(s Status) {
	if Status(n.life.status.Load()) == StatusDone && s != StatusDone {
		n.mu.Lock()
		n.fut = newFuture[T]()
		n.mu.Unlock()
	}
	n.life.status.Store(int32(s))
}

// Bind attaches fn as the node's computation: its result or error is
// written to the current future and the node is marked StatusDone
// afterward. Rebinding replaces the function.
func (n *Node[T]) Bind(fn func() (T, error)) {
	n.BindRaw(func() {
		v, err := fn()
		n.Complete(v, err)
		n.SetStatus(StatusDone)
	})
}

// BindRaw attaches a function under the raw contract: fn itself must
// fulfill the node's current future and move the status out of
// StatusInvalid. Polling workloads use this to stay ScheduledPolling until
// they can finish.
func (n *Node[T]) BindRaw(fn func()) {
	n.mu.Lock()
	n.fn = fn
	n.mu.Unlock()
}

// Future returns the current generation's result cell.
func (n *Node[T]) Future() *Future[T] {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fut
}

// Complete fulfills the current generation. Completing a generation twice
// panics; reset the node by moving its status out of StatusDone to start a
// new one.
func (n *Node[T]) Complete(v T, err error) {
	n.Future().fulfill(v, err)
}

// AddDependencies appends strong references to nodes this node is gated
// on. The list is a completeness gate for schedulers; Invoke never walks
// it.
func (n *Node[T]) AddDependencies(deps ...Handle) {
	n.mu.Lock()
	n.deps = append(n.deps, deps...)
	n.mu.Unlock()
}

// Dependencies returns a copy of the dependency list.
func (n *Node[T]) Dependencies() []Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Handle, len(n.deps))
	copy(out, n.deps)
	return out
}

// SetContinuation records a weak reference to next. The reference never
// keeps next alive; ownership flows the other way, through next's
// dependency on this node.
func (n *Node[T]) SetContinuation(next Handle) {
	n.mu.Lock()
	n.cont = weak.Make(next.self())
	n.contSet = true
	n.mu.Unlock()
}

// Continuation resolves the continuation reference. The bool reports
// whether one was ever set; the handle is nil when it has since been
// collected.
func (n *Node[T]) Continuation() (Handle, bool) {
	n.mu.Lock()
	cont, set := n.cont, n.contSet
	n.mu.Unlock()
	if !set {
		return nil, false
	}
	cell := cont.Value()
	if cell == nil {
		return nil, true
	}
	return *cell, true
}

// Collector returns the attached timeline collector, if any.
func (n *Node[T]) Collector() *timeline.Collector {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.collector
}

// SetCollector attaches a timeline collector; nil detaches.
func (n *Node[T]) SetCollector(c *timeline.Collector) {
	n.mu.Lock()
	n.collector = c
	n.mu.Unlock()
}

// Color returns the display color recorded with the node's spans.
func (n *Node[T]) Color() timeline.Color {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.color
}

// SetColor changes the display color.
func (n *Node[T]) SetColor(c timeline.Color) {
	n.mu.Lock()
	n.color = c
	n.mu.Unlock()
}

// Invoke runs the bound function with a timing span around it, then fires
// the continuation cascade on the current goroutine.
//
// Precondition panics: invoking an unbound node, a function that returns
// with the node still StatusInvalid, and a continuation that was collected
// while still referenced are programmer errors, not runtime conditions.
func (n *Node[T]) Invoke() {
	n.mu.Lock()
	fn := n.fn
	collector := n.collector
	color := n.color
	n.mu.Unlock()
	if fn == nil {
		panic(fmt.Sprintf("task: invoke on unbound node %q", n.Name()))
	}

	// The span brackets the function only, not the cascade, and closes on
	// every exit path including panics.
	func() {
		span := collector.StartSpan(n.Name(), color)
		defer span.End()
		fn()
	}()

	if n.Status() == StatusInvalid {
		panic(fmt.Sprintf("task: function of node %q returned without leaving StatusInvalid", n.Name()))
	}
	if n.Status() != StatusDone {
		return
	}
	cont, set := n.Continuation()
	if !set {
		return
	}
	if cont == nil {
		panic(fmt.Sprintf("task: continuation of node %q was collected while still referenced", n.Name()))
	}
	cont.Invoke()
}
