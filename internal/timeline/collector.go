// Package timeline records named, colored time intervals around task
// execution so a run can be profiled after the fact.
package timeline

import (
	"sync"
	"time"
)

// Color is an RGB display hint attached to recorded intervals.
type Color [3]float32

// DefaultColor is used for tasks that declare no color of their own.
var DefaultColor = Color{0.5, 0.5, 0.5}

// Interval is one closed span of work.
type Interval struct {
	Name  string
	Color Color
	Start time.Time
	End   time.Time
}

// Elapsed returns the interval's duration.
func (iv Interval) Elapsed() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Collector accumulates intervals from concurrently running tasks. All
// methods are safe for concurrent use and tolerate a nil receiver, so
// instrumentation can stay in the call path and be toggled by wiring alone.
type Collector struct {
	mu        sync.Mutex
	intervals []Interval
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{}
}

// Span is an open interval. End closes it and records it on the collector
// that started it.
type Span struct {
	c     *Collector
	name  string
	color Color
	start time.Time
}

// StartSpan opens a span at the current time. On a nil collector the
// returned span records nothing.
func (c *Collector) StartSpan(name string, color Color) *Span {
	if c == nil {
		return &Span{}
	}
	return &Span{c: c, name: name, color: color, start: time.Now()}
}

// End closes the span and records the interval.
func (s *Span) End() {
	if s == nil || s.c == nil {
		return
	}
	iv := Interval{Name: s.name, Color: s.color, Start: s.start, End: time.Now()}
	s.c.mu.Lock()
	s.c.intervals = append(s.c.intervals, iv)
	s.c.mu.Unlock()
}

// Intervals returns a copy of everything recorded so far.
func (c *Collector) Intervals() []Interval {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Interval, len(c.intervals))
	copy(out, c.intervals)
	return out
}

// Named returns the recorded intervals carrying the given name.
func (c *Collector) Named(name string) []Interval {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Interval
	for _, iv := range c.intervals {
		if iv.Name == name {
			out = append(out, iv)
		}
	}
	return out
}

// Len reports how many intervals have been recorded.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.intervals)
}

// Reset discards all recorded intervals.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intervals = nil
}
