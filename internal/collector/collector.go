// Package collector aggregates frame events from exerciser runs and
// formats a run summary.
package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"wsprobe/internal/core"
)

// bufferSize is how many events may be queued before Report starts dropping.
const bufferSize = 1000

// Collector aggregates events reported by concurrent runs.
type Collector struct {
	events    []core.Event
	ch        chan core.Event
	done      chan struct{}
	mu        sync.Mutex
	dropped   atomic.Int64
	clock     core.Clock
	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a Collector on the real clock and starts its collection goroutine.
func NewCollector() *Collector {
	return NewCollectorWithClock(core.RealClock{})
}

// NewCollectorWithClock is NewCollector with an injectable clock.
func NewCollectorWithClock(clock core.Clock) *Collector {
	c := &Collector{
		ch:        make(chan core.Event, bufferSize),
		done:      make(chan struct{}),
		clock:     clock,
		startTime: clock.Now(),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for event := range c.ch {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	}
	close(c.done)
}

// Report queues an event. It never blocks; events are dropped when the buffer is full.
func (c *Collector) Report(event core.Event) {
	select {
	case c.ch <- event:
	default:
		c.dropped.Add(1)
	}
}

// Close stops accepting events and waits until every queued event is stored.
func (c *Collector) Close() {
	c.mu.Lock()
	c.endTime = c.clock.Now()
	c.mu.Unlock()
	close(c.ch)
	<-c.done
}

// Events returns a copy of collected events.
func (c *Collector) Events() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]core.Event, len(c.events))
	copy(result, c.events)
	return result
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Duration returns start-to-close time, or start-to-now while still open.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	end := c.endTime
	c.mu.Unlock()
	if !end.IsZero() {
		return end.Sub(c.startTime)
	}
	return c.clock.Since(c.startTime)
}

// Compute computes metrics over everything collected so far.
func (c *Collector) Compute() *Metrics {
	return ComputeMetrics(c.Events(), c.Duration())
}
