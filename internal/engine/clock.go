package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is the engine-local millisecond time source. Implementations never
// return 0, which the note store reserves for empty slots.
type Clock interface {
	Now() float64
}

// MonotonicClock reads the runtime's monotonic clock. Both execution
// contexts share one instance so note timestamps and frame times agree.
type MonotonicClock struct {
	start  time.Time
	offset atomic.Int64
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

func (c *MonotonicClock) Now() float64 {
	ns := time.Since(c.start).Nanoseconds() - c.offset.Load()
	return float64(ns)/1e6 + 1
}

// Rebase moves the epoch to the current instant. Note times are stored as
// float32 milliseconds, so hosts rebase whenever the engine is idle to keep
// them small.
func (c *MonotonicClock) Rebase() {
	c.offset.Store(time.Since(c.start).Nanoseconds())
}

// ManualClock is advanced explicitly; used for offline rendering and tests.
type ManualClock struct {
	mu  sync.Mutex
	now float64
}

func NewManualClock(start float64) *ManualClock {
	if start <= 0 {
		start = 1
	}
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(ms float64) {
	c.mu.Lock()
	c.now = ms
	c.mu.Unlock()
}

func (c *ManualClock) Advance(ms float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ms
	return c.now
}
