package session

import (
	"sync"
	"time"
)

// Clock abstracts the device clock so sessions are testable and so the
// practice mode's delta measurement can rely on Go's monotonic reading
// rather than the adjustable wall clock.
type Clock interface {
	// Now returns the current instant. Values from the real clock carry a
	// monotonic reading, so subtracting two of them is immune to NTP
	// corrections and user clock changes.
	Now() time.Time
}

// SystemClock reads the device clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// FakeClock is a manually-advanced clock for tests and headless simulation.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a fake clock pinned at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now implements Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
