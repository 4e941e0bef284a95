package utils

import (
	"sync"
	"time"
)

// Clock provides the current time. The dwell tracker reads time only through
// this interface, so replays and tests can drive it deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// ManualClock is a clock which only moves when told to. It is used for
// replaying recorded frames at their capture cadence and in tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a new ManualClock set to the given time.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the clock to a specific time.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
