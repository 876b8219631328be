package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/paintergame/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Scheduled callbacks only run from Advance, synchronously on the caller's goroutine.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*mockTimer
	nextSeq int
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

type mockTimer struct {
	clock    *MockClock
	deadline time.Time
	seq      int
	fn       func()
	fired    bool
	stopped  bool
}

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{current: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc registers f to run once the clock has been advanced by d
func (c *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &mockTimer{
		clock:    c,
		deadline: c.current.Add(d),
		seq:      c.nextSeq,
		fn:       f,
	}
	c.nextSeq++
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing due timers in deadline order.
// The clock reads each timer's deadline while its callback runs.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.popDue(target)
		if next == nil {
			c.current = target
			c.mu.Unlock()
			return
		}
		c.current = next.deadline
		next.fired = true
		c.mu.Unlock()

		next.fn()
	}
}

// Set sets the clock to the given time without firing timers
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// PendingTimers returns the number of scheduled, unfired timers
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// popDue removes and returns the earliest timer due at or before target. Caller holds mu.
func (c *MockClock) popDue(target time.Time) *mockTimer {
	idx := -1
	for i, t := range c.timers {
		if t.deadline.After(target) {
			continue
		}
		if idx == -1 || t.deadline.Before(c.timers[idx].deadline) ||
			(t.deadline.Equal(c.timers[idx].deadline) && t.seq < c.timers[idx].seq) {
			idx = i
		}
	}
	if idx == -1 {
		return nil
	}
	t := c.timers[idx]
	c.timers = append(c.timers[:idx], c.timers[idx+1:]...)
	return t
}

// Stop cancels the timer if it has not fired yet
func (t *mockTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			break
		}
	}
	return true
}
