// Package clock abstracts wall-clock access so services never read time
// ambiently. Adjustment effective dates and billing-cycle computations all go
// through an injected Clock.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time in UTC
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// New returns a Clock backed by the system clock
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TestClock is a settable Clock for tests
type TestClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewTestClock(now time.Time) *TestClock {
	return &TestClock{now: now.UTC()}
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *TestClock) SetNow(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}

func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
