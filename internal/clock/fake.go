package clock

import "time"

// FakeClock is a Clock pinned to an instant; time only moves when a
// test calls Advance. All instants are normalized to UTC, matching what
// the system clock hands out.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d. Not safe for concurrent use;
// tests advance from a single goroutine.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
