package quiz

import (
	"sync"
	"time"
)

// TimerMode selects how a session clock counts down.
type TimerMode string

const (
	// TimerLocal decrements a fixed duration once per tick. Entirely
	// client-authoritative and vulnerable to suspension drift.
	TimerLocal TimerMode = "local"
	// TimerSynced recomputes remaining time from an absolute deadline on
	// every tick: max(0, deadline-now). Immune to tick drift.
	TimerSynced TimerMode = "synced"
)

// Clock is a session countdown. Reaching zero is terminal: Tick reports
// expiry exactly once, even if further ticks race in from overlapping
// timer callbacks.
type Clock struct {
	mu        sync.Mutex
	mode      TimerMode
	remaining int
	deadline  time.Time
	now       func() time.Time
	fired     bool
}

// NewLocalClock creates a clock that counts down a fixed duration.
func NewLocalClock(d time.Duration) *Clock {
	return &Clock{
		mode:      TimerLocal,
		remaining: int(d / time.Second),
		now:       time.Now,
	}
}

// NewSyncedClock creates a clock pinned to an absolute deadline.
func NewSyncedClock(deadline time.Time) *Clock {
	return &Clock{
		mode:     TimerSynced,
		deadline: deadline,
		now:      time.Now,
	}
}

// WithNow overrides the time source. Test hook.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	c.now = now
	return c
}

// Tick advances the clock by one period and returns the remaining seconds
// plus whether this tick crossed into expiry. The expired flag is raised at
// most once over the clock's lifetime.
func (c *Clock) Tick() (remaining int, expired bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case TimerLocal:
		if c.remaining > 0 {
			c.remaining--
		}
		remaining = c.remaining
	case TimerSynced:
		remaining = c.syncedRemaining()
		c.remaining = remaining
	}

	if remaining <= 0 && !c.fired {
		c.fired = true
		return remaining, true
	}
	return remaining, false
}

// Remaining reports the current remaining seconds without advancing the
// local countdown.
func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == TimerSynced {
		return c.syncedRemaining()
	}
	return c.remaining
}

func (c *Clock) syncedRemaining() int {
	d := c.deadline.Sub(c.now())
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
