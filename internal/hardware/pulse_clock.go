package hardware

import (
	"sync"
	"time"
)

// resyncAfter bounds how far a mapped timestamp may lag the wall clock
// before the anchor is taken again (suspend, clock steps).
const resyncAfter = 5 * time.Second

// eventClock maps kernel event timestamps, which share an unspecified epoch,
// onto wall time. The first event anchors the mapping; later events keep the
// kernel's spacing, so handler latency does not leak into pulse intervals.
type eventClock struct {
	now func() time.Time

	mu     sync.Mutex
	anchor time.Time
	base   time.Duration
	set    bool
}

func newEventClock(now func() time.Time) *eventClock {
	if now == nil {
		now = time.Now
	}
	return &eventClock{now: now}
}

// at returns the wall time of an event stamped ts. A missing timestamp
// falls back to the current time.
func (c *eventClock) at(ts time.Duration) time.Time {
	now := c.now()
	if ts <= 0 {
		return now
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set && ts >= c.base {
		t := c.anchor.Add(ts - c.base)
		if !t.After(now) && now.Sub(t) <= resyncAfter {
			return t
		}
	}
	c.anchor, c.base, c.set = now, ts, true
	return now
}
