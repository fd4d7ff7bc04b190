package settle

import (
	"sync"
	"time"
)

// Clock is the replay time source. It follows action timestamps and never
// moves backwards.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock to ts (unix seconds) if it is later.
func (c *Clock) Advance(ts uint64) {
	if ts == 0 {
		return
	}
	next := time.Unix(int64(ts), 0).UTC()
	c.mu.Lock()
	if next.After(c.now) {
		c.now = next
	}
	c.mu.Unlock()
}

// Set forces the clock, used when restoring a snapshot.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}
