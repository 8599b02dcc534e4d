package state

import "sync/atomic"

// idClock hands out monotonically increasing ids starting at zero.
// Ids are never reused for the lifetime of the clock.
type idClock struct {
	next int64
}

// Tick returns the next id.
func (c *idClock) Tick() int {
	return int(atomic.AddInt64(&c.next, 1) - 1)
}
