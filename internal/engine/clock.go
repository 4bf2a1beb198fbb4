package engine

import "sync/atomic"

// Clock is a monotonic logical clock. Every applied action takes the next
// seq from it.
//
// Clock is safe for concurrent use, although the engine's single writer is
// normally the only caller of Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued seq without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
