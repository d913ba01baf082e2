package engine

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic logical clock for ordering appearance events.
//
// Every event recorded by the avatar sink and the appearance manager carries
// a seq from Next, so two runs of the same scenario produce the same trace.
//
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// The CLI resumes from the last seq in the persisted event log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// WallClock reads elapsed real time. Only timeouts depend on it.
type WallClock interface {
	Now() time.Time
}

// SystemClock is the WallClock backed by time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
