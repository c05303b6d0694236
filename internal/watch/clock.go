package watch

import "sync/atomic"

// Sequencer issues the seq numbers that stamp passes. Implemented by Clock
// and by testutil.DeterministicClock.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock. Every pass and every fired action is
// stamped with the next seq, so traces and the firing log order identically
// on every run. Wall-clock time is never used for ordering.
//
// Clock is safe for concurrent use, though the Registry's single-writer
// design means only one goroutine normally calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start, used to resume after the
// last persisted seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
