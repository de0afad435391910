package trace

import "time"

// A Clock tells the time for record headers.
type Clock interface {
	// Ticks returns the current value of a monotonic high-resolution
	// counter.
	Ticks() uint64

	// TicksPerMS returns how many ticks make up one millisecond. The value
	// is recorded once, in the second metadata slot, so that consumers can
	// convert timestamps.
	TicksPerMS() uint64
}

// NewClock returns the default Clock, a monotonic nanosecond counter
// starting at the moment of the call.
func NewClock() Clock {
	return &monotonicClock{start: time.Now()}
}

type monotonicClock struct {
	start time.Time
}

func (c *monotonicClock) Ticks() uint64 {
	return uint64(time.Since(c.start))
}

func (c *monotonicClock) TicksPerMS() uint64 {
	return uint64(time.Millisecond)
}
