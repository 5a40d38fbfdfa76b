// Package clock implements the simulator's logical clock: a single
// monotonically increasing integer, owned by the driver and passed
// explicitly to every call into the coordinator.
package clock

// Clock is a monotonically increasing counter of simulator ticks.
// It is not safe for concurrent use; the simulator is single-threaded.
type Clock struct {
	now int64
}

// New returns a clock starting at tick 0.
func New() *Clock {
	return &Clock{}
}

// Tick advances the clock by one and returns the new value.
func (c *Clock) Tick() int64 {
	c.now++
	return c.now
}

// Now returns the current tick without advancing it.
func (c *Clock) Now() int64 {
	return c.now
}
