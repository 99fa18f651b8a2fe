package metrics

import "sync/atomic"

// UCounter is an unsigned atomic counter, read by the HTTP surface while the
// run loop increments it.
type UCounter struct {
	value uint64
}

// Add adds delta to the counter.
func (c *UCounter) Add(delta uint64) uint64 {
	return atomic.AddUint64(&c.value, delta)
}

// Inc increments by 1.
func (c *UCounter) Inc() uint64 {
	return atomic.AddUint64(&c.value, 1)
}

// Load returns the current value.
func (c *UCounter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}
