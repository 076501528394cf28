package rpccall

import "sync/atomic"

// IDGenerator mints JSON-RPC request ids, monotonically increasing across
// the whole process. Wrapping on overflow is safe: ids only correlate one
// request/response pair and distinguish retries from each other, never a
// durable sequence number.
type IDGenerator struct {
	counter atomic.Uint64
}

// Next returns the next id. Safe for concurrent use by every in-flight
// provider goroutine.
func (g *IDGenerator) Next() uint64 {
	return g.counter.Add(1)
}
