package testutil

import "sync"

// Counter is a thread-safe call counter for test doubles.
//
// Sessions run in parallel, so a policy or update that counts its calls
// must do so through a shared, locked counter.
type Counter struct {
	mu sync.Mutex
	n  int64
}

// Next increments and returns the count. The first call returns 1.
func (c *Counter) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

// Current returns the count without incrementing.
func (c *Counter) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset sets the count back to 0.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
