package engine

import (
	"sync"

	"github.com/wnxd/microhook/process"
)

// Cache memoizes one object lookup.
type Cache struct {
	mu sync.Mutex
	v  process.Pointer
}

// Get returns the cached value, resolving it first when it is empty or
// force is set.
func (c *Cache) Get(force bool, resolve func() process.Pointer) process.Pointer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.v.IsNil() || force {
		c.v = resolve()
	}
	return c.v
}

func (c *Cache) Reset() {
	c.mu.Lock()
	c.v = process.Pointer{}
	c.mu.Unlock()
}
