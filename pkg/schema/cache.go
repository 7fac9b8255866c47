package schema

import (
	"sync/atomic"
)

// Cache holds the session's schema snapshot. Sessions share it read-only;
// concurrent refreshes are idempotent, so the last writer wins and no
// locking is needed beyond the atomic pointer swap.
type Cache struct {
	current atomic.Pointer[Descriptor]
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached descriptor, or nil if none has been stored.
func (c *Cache) Get() *Descriptor {
	return c.current.Load()
}

// Set replaces the cached descriptor.
func (c *Cache) Set(d *Descriptor) {
	c.current.Store(d)
}

// Invalidate drops the cached descriptor. Called when the underlying
// connection changes.
func (c *Cache) Invalidate() {
	c.current.Store(nil)
}
