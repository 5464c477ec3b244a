// Package dedup remembers recently seen message IDs so webhook retries
// and provider redeliveries are dropped before they reach a worker.
package dedup

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultWindow = 5 * time.Minute

// Cache is a TTL-bounded set of message keys. Seen reports and records
// in one step so two concurrent deliveries of the same message cannot
// both pass.
type Cache struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, struct{}]
}

// New builds a cache with the given window. A non-positive window falls
// back to the default five minutes.
func New(window time.Duration) *Cache {
	if window <= 0 {
		window = defaultWindow
	}
	// Size 0 keeps the cache unbounded; entries leave only by TTL, so a
	// duplicate inside the window is never missed.
	return &Cache{lru: expirable.NewLRU[string, struct{}](0, nil, window)}
}

// Seen records key and reports whether it was already present. The
// first call for a key returns false, later calls inside the window
// return true.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lru.Get(key); ok {
		return true
	}
	c.lru.Add(key, struct{}{})
	return false
}

// Len reports the number of live entries, for introspection.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
