// Package cache is a small TTL cache used to avoid re-reading slow-changing
// rows (agent profiles, property portfolios) on every inbound email.
package cache

import (
	"sync"
	"time"
)

type item struct {
	data      interface{}
	expiresAt time.Time
}

// Cache is a concurrency-safe in-memory cache with per-entry TTL.
type Cache struct {
	items map[string]*item
	mutex sync.RWMutex
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		items: make(map[string]*item),
	}
}

// Get retrieves an item. Expired entries read as absent; they are evicted
// lazily on the next Set.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	it, exists := c.items[key]
	if !exists || time.Now().After(it.expiresAt) {
		return nil, false
	}
	return it.data, true
}

// Set stores an item with a TTL, replacing any existing entry.
func (c *Cache) Set(key string, data interface{}, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
		}
	}
	c.items[key] = &item{
		data:      data,
		expiresAt: now.Add(ttl),
	}
}

// Delete removes an item.
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Clear removes all items.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]*item)
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}
