// Package credcache is a bounded, expiring LRU used by the auth middleware
// to avoid a user lookup on every request. It is an optimization only:
// a miss falls through to the database.
package credcache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache maps user ids to values of type V. Safe for concurrent use.
// Expired entries are dropped on read and by the LRU's own background
// cleanup.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

// New creates a cache holding at most max entries for ttl each.
// A non-positive max means 10000; a non-positive ttl means one minute.
func New[V any](max int, ttl time.Duration) *Cache[V] {
	if max <= 0 {
		max = 10000
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache[V]{lru: expirable.NewLRU[string, V](max, nil, ttl)}
}

// Get returns the value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Set stores val under key, evicting the least recently used entry when full.
func (c *Cache[V]) Set(key string, val V) {
	c.lru.Add(key, val)
}

// Delete drops key.
func (c *Cache[V]) Delete(key string) {
	c.lru.Remove(key)
}

// Len returns the number of entries, including expired ones not yet cleaned up.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}
