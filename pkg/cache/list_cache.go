package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultListTTL bounds staleness of list entries that were never
	// explicitly invalidated (e.g. out-of-band store changes).
	DefaultListTTL = 5 * time.Minute

	defaultListCapacity = 512
)

// CachedPage is one list result page plus its unpaginated total.
type CachedPage struct {
	Items []CachedItem
	Total int64
}

// ListCache is an in-process expirable LRU keyed by the full query
// signature (filter + sort + page). Query signatures are unbounded, so
// invalidation is deliberately coarse: every mutation purges the whole
// cache — correctness over precision.
type ListCache struct {
	lru *expirable.LRU[string, CachedPage]
}

// NewListCache creates a ListCache holding up to capacity pages for at most
// ttl each. Non-positive arguments fall back to the package defaults.
func NewListCache(capacity int, ttl time.Duration) *ListCache {
	if capacity <= 0 {
		capacity = defaultListCapacity
	}
	if ttl <= 0 {
		ttl = DefaultListTTL
	}
	return &ListCache{lru: expirable.NewLRU[string, CachedPage](capacity, nil, ttl)}
}

// Get returns the cached page for the signature, if present.
func (c *ListCache) Get(signature string) (CachedPage, bool) {
	return c.lru.Get(signature)
}

// Set stores a page under the signature.
func (c *ListCache) Set(signature string, page CachedPage) {
	c.lru.Add(signature, page)
}

// Purge drops every cached page. Called before any mutation is acknowledged.
func (c *ListCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached pages (for tests and metrics).
func (c *ListCache) Len() int {
	return c.lru.Len()
}
