// Discourse Bridge - CMS to Discourse Forum Synchronization
// Copyright 2026 Quill CMS contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/quillcms/discourse-bridge

// Package cache provides a thread-safe in-memory response cache with TTL
// expiry. It is intentionally narrow: the bridge keeps a handful of
// low-cardinality entries (the category list, the latest-comments digest),
// so there is no LRU or size bound, only per-entry expiry.
package cache

import (
	"sync"
	"time"
)

// Entry represents a cached item with an explicit expiration time.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache is a TTL key/value cache. A read past the entry's expiry is a miss
// and removes the entry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry

	// now is replaceable in tests to drive expiry deterministically.
	now func() time.Time

	stats Stats
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Get retrieves a value by key. Returns (nil, false) when the key is absent
// or the entry has expired; expired entries are deleted on read.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}

	if c.now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.stats.Evictions++
		c.mu.Unlock()
		c.recordMiss()
		return nil, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return entry.Data, true
}

// Set stores a value with the given TTL, overwriting any existing entry.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: c.now().Add(ttl),
	}
}

// Delete removes a cache entry. No-op for absent keys.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.stats.Evictions++
	}
}

// Clear removes all entries in a single operation.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Evictions += int64(len(c.entries))
	c.entries = make(map[string]Entry)
}

// Len returns the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// SetClock replaces the cache's time source. Test helper.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// StartCleanup launches a background sweep that drops expired entries
// every interval. The returned stop function ends the sweep; it is safe
// to call once.
func (c *Cache) StartCleanup(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
	return func() { close(done) }
}

// sweep removes all expired entries.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			c.stats.Evictions++
		}
	}
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}
