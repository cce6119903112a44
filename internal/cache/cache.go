// Package cache provides a TTL-bounded key/value cache with in-process and
// Redis backends.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a TTL-bounded string cache.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, value string)
}

// entry is one stored value with its write timestamp.
type entry struct {
	value     string
	timestamp time.Time
}

// MemoryCache is a process-wide in-memory cache. Expired entries are dropped
// lazily on read and in bulk by Sweep.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewMemory creates an in-memory cache with the given TTL.
func NewMemory(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.nowFunc().Sub(e.timestamp) > c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

func (c *MemoryCache) Put(ctx context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, timestamp: c.nowFunc()}
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	dropped := 0
	for key, e := range c.entries {
		if now.Sub(e.timestamp) > c.ttl {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartSweeper sweeps periodically until ctx is cancelled.
func (c *MemoryCache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}
