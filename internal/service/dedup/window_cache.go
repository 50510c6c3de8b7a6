package dedup

import (
	"context"
	"sync"
	"time"
)

// WindowCache is an in-process signal cache. A key is accepted when it has
// no live entry, or when its last acceptance is at least window old. Marking
// happens before downstream execution starts, so concurrent duplicates of an
// in-flight signal stay suppressed.
//
// Expired entries are swept on each Mark to bound growth.
type WindowCache struct {
	mu     sync.Mutex
	window time.Duration
	m      map[string]time.Time
}

// NewWindowCache creates an empty cache with the given suppression window.
func NewWindowCache(window time.Duration) *WindowCache {
	return &WindowCache{
		window: window,
		m:      make(map[string]time.Time),
	}
}

// Mark reports whether the signal identified by key should be processed,
// recording now against key on acceptance.
func (c *WindowCache) Mark(_ context.Context, key string, now time.Time) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep(now)

	last, ok := c.m[key]
	if ok && now.Sub(last) < c.window {
		return false, nil
	}

	c.m[key] = now
	return true, nil
}

// Len reports live entries, for tests and diagnostics.
func (c *WindowCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *WindowCache) sweep(now time.Time) {
	for k, t := range c.m {
		if now.Sub(t) >= c.window {
			delete(c.m, k)
		}
	}
}
