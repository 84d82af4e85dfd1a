// Package dedup implements the bounded, time-windowed response cache
// that absorbs the voice platform resending an already-completed turn
// after a transient disconnect (spec §4.C).
package dedup

import (
	"sync"
	"time"
)

// DefaultTTL is how long a stored response is considered fresh for
// lookup, matching spec §6's DEDUP_WINDOW_MS default.
const DefaultTTL = 15 * time.Second

type entry struct {
	responseText string
	insertedAt   time.Time
}

// Cache maps a request fingerprint to the last LLM response text
// produced for it. It stores only LLM-produced content, never buffer or
// keep-alive filler — callers are responsible for that separation.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	evictAfter time.Duration
	now        func() time.Time
}

// New creates an empty cache using DefaultTTL.
func New() *Cache {
	return NewWithTTL(DefaultTTL)
}

// NewWithTTL creates an empty cache whose freshness window is ttl
// (DEDUP_WINDOW_MS), sweeping entries on Store once they are more than
// 2x ttl old.
func NewWithTTL(ttl time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		evictAfter: 2 * ttl,
		now:        time.Now,
	}
}

// Lookup returns the stored text for hash if it was inserted less than
// ttl ago, and whether a fresh entry was found at all.
func (c *Cache) Lookup(hash string) (text string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[hash]
	if !found {
		return "", false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		return "", false
	}
	return e.responseText, true
}

// Store records text under hash and opportunistically evicts any entry
// older than 2x ttl, bounding the cache to the set of fingerprints seen
// within that window.
func (c *Cache) Store(hash, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[hash] = entry{responseText: text, insertedAt: now}

	for k, e := range c.entries {
		if now.Sub(e.insertedAt) > c.evictAfter {
			delete(c.entries, k)
		}
	}
}

// Len reports the number of live entries, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
