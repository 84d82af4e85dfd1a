package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LookupMiss(t *testing.T) {
	c := New()
	_, ok := c.Lookup("nope")
	assert.False(t, ok)
}

func TestCache_StoreThenLookup(t *testing.T) {
	c := New()
	c.Store("hash-1", "hello there")

	text, ok := c.Lookup("hash-1")
	require.True(t, ok)
	assert.Equal(t, "hello there", text)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	now := time.Now()
	c := New()
	c.now = func() time.Time { return now }

	c.Store("hash-1", "hello there")

	c.now = func() time.Time { return now.Add(c.ttl) }
	_, ok := c.Lookup("hash-1")
	assert.False(t, ok, "entry should no longer be fresh once TTL has elapsed")
}

func TestCache_EvictsStaleEntriesOnStore(t *testing.T) {
	now := time.Now()
	c := New()
	c.now = func() time.Time { return now }
	c.Store("old", "stale response")

	c.now = func() time.Time { return now.Add(c.evictAfter + time.Second) }
	c.Store("new", "fresh response")

	assert.Equal(t, 1, c.Len(), "the stale entry should have been swept")
	_, ok := c.Lookup("old")
	assert.False(t, ok)
}

func TestNewWithTTL_UsesConfiguredWindow(t *testing.T) {
	now := time.Now()
	c := NewWithTTL(5 * time.Second)
	c.now = func() time.Time { return now }
	c.Store("hash-1", "hello there")

	c.now = func() time.Time { return now.Add(5 * time.Second) }
	_, ok := c.Lookup("hash-1")
	assert.False(t, ok, "a 5s window should expire after 5s, not the 15s default")
}
