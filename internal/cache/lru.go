// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/linewatch/internal/clock"
)

// EvictReason says why an entry left the cache.
type EvictReason string

const (
	// EvictCapacity means the entry was least recently used when a new key
	// pushed the cache over capacity.
	EvictCapacity EvictReason = "capacity"
	// EvictExpired means the entry sat idle longer than the TTL.
	EvictExpired EvictReason = "expired"
)

// Evicted is one entry removed by Add or CleanupExpired.
type Evicted[V any] struct {
	Key    string
	Value  V
	Reason EvictReason
}

type lruEntry[V any] struct {
	key       string
	value     V
	prev      *lruEntry[V]
	next      *lruEntry[V]
	expiresAt time.Time
}

// LRU is a thread-safe least recently used index with idle expiration.
//
// Add and Touch refresh both recency and expiry. Peek and Range never do,
// so readers cannot keep an idle entry alive. Expiry is enforced only by
// CleanupExpired; Peek still returns an expired entry until it is swept.
type LRU[V any] struct {
	mu sync.RWMutex

	capacity int
	// ttl of zero disables expiry.
	ttl   time.Duration
	clock clock.Clock

	items map[string]*lruEntry[V]

	// head.next is the most recently used, tail.prev the least.
	head *lruEntry[V]
	tail *lruEntry[V]
}

// NewLRU creates an LRU holding at most capacity entries.
// A non-positive capacity means unbounded.
func NewLRU[V any](capacity int, ttl time.Duration, clk clock.Clock) *LRU[V] {
	if clk == nil {
		clk = clock.Real()
	}
	if ttl < 0 {
		ttl = 0
	}
	c := &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		clock:    clk,
		items:    make(map[string]*lruEntry[V]),
		head:     &lruEntry[V]{},
		tail:     &lruEntry[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Peek returns the value for key without touching recency.
func (c *LRU[V]) Peek(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.items[key]; ok {
		return entry.value, true
	}
	var zero V
	return zero, false
}

// Touch marks key as just used. It reports whether key was present.
func (c *LRU[V]) Touch(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[key]
	if !ok {
		return false
	}
	entry.expiresAt = c.expiry()
	c.moveToFront(entry)
	return true
}

// Add inserts or replaces key and marks it most recently used. Entries
// pushed out by capacity are returned.
func (c *LRU[V]) Add(key string, value V) []Evicted[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = c.expiry()
		c.moveToFront(entry)
		return nil
	}

	entry := &lruEntry[V]{key: key, value: value, expiresAt: c.expiry()}
	c.addToFront(entry)
	c.items[key] = entry

	var evicted []Evicted[V]
	for c.capacity > 0 && len(c.items) > c.capacity {
		oldest := c.tail.prev
		c.removeEntry(oldest)
		evicted = append(evicted, Evicted[V]{Key: oldest.key, Value: oldest.value, Reason: EvictCapacity})
	}
	return evicted
}

// Remove deletes key. It returns the removed value and whether it existed.
func (c *LRU[V]) Remove(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return entry.value, true
	}
	var zero V
	return zero, false
}

// Len returns the number of entries.
func (c *LRU[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns keys from most to least recently used.
func (c *LRU[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.items))
	for e := c.head.next; e != c.tail; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}

// Range calls fn for each entry from most to least recently used until fn
// returns false. fn must not call back into the LRU.
func (c *LRU[V]) Range(fn func(key string, value V) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for e := c.head.next; e != c.tail; e = e.next {
		if !fn(e.key, e.value) {
			return
		}
	}
}

// Clear removes all entries and returns them.
func (c *LRU[V]) Clear() []Evicted[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := make([]Evicted[V], 0, len(c.items))
	for e := c.head.next; e != c.tail; e = e.next {
		removed = append(removed, Evicted[V]{Key: e.key, Value: e.value})
	}
	c.items = make(map[string]*lruEntry[V])
	c.head.next = c.tail
	c.tail.prev = c.head
	return removed
}

// CleanupExpired removes entries idle longer than the TTL and returns them,
// oldest first.
func (c *LRU[V]) CleanupExpired() []Evicted[V] {
	if c.ttl == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var removed []Evicted[V]
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.removeEntry(entry)
			removed = append(removed, Evicted[V]{Key: entry.key, Value: entry.value, Reason: EvictExpired})
		}
		entry = prev
	}
	return removed
}

// Internal methods (must be called with lock held)

func (c *LRU[V]) expiry() time.Time {
	if c.ttl == 0 {
		return time.Time{}
	}
	return c.clock.Now().Add(c.ttl)
}

func (c *LRU[V]) addToFront(entry *lruEntry[V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRU[V]) moveToFront(entry *lruEntry[V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRU[V]) removeEntry(entry *lruEntry[V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}
