// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package buffer

import (
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/linewatch/internal/cache"
	"github.com/tomtom215/linewatch/internal/clock"
)

// DefaultCapacity is the per-line window size.
const DefaultCapacity = 60

// EvictFunc is told about a line that was dropped from the store.
type EvictFunc func(entityID string, reason cache.EvictReason)

// Options configures a Store.
type Options[T any] struct {
	// Capacity is the per-entity ring size. Zero means DefaultCapacity.
	Capacity int
	// MaxEntities bounds the number of tracked entities. Zero is unbounded.
	MaxEntities int
	// IdleTTL drops entities that received no append for this long.
	// Zero disables idle expiry.
	IdleTTL time.Duration
	Clock   clock.Clock
	// Clone deep-copies a sample on the way out of the store. Nil means
	// samples are returned as shallow copies, which is only safe for
	// types without reference fields.
	Clone func(T) T
}

// AppendResult describes the effect of one Append.
type AppendResult struct {
	// Size is the entity's buffer length after the append.
	Size int
	// Overwrote is true when the oldest sample was evicted to make room.
	Overwrote bool
	// Created is true when this append created the entity's buffer.
	Created bool
}

// Store holds one Ring per entity.
type Store[T any] struct {
	capacity int
	clone    func(T) T

	mu       sync.Mutex
	entities *cache.LRU[*Ring[T]]

	obsMu   sync.RWMutex
	onEvict map[uint64]EvictFunc
	nextObs uint64
}

// NewStore creates an empty store.
func NewStore[T any](opts Options[T]) *Store[T] {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	return &Store[T]{
		capacity: opts.Capacity,
		clone:    opts.Clone,
		entities: cache.NewLRU[*Ring[T]](opts.MaxEntities, opts.IdleTTL, opts.Clock),
		onEvict:  make(map[uint64]EvictFunc),
	}
}

// Capacity returns the per-entity ring size.
func (s *Store[T]) Capacity() int { return s.capacity }

// Append adds v to entityID's ring, creating the ring on first use.
func (s *Store[T]) Append(entityID string, v T) AppendResult {
	var res AppendResult
	var evicted []cache.Evicted[*Ring[T]]

	s.mu.Lock()
	ring, ok := s.entities.Peek(entityID)
	if ok {
		s.entities.Touch(entityID)
	} else {
		ring = NewRing[T](s.capacity)
		evicted = s.entities.Add(entityID, ring)
		res.Created = true
	}
	res.Overwrote = ring.Push(v)
	res.Size = ring.Len()
	s.mu.Unlock()

	s.notifyEvicted(evicted)
	return res
}

// Snapshot returns a copy of entityID's samples, oldest first. Unknown
// entities yield an empty slice.
func (s *Store[T]) Snapshot(entityID string) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ring, ok := s.entities.Peek(entityID); ok {
		return s.cloneAll(ring.Snapshot())
	}
	return []T{}
}

// Recent returns a copy of the newest n samples, oldest first.
func (s *Store[T]) Recent(entityID string, n int) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ring, ok := s.entities.Peek(entityID); ok {
		return s.cloneAll(ring.Recent(n))
	}
	return []T{}
}

func (s *Store[T]) cloneAll(out []T) []T {
	if s.clone != nil {
		for i := range out {
			out[i] = s.clone(out[i])
		}
	}
	return out
}

// Sizes returns the buffer length of every tracked entity.
func (s *Store[T]) Sizes() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make(map[string]int, s.entities.Len())
	s.entities.Range(func(id string, ring *Ring[T]) bool {
		sizes[id] = ring.Len()
		return true
	})
	return sizes
}

// Entities returns the tracked entity IDs in sorted order.
func (s *Store[T]) Entities() []string {
	ids := s.entities.Keys()
	sort.Strings(ids)
	return ids
}

// Len returns the number of tracked entities.
func (s *Store[T]) Len() int { return s.entities.Len() }

// Clear drops one entity. It reports whether the entity existed.
// Observers are not notified; the caller initiated the removal.
func (s *Store[T]) Clear(entityID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entities.Remove(entityID)
	return ok
}

// ClearAll drops every entity and returns how many were dropped.
func (s *Store[T]) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities.Clear())
}

// Sweep drops entities idle longer than the TTL and notifies observers.
// It returns the dropped entity IDs.
func (s *Store[T]) Sweep() []string {
	s.mu.Lock()
	evicted := s.entities.CleanupExpired()
	s.mu.Unlock()

	s.notifyEvicted(evicted)
	ids := make([]string, len(evicted))
	for i, e := range evicted {
		ids[i] = e.Key
	}
	return ids
}

// OnEvict registers fn for capacity and idle evictions. The returned
// function unregisters it.
func (s *Store[T]) OnEvict(fn EvictFunc) func() {
	s.obsMu.Lock()
	s.nextObs++
	id := s.nextObs
	s.onEvict[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.onEvict, id)
		s.obsMu.Unlock()
	}
}

func (s *Store[T]) notifyEvicted(evicted []cache.Evicted[*Ring[T]]) {
	if len(evicted) == 0 {
		return
	}
	s.obsMu.RLock()
	ids := make([]uint64, 0, len(s.onEvict))
	for id := range s.onEvict {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	observers := make([]EvictFunc, len(ids))
	for i, id := range ids {
		observers[i] = s.onEvict[id]
	}
	s.obsMu.RUnlock()

	for _, e := range evicted {
		for _, fn := range observers {
			fn(e.Key, e.Reason)
		}
	}
}
