// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package buffer

// Ring is a fixed-capacity FIFO that overwrites its oldest element when
// full. It is not safe for concurrent use; Store serializes access.
type Ring[T any] struct {
	items []T
	head  int // index of the oldest element
	size  int
}

// NewRing creates a ring holding at most capacity elements.
// Capacity below 1 is raised to 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v. It reports whether the oldest element was overwritten.
func (r *Ring[T]) Push(v T) bool {
	capacity := len(r.items)
	if r.size < capacity {
		r.items[(r.head+r.size)%capacity] = v
		r.size++
		return false
	}
	r.items[r.head] = v
	r.head = (r.head + 1) % capacity
	return true
}

// Len returns the number of elements held.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.items) }

// Snapshot returns a copy of the elements, oldest first.
func (r *Ring[T]) Snapshot() []T {
	return r.Recent(r.size)
}

// Recent returns a copy of the newest n elements, oldest first.
func (r *Ring[T]) Recent(n int) []T {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	start := r.head + r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.items[(start+i)%len(r.items)]
	}
	return out
}
