// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/models"
)

// HistoryFunc receives the full buffered history of one line, oldest first.
type HistoryFunc func(lineID string, history []models.Sample)

// LatestFunc receives the throttled latest sample of one line.
type LatestFunc func(lineID string, sample models.Sample)

// AlarmFunc receives raised and acknowledged alarms.
type AlarmFunc func(models.Alarm)

// allLines is the registry key for subscribers interested in every line.
const allLines = ""

type subscriber[F any] struct {
	fn     F
	active atomic.Bool
}

// registry holds callbacks keyed by line. Snapshots are taken under the
// lock and callbacks run outside it.
type registry[F any] struct {
	mu    sync.RWMutex
	byKey map[string]map[uint64]*subscriber[F]
	order map[string][]uint64
	next  uint64
}

func newRegistry[F any]() *registry[F] {
	return &registry[F]{
		byKey: make(map[string]map[uint64]*subscriber[F]),
		order: make(map[string][]uint64),
	}
}

func (r *registry[F]) add(key string, fn F) (*subscriber[F], func()) {
	sub := &subscriber[F]{fn: fn}
	sub.active.Store(true)

	r.mu.Lock()
	r.next++
	id := r.next
	if r.byKey[key] == nil {
		r.byKey[key] = make(map[uint64]*subscriber[F])
	}
	r.byKey[key][id] = sub
	r.order[key] = append(r.order[key], id)
	r.mu.Unlock()

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			sub.active.Store(false)
			r.remove(key, id)
		})
	}
}

func (r *registry[F]) remove(key string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byKey[key], id)
	ids := r.order[key]
	for i, v := range ids {
		if v == id {
			r.order[key] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(r.byKey[key]) == 0 {
		delete(r.byKey, key)
		delete(r.order, key)
	}
}

// snapshot returns the subscribers for key in registration order.
func (r *registry[F]) snapshot(key string) []*subscriber[F] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.order[key]
	out := make([]*subscriber[F], 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byKey[key][id])
	}
	return out
}

func (r *registry[F]) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, subs := range r.byKey {
		n += len(subs)
	}
	return n
}

// each calls fn for every active subscriber of key, isolating panics.
func (r *registry[F]) each(key string, fn func(F)) {
	for _, sub := range r.snapshot(key) {
		if sub.active.Load() {
			guard(key, func() { fn(sub.fn) })
		}
	}
}

func guard(key string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error().Str("line_id", key).Interface("panic", rec).Msg("Subscriber panicked")
		}
	}()
	fn()
}
