// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

// Package throttle rate-limits per-entity "latest value" updates with a
// trailing-edge throttle.
//
// For each entity the Projector publishes at most once per interval. An
// update that arrives inside the window is held as pending and published
// when the window closes, with later updates replacing earlier pending
// ones. A burst therefore yields one immediate publish and one trailing
// publish carrying the last value of the burst; nothing is published when
// nothing changed.
package throttle

import (
	"sync"
	"time"

	"github.com/tomtom215/linewatch/internal/clock"
)

// DefaultInterval is the minimum spacing between publishes of one entity.
const DefaultInterval = time.Second

// Publisher receives projected values. It is called without the projector
// lock held and may call back into the projector.
//
// Publishes of one entity are serialized and never go backwards. A value
// produced while the publisher runs for the same entity is delivered after
// it returns, and a value older than one already delivered is dropped.
type Publisher[T any] func(entityID string, v T)

// Option configures a Projector.
type Option[T any] func(*Projector[T])

// WithClone makes the projector hand out copies made by fn, so publishers
// and readers never share memory with the retained latest value.
func WithClone[T any](fn func(T) T) Option[T] {
	return func(p *Projector[T]) { p.clone = fn }
}

type entityState[T any] struct {
	published   bool
	lastPublish time.Time
	latest      T
	seq         uint64 // guarded by Projector.mu

	pubMu      sync.Mutex
	delivering bool
	next       T
	nextSeq    uint64
	delivered  uint64

	hasPending bool
	pending    T
	timer      clock.Timer
}

// Projector is a per-entity trailing-edge throttle.
type Projector[T any] struct {
	interval time.Duration
	clock    clock.Clock
	publish  Publisher[T]
	clone    func(T) T

	mu       sync.Mutex
	entities map[string]*entityState[T]
	stopped  bool

	deferred uint64
}

// New creates a Projector. A non-positive interval uses DefaultInterval.
func New[T any](interval time.Duration, clk clock.Clock, publish Publisher[T], opts ...Option[T]) *Projector[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clk == nil {
		clk = clock.Real()
	}
	if publish == nil {
		publish = func(string, T) {}
	}
	p := &Projector[T]{
		interval: interval,
		clock:    clk,
		publish:  publish,
		entities: make(map[string]*entityState[T]),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Update offers a new value for entityID. It is published immediately when
// the entity has not published within the interval, otherwise it becomes
// the pending value of the single deferred publish.
func (p *Projector[T]) Update(entityID string, v T) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}

	st, ok := p.entities[entityID]
	if !ok {
		st = &entityState[T]{}
		p.entities[entityID] = st
	}

	now := p.clock.Now()
	elapsed := now.Sub(st.lastPublish)
	if !st.published || elapsed >= p.interval {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		var zero T
		st.hasPending = false
		st.pending = zero
		st.published = true
		st.lastPublish = now
		st.latest = v
		st.seq++
		seq := st.seq
		p.mu.Unlock()

		p.deliver(entityID, st, seq, v)
		return
	}

	st.pending = v
	st.hasPending = true
	if st.timer == nil {
		p.deferred++
		st.timer = p.clock.AfterFunc(p.interval-elapsed, func() {
			p.flush(entityID, st)
		})
	}
	p.mu.Unlock()
}

// flush publishes st's pending value if st is still the live state for
// entityID and the projector has not been stopped.
func (p *Projector[T]) flush(entityID string, st *entityState[T]) {
	p.mu.Lock()
	if p.stopped || p.entities[entityID] != st {
		p.mu.Unlock()
		return
	}
	st.timer = nil
	if !st.hasPending {
		p.mu.Unlock()
		return
	}

	v := st.pending
	var zero T
	st.pending = zero
	st.hasPending = false
	st.lastPublish = p.clock.Now()
	st.latest = v
	st.seq++
	seq := st.seq
	p.mu.Unlock()

	p.deliver(entityID, st, seq, v)
}

// deliver hands v to the publisher unless a newer value of the same entity
// was already delivered or queued. Only one goroutine publishes an entity at
// a time; values queued meanwhile are picked up by that goroutine.
func (p *Projector[T]) deliver(entityID string, st *entityState[T], seq uint64, v T) {
	st.pubMu.Lock()
	if seq <= st.delivered || seq <= st.nextSeq {
		st.pubMu.Unlock()
		return
	}
	st.next, st.nextSeq = v, seq
	if st.delivering {
		st.pubMu.Unlock()
		return
	}
	st.delivering = true
	for st.nextSeq > st.delivered {
		out := st.next
		st.delivered = st.nextSeq
		st.pubMu.Unlock()

		p.publish(entityID, p.copyOf(out))

		st.pubMu.Lock()
	}
	var zero T
	st.next = zero
	st.delivering = false
	st.pubMu.Unlock()
}

func (p *Projector[T]) copyOf(v T) T {
	if p.clone == nil {
		return v
	}
	return p.clone(v)
}

// Latest returns the last value published for entityID.
func (p *Projector[T]) Latest(entityID string) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.entities[entityID]; ok && st.published {
		return p.copyOf(st.latest), true
	}
	var zero T
	return zero, false
}

// All returns the last published value of every entity.
func (p *Projector[T]) All() map[string]T {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]T, len(p.entities))
	for id, st := range p.entities {
		if st.published {
			out[id] = p.copyOf(st.latest)
		}
	}
	return out
}

// Forget drops entityID's state and cancels its deferred publish.
func (p *Projector[T]) Forget(entityID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.entities[entityID]; ok {
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(p.entities, entityID)
	}
}

// Reset forgets every entity without stopping the projector.
func (p *Projector[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

// Stop cancels all deferred publishes and drops all state. Updates are
// ignored until Start is called. Stop is idempotent.
func (p *Projector[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.resetLocked()
}

// Start re-enables a stopped projector.
func (p *Projector[T]) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = false
}

// Pending returns the number of entities with a deferred publish queued.
func (p *Projector[T]) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, st := range p.entities {
		if st.hasPending {
			n++
		}
	}
	return n
}

// DeferredTotal returns how many deferred publishes were ever scheduled.
func (p *Projector[T]) DeferredTotal() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deferred
}

func (p *Projector[T]) resetLocked() {
	for _, st := range p.entities {
		if st.timer != nil {
			st.timer.Stop()
		}
	}
	p.entities = make(map[string]*entityState[T])
}
