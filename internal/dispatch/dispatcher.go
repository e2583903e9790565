// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

// Package dispatch routes parsed feed frames to subscribers by message type.
//
// Dispatch is synchronous: every subscriber registered for a frame's type
// runs, in registration order, before Dispatch returns. Subscribers to the
// wildcard type "*" run after the type-specific ones. A subscriber that
// returns an error or panics is isolated; the failure is reported to error
// observers and delivery continues with the next subscriber.
//
// The subscriber lists are copy-on-write, so subscribing or unsubscribing
// from inside a handler is safe. A subscription removed while a frame is
// being delivered is not called for that frame.
package dispatch

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/metrics"
	"github.com/tomtom215/linewatch/internal/models"
)

// Handler receives one frame.
type Handler func(models.Frame) error

// ErrorFunc observes protocol and handler errors.
type ErrorFunc func(error)

type subscription struct {
	id      uint64
	msgType string
	fn      Handler
	active  atomic.Bool
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Dispatched     uint64 `json:"dispatched"`
	ProtocolErrors uint64 `json:"protocol_errors"`
	HandlerErrors  uint64 `json:"handler_errors"`
	Subscribers    int    `json:"subscribers"`
}

// Dispatcher routes frames to subscribers.
type Dispatcher struct {
	mu     sync.Mutex
	subs   map[string][]*subscription
	nextID uint64

	errMu     sync.RWMutex
	errObs    map[uint64]ErrorFunc
	nextErrID uint64

	dispatched     atomic.Uint64
	protocolErrors atomic.Uint64
	handlerErrors  atomic.Uint64
}

// New creates an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		subs:   make(map[string][]*subscription),
		errObs: make(map[uint64]ErrorFunc),
	}
}

// Subscribe registers fn for msgType ("*" for every frame). The returned
// function unsubscribes; calling it more than once is harmless.
func (d *Dispatcher) Subscribe(msgType string, fn Handler) func() {
	d.mu.Lock()
	d.nextID++
	sub := &subscription{id: d.nextID, msgType: msgType, fn: fn}
	sub.active.Store(true)

	current := d.subs[msgType]
	next := make([]*subscription, len(current), len(current)+1)
	copy(next, current)
	d.subs[msgType] = append(next, sub)
	d.mu.Unlock()

	metrics.DispatchSubscribers.Inc()

	var once sync.Once
	return func() {
		once.Do(func() { d.unsubscribe(sub) })
	}
}

func (d *Dispatcher) unsubscribe(sub *subscription) {
	sub.active.Store(false)

	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.subs[sub.msgType]
	next := make([]*subscription, 0, len(current))
	for _, s := range current {
		if s != sub {
			next = append(next, s)
		}
	}
	if len(next) == 0 {
		delete(d.subs, sub.msgType)
	} else {
		d.subs[sub.msgType] = next
	}
	metrics.DispatchSubscribers.Dec()
}

// OnError registers fn to observe protocol and handler errors.
func (d *Dispatcher) OnError(fn ErrorFunc) func() {
	d.errMu.Lock()
	d.nextErrID++
	id := d.nextErrID
	d.errObs[id] = fn
	d.errMu.Unlock()

	return func() {
		d.errMu.Lock()
		delete(d.errObs, id)
		d.errMu.Unlock()
	}
}

// Dispatch parses raw and delivers it. Malformed frames are dropped and
// reported as *ProtocolError; Dispatch itself never fails.
func (d *Dispatcher) Dispatch(raw []byte) {
	frame, err := Parse(raw)
	if err != nil {
		d.protocolErrors.Add(1)
		metrics.ProtocolErrors.Inc()
		perr := newProtocolError(raw, err)
		logging.Warn().Err(err).Str("raw", perr.Raw).Msg("Dropping malformed frame")
		d.reportError(perr)
		return
	}
	d.Deliver(frame)
}

// Parse decodes one frame. It fails on invalid JSON, non-object payloads
// and a missing or empty type.
func Parse(raw []byte) (models.Frame, error) {
	var frame models.Frame
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return frame, fmt.Errorf("frame is not a JSON object")
	}
	if err := json.Unmarshal(trimmed, &frame); err != nil {
		return frame, fmt.Errorf("decode frame: %w", err)
	}
	if frame.Type == "" {
		return frame, ErrMissingType
	}
	return frame, nil
}

// Deliver hands an already parsed frame to its subscribers.
func (d *Dispatcher) Deliver(frame models.Frame) {
	d.mu.Lock()
	typed := d.subs[frame.Type]
	var wildcard []*subscription
	if frame.Type != models.TypeWildcard {
		wildcard = d.subs[models.TypeWildcard]
	}
	d.mu.Unlock()

	d.dispatched.Add(1)
	metrics.RecordFrame(frame.Type)

	for _, sub := range typed {
		d.invoke(sub, frame)
	}
	for _, sub := range wildcard {
		d.invoke(sub, frame)
	}
}

func (d *Dispatcher) invoke(sub *subscription, frame models.Frame) {
	if !sub.active.Load() {
		return
	}

	err := safeCall(sub.fn, frame)
	if err == nil {
		return
	}

	d.handlerErrors.Add(1)
	metrics.RecordHandlerError(frame.Type)
	herr := &HandlerError{Type: frame.Type, SubscriptionID: sub.id, Err: err}
	logging.Error().Err(err).
		Str("type", frame.Type).
		Uint64("subscription", sub.id).
		Msg("Frame handler failed")
	d.reportError(herr)
}

func safeCall(fn Handler, frame models.Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return fn(frame)
}

func (d *Dispatcher) reportError(err error) {
	d.errMu.RLock()
	ids := make([]uint64, 0, len(d.errObs))
	for id := range d.errObs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	observers := make([]ErrorFunc, len(ids))
	for i, id := range ids {
		observers[i] = d.errObs[id]
	}
	d.errMu.RUnlock()

	for _, fn := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Error().Interface("panic", r).Msg("Error observer panicked")
				}
			}()
			fn(err)
		}()
	}
}

// SubscriberCount returns the number of live subscriptions.
func (d *Dispatcher) SubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, subs := range d.subs {
		n += len(subs)
	}
	return n
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched:     d.dispatched.Load(),
		ProtocolErrors: d.protocolErrors.Load(),
		HandlerErrors:  d.handlerErrors.Load(),
		Subscribers:    d.SubscriberCount(),
	}
}
