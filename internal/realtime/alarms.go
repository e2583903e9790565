// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package realtime

import (
	"sync"
	"time"

	"github.com/tomtom215/linewatch/internal/cache"
	"github.com/tomtom215/linewatch/internal/clock"
	"github.com/tomtom215/linewatch/internal/models"
)

// DefaultAlarmCapacity bounds the alarms kept in memory.
const DefaultAlarmCapacity = 100

// AlarmTracker keeps the most recently updated alarms, bounded by count.
type AlarmTracker struct {
	mu     sync.Mutex
	alarms *cache.LRU[models.Alarm]
}

// NewAlarmTracker creates a tracker holding at most capacity alarms.
func NewAlarmTracker(capacity int, clk clock.Clock) *AlarmTracker {
	if capacity <= 0 {
		capacity = DefaultAlarmCapacity
	}
	return &AlarmTracker{alarms: cache.NewLRU[models.Alarm](capacity, 0, clk)}
}

// Raise records a new or updated alarm and returns how many older alarms
// were dropped to make room.
func (t *AlarmTracker) Raise(a models.Alarm) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A re-sent alarm keeps its acknowledgement unless the feed says otherwise.
	if prev, ok := t.alarms.Peek(string(a.ID)); ok && prev.Acknowledged && !a.Acknowledged {
		a.Acknowledged = true
		a.AcknowledgedBy = prev.AcknowledgedBy
		a.AcknowledgedAt = prev.AcknowledgedAt
	}
	return len(t.alarms.Add(string(a.ID), a))
}

// Acknowledge marks an alarm acknowledged. It returns the updated alarm and
// false when the alarm is unknown.
func (t *AlarmTracker) Acknowledge(ack models.AlarmAcknowledged, at time.Time) (models.Alarm, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.alarms.Peek(string(ack.AlarmID))
	if !ok {
		return models.Alarm{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, ack.AcknowledgedAt); err == nil {
		at = ts
	}
	a.Acknowledged = true
	a.AcknowledgedBy = ack.AcknowledgedBy
	a.AcknowledgedAt = &at
	t.alarms.Add(string(a.ID), a)
	return a, true
}

// Get returns one alarm.
func (t *AlarmTracker) Get(id string) (models.Alarm, bool) {
	return t.alarms.Peek(id)
}

// List returns all alarms, most recently updated first.
func (t *AlarmTracker) List() []models.Alarm {
	out := make([]models.Alarm, 0, t.alarms.Len())
	for _, id := range t.alarms.Keys() {
		if a, ok := t.alarms.Peek(id); ok {
			out = append(out, a)
		}
	}
	return out
}

// Active counts unacknowledged alarms.
func (t *AlarmTracker) Active() int {
	n := 0
	t.alarms.Range(func(_ string, a models.Alarm) bool {
		if !a.Acknowledged {
			n++
		}
		return true
	})
	return n
}

// Len returns the number of tracked alarms.
func (t *AlarmTracker) Len() int { return t.alarms.Len() }

// Clear forgets every alarm.
func (t *AlarmTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alarms.Clear()
}
