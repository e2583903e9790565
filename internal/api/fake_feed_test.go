// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package api

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/models"
	"github.com/tomtom215/linewatch/internal/realtime"
)

func init() { //nolint:gochecknoinits
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// fakeFeed is an in-memory Feed.
type fakeFeed struct {
	mu      sync.Mutex
	status  models.ConnectionStatus
	running bool
	history map[string][]models.Sample
	alarms  []models.Alarm
	system  *models.SystemStatus

	commandErr   error
	reconnectErr error
	requested    []string
	acked        []string
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		status:  models.StatusConnected,
		running: true,
		history: make(map[string][]models.Sample),
	}
}

func (f *fakeFeed) addSamples(lineID string, samples ...models.Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[lineID] = append(f.history[lineID], samples...)
}

func (f *fakeFeed) setStatus(status models.ConnectionStatus, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.running = running
}

func (f *fakeFeed) Status() models.ConnectionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeFeed) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeFeed) Stats() realtime.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make(map[string]int, len(f.history))
	for id, h := range f.history {
		sizes[id] = len(h)
	}
	return realtime.Stats{
		ConnectionStatus:     f.status,
		PerEntityBufferSizes: sizes,
		IsRunning:            f.running,
		ActiveLines:          len(f.history),
	}
}

func (f *fakeFeed) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.history))
	for id := range f.history {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *fakeFeed) History(lineID string) []models.Sample {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Sample(nil), f.history[lineID]...)
}

func (f *fakeFeed) Recent(lineID string, n int) []models.Sample {
	h := f.History(lineID)
	if n < len(h) {
		h = h[len(h)-n:]
	}
	return h
}

func (f *fakeFeed) Latest(lineID string) (models.Sample, bool) {
	h := f.History(lineID)
	if len(h) == 0 {
		return models.Sample{}, false
	}
	return h[len(h)-1], true
}

func (f *fakeFeed) AllLatest() map[string]models.Sample {
	out := make(map[string]models.Sample)
	for _, id := range f.Lines() {
		if s, ok := f.Latest(id); ok {
			out[id] = s
		}
	}
	return out
}

func (f *fakeFeed) Alarms() []models.Alarm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Alarm(nil), f.alarms...)
}

func (f *fakeFeed) Alarm(id string) (models.Alarm, bool) {
	for _, a := range f.Alarms() {
		if a.ID.String() == id {
			return a, true
		}
	}
	return models.Alarm{}, false
}

func (f *fakeFeed) SystemStatus() (models.SystemStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.system == nil {
		return models.SystemStatus{}, false
	}
	return *f.system, true
}

func (f *fakeFeed) RequestData(_ context.Context, lineID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commandErr != nil {
		return "", f.commandErr
	}
	f.requested = append(f.requested, lineID)
	return "req-" + lineID, nil
}

func (f *fakeFeed) AcknowledgeAlarm(_ context.Context, alarmID, by string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commandErr != nil {
		return "", f.commandErr
	}
	f.acked = append(f.acked, alarmID+"/"+by)
	return "ack-" + alarmID, nil
}

func (f *fakeFeed) Reconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnectErr
}
