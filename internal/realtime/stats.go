// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package realtime

import (
	"time"

	"github.com/tomtom215/linewatch/internal/connection"
	"github.com/tomtom215/linewatch/internal/dispatch"
	"github.com/tomtom215/linewatch/internal/models"
)

// Stats is a point-in-time view of the service.
type Stats struct {
	ConnectionStatus     models.ConnectionStatus `json:"connection_status"`
	PerEntityBufferSizes map[string]int          `json:"per_entity_buffer_sizes"`
	IsInitialized        bool                    `json:"is_initialized"`
	IsRunning            bool                    `json:"is_running"`
	LastError            string                  `json:"last_error,omitempty"`

	TotalMessagesReceived    uint64     `json:"total_messages_received"`
	TotalDataPointsProcessed uint64     `json:"total_data_points_processed"`
	ErrorCount               uint64     `json:"error_count"`
	LastMessageTime          *time.Time `json:"last_message_time,omitempty"`
	StartTime                *time.Time `json:"start_time,omitempty"`
	UptimeSeconds            float64    `json:"uptime_seconds"`

	ActiveLines       int    `json:"active_lines"`
	BufferCapacity    int    `json:"buffer_capacity"`
	SubscriberCount   int    `json:"subscriber_count"`
	PendingPublishes  int    `json:"pending_publishes"`
	DeferredPublishes uint64 `json:"deferred_publishes"`
	ReconnectAttempts int    `json:"reconnect_attempts"`
	ClientID          string `json:"client_id"`
	ActiveAlarms      int    `json:"active_alarms"`

	Connection connection.Stats `json:"connection"`
	Dispatch   dispatch.Stats   `json:"dispatch"`
}

// Stats returns the current service statistics.
func (s *Service) Stats() Stats {
	conn := s.conn.Stats()
	now := s.clock.Now()

	s.mu.Lock()
	st := Stats{
		IsInitialized: s.initialized,
		IsRunning:     s.running,
	}
	lastErr := s.lastErr
	if !s.startTime.IsZero() {
		t := s.startTime
		st.StartTime = &t
		if s.running {
			st.UptimeSeconds = now.Sub(s.startTime).Seconds()
		}
	}
	if !s.lastMessage.IsZero() {
		t := s.lastMessage
		st.LastMessageTime = &t
	}
	s.mu.Unlock()

	if lastErr != nil {
		st.LastError = lastErr.Error()
	} else {
		st.LastError = conn.LastError
	}

	sizes := s.store.Sizes()
	st.ConnectionStatus = conn.Status
	st.PerEntityBufferSizes = sizes
	st.TotalMessagesReceived = s.messagesReceived.Load()
	st.TotalDataPointsProcessed = s.dataPoints.Load()
	st.ErrorCount = s.errorCount.Load()
	st.ActiveLines = len(sizes)
	st.BufferCapacity = s.store.Capacity()
	st.SubscriberCount = s.history.count() + s.latest.count() + s.alarmSubs.count()
	st.PendingPublishes = s.projector.Pending()
	st.DeferredPublishes = s.projector.DeferredTotal()
	st.ReconnectAttempts = conn.Attempts
	st.ClientID = conn.ClientID
	st.ActiveAlarms = s.alarms.Active()
	st.Connection = conn
	st.Dispatch = s.dispatcher.Stats()
	return st
}
