// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Message types on the upstream feed.
const (
	TypeWelcome           = "welcome"
	TypeProductionData    = "production_data"
	TypeAlarm             = "alarm"
	TypeSystemStatus      = "system_status"
	TypeHeartbeat         = "heartbeat"
	TypeHeartbeatAck      = "heartbeat_ack"
	TypeRequestData       = "request_data"
	TypeAcknowledgeAlarm  = "acknowledge_alarm"
	TypeAlarmAcknowledged = "alarm_acknowledged"
	TypeServerShutdown    = "server_shutdown"

	// TypeWildcard subscribes to every frame regardless of type.
	TypeWildcard = "*"
)

// Frame is one parsed inbound message: {"type", "timestamp", "data"}.
type Frame struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Time parses the frame timestamp. The second return is false when the
// timestamp is absent or not ISO-8601.
func (f Frame) Time() (time.Time, bool) {
	if f.Timestamp == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, f.Timestamp); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DecodeData unmarshals the frame payload into T.
func DecodeData[T any](f Frame) (T, error) {
	var v T
	if len(f.Data) == 0 {
		return v, fmt.Errorf("decode %s payload: empty data", f.Type)
	}
	if err := json.Unmarshal(f.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", f.Type, err)
	}
	return v, nil
}

// Message is an outbound frame sent to the upstream feed.
type Message struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewMessage stamps an outbound message with t in RFC3339 millisecond form.
func NewMessage(msgType string, t time.Time, data any) Message {
	return Message{
		Type:      msgType,
		Timestamp: t.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Data:      data,
	}
}

// HeartbeatData is the payload of an outbound heartbeat.
type HeartbeatData struct {
	ClientID      string `json:"client_id"`
	LastHeartbeat string `json:"last_heartbeat"`
}

// RequestData asks the feed for an immediate sample of one line.
type RequestData struct {
	LineID    string `json:"line_id"`
	RequestID string `json:"request_id,omitempty"`
}

// AcknowledgeAlarm asks the feed to mark an alarm acknowledged.
type AcknowledgeAlarm struct {
	AlarmID        string `json:"alarm_id"`
	AcknowledgedBy string `json:"acknowledged_by,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}
