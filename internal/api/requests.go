// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package api

// LineRequest identifies one production line from the URL path.
type LineRequest struct {
	LineID string `json:"line_id" validate:"entityid"`
}

// HistoryRequest is GET /lines/{lineID}/history. A zero Limit returns the
// whole buffer; otherwise the newest Limit samples are returned, oldest first.
type HistoryRequest struct {
	LineID string `json:"line_id" validate:"entityid"`
	Limit  int    `query:"limit" validate:"gte=0,lte=100000"`
}

// AlarmsRequest is GET /alarms.
type AlarmsRequest struct {
	State string `query:"state" validate:"omitempty,oneof=all active acknowledged"`
}

// AcknowledgeRequest is POST /alarms/{alarmID}/acknowledge. AlarmID comes
// from the path and overrides any value in the body.
type AcknowledgeRequest struct {
	AlarmID        string `json:"alarm_id" validate:"entityid"`
	AcknowledgedBy string `json:"acknowledged_by" validate:"required,max=128"`
}

// CommandResponse reports an accepted upstream command.
type CommandResponse struct {
	RequestID string `json:"request_id"`
	Type      string `json:"type"`
	Target    string `json:"target"`
}
