// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package models

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// ID is an identifier that the feed may send either as a JSON string or a
// JSON number. It is always handled as a string.
type ID string

// UnmarshalJSON accepts "3", 3 and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("id must be a string or number: %s", b)
	}
	*id = ID(b)
	return nil
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// ProductionData is the production_data payload: one reading of one line.
type ProductionData struct {
	ProductionLineID      ID        `json:"production_line_id,omitempty"`
	LineID                ID        `json:"line_id,omitempty"`
	LegacyID              ID        `json:"id,omitempty"`
	ProductionBatchNumber string    `json:"production_batch_number,omitempty"`
	MaterialBatchNumber   string    `json:"material_batch_number,omitempty"`
	BodyTemperatures      []float64 `json:"body_temperatures,omitempty"`   // barrel zones, °C
	FlangeTemperatures    []float64 `json:"flange_temperatures,omitempty"` // °C
	MoldTemperatures      []float64 `json:"mold_temperatures,omitempty"`   // °C
	ScrewMotorSpeed       float64   `json:"screw_motor_speed"`             // rpm
	TractionMotorSpeed    float64   `json:"traction_motor_speed"`          // m/min
	MainSpindleCurrent    float64   `json:"main_spindle_current"`          // A
	RealTimeDiameter      float64   `json:"real_time_diameter"`            // mm
	TotalLengthProduced   float64   `json:"total_length_produced"`         // m
	FluorideConcentration float64   `json:"fluoride_ion_concentration"`    // mg/L
}

// EntityID resolves the line identifier, falling back from
// production_line_id to line_id and then id.
func (d ProductionData) EntityID() string {
	switch {
	case d.ProductionLineID != "":
		return string(d.ProductionLineID)
	case d.LineID != "":
		return string(d.LineID)
	default:
		return string(d.LegacyID)
	}
}

// Sample is one buffered production reading for one line.
type Sample struct {
	LineID string `json:"line_id"`
	// Timestamp is the frame timestamp, or ReceivedAt when the frame had none.
	Timestamp  time.Time       `json:"timestamp"`
	ReceivedAt time.Time       `json:"received_at"`
	Data       ProductionData  `json:"data"`
	Raw        json.RawMessage `json:"-"`
}

// Clone returns a copy of s that shares no slices with it.
func (s Sample) Clone() Sample {
	s.Data.BodyTemperatures = slices.Clone(s.Data.BodyTemperatures)
	s.Data.FlangeTemperatures = slices.Clone(s.Data.FlangeTemperatures)
	s.Data.MoldTemperatures = slices.Clone(s.Data.MoldTemperatures)
	s.Raw = bytes.Clone(s.Raw)
	return s
}

// AlarmSeverity grades an alarm.
type AlarmSeverity string

const (
	SeverityLow    AlarmSeverity = "low"
	SeverityMedium AlarmSeverity = "medium"
	SeverityHigh   AlarmSeverity = "high"
)

// Alarm is the alarm payload.
type Alarm struct {
	ID               ID            `json:"id"`
	ProductionLineID ID            `json:"production_line_id"`
	Message          string        `json:"message"`
	CurrentValue     float64       `json:"current_value"`
	Acknowledged     bool          `json:"acknowledged"`
	Severity         AlarmSeverity `json:"severity"`

	// Populated locally from alarm_acknowledged and the frame timestamp.
	RaisedAt       time.Time  `json:"raised_at"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// AlarmAcknowledged confirms an acknowledge_alarm command.
type AlarmAcknowledged struct {
	AlarmID        ID     `json:"alarm_id"`
	AcknowledgedBy string `json:"acknowledged_by"`
	AcknowledgedAt string `json:"acknowledged_at"`
}

// SystemStatus is the periodic system_status payload.
type SystemStatus struct {
	ServerTime       string  `json:"server_time"`
	ConnectedClients int     `json:"connected_clients"`
	SystemLoad       float64 `json:"system_load"`
	MemoryUsage      float64 `json:"memory_usage"`
	Uptime           float64 `json:"uptime"`
}

// Welcome is sent by the feed right after the handshake.
type Welcome struct {
	ClientID      string `json:"client_id"`
	ServerVersion string `json:"server_version"`
	Message       string `json:"message"`
}

// HeartbeatAck answers a heartbeat.
type HeartbeatAck struct {
	ClientID   string `json:"client_id"`
	ServerTime string `json:"server_time"`
}

// ServerShutdown announces that the feed is going away.
type ServerShutdown struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}
