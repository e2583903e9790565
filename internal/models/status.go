// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package models

import "time"

// ConnectionStatus is the lifecycle state of the upstream feed connection.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
	StatusError        ConnectionStatus = "error"
)

// AllStatuses lists every ConnectionStatus, in declaration order.
var AllStatuses = []ConnectionStatus{
	StatusDisconnected,
	StatusConnecting,
	StatusConnected,
	StatusReconnecting,
	StatusError,
}

// String implements fmt.Stringer.
func (s ConnectionStatus) String() string { return string(s) }

// StatusChange describes one observed transition.
type StatusChange struct {
	From ConnectionStatus `json:"from"`
	To   ConnectionStatus `json:"to"`
	// Err is the cause for transitions into reconnecting or error.
	Err error     `json:"-"`
	At  time.Time `json:"at"`
}

// ErrString returns Err's message, or empty when Err is nil.
func (c StatusChange) ErrString() string {
	if c.Err == nil {
		return ""
	}
	return c.Err.Error()
}
