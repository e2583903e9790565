// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package connection

import "github.com/tomtom215/linewatch/internal/models"

// transitions lists the legal edges of the connection state machine.
// Any state may also move to disconnected.
var transitions = map[models.ConnectionStatus][]models.ConnectionStatus{
	models.StatusDisconnected: {models.StatusConnecting},
	models.StatusConnecting:   {models.StatusConnected, models.StatusReconnecting},
	models.StatusConnected:    {models.StatusReconnecting},
	models.StatusReconnecting: {models.StatusConnecting, models.StatusError},
	models.StatusError:        {models.StatusConnecting},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.ConnectionStatus) bool {
	if from == to {
		return false
	}
	if to == models.StatusDisconnected {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
