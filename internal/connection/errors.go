// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package connection

import "errors"

var (
	// ErrEndpointRequired is returned by Connect and Reconnect when no
	// endpoint has been given.
	ErrEndpointRequired = errors.New("connection: endpoint required")

	// ErrInvalidEndpoint is returned for endpoints that are not ws:// or wss:// URLs.
	ErrInvalidEndpoint = errors.New("connection: endpoint must be a ws:// or wss:// URL")

	// ErrNotConnected is returned by Send when there is no live session.
	ErrNotConnected = errors.New("connection: not connected")

	// ErrHeartbeatTimeout ends a session whose heartbeat went unacknowledged.
	ErrHeartbeatTimeout = errors.New("connection: heartbeat not acknowledged")

	// ErrRetriesExhausted is the cause of the transition into the error state.
	ErrRetriesExhausted = errors.New("connection: reconnect attempts exhausted")

	// ErrReconnectRequested is the cause recorded when Reconnect tears down a
	// live session.
	ErrReconnectRequested = errors.New("connection: reconnect requested")
)
