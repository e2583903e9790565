// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package realtime

import "errors"

var (
	// ErrMissingLineID is returned for production data and commands that
	// do not name a production line.
	ErrMissingLineID = errors.New("realtime: production line id missing")

	// ErrMissingAlarmID is returned for alarm payloads and commands without an id.
	ErrMissingAlarmID = errors.New("realtime: alarm id missing")

	// ErrNotRunning is returned by commands issued while the service is stopped.
	ErrNotRunning = errors.New("realtime: service not running")

	// ErrRateLimited is returned when an outbound command exceeds the
	// configured command rate.
	ErrRateLimited = errors.New("realtime: command rate exceeded")

	// ErrServerShutdown is recorded as the last error when the feed
	// announces that it is going away.
	ErrServerShutdown = errors.New("realtime: feed announced shutdown")
)
