// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/linewatch/internal/connection"
	"github.com/tomtom215/linewatch/internal/realtime"
)

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeNotConnected       = "FEED_NOT_CONNECTED"
	ErrCodeTimeout            = "TIMEOUT"
)

// commandFailure maps a command or reconnect error onto a status and code.
func commandFailure(err error) (int, string) {
	switch {
	case errors.Is(err, realtime.ErrRateLimited):
		return http.StatusTooManyRequests, ErrCodeTooManyRequests
	case errors.Is(err, realtime.ErrNotRunning),
		errors.Is(err, connection.ErrNotConnected),
		errors.Is(err, connection.ErrEndpointRequired):
		return http.StatusServiceUnavailable, ErrCodeNotConnected
	case errors.Is(err, realtime.ErrMissingLineID),
		errors.Is(err, realtime.ErrMissingAlarmID):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}
