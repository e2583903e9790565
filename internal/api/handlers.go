// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/middleware"
	"github.com/tomtom215/linewatch/internal/models"
	"github.com/tomtom215/linewatch/internal/realtime"
	ws "github.com/tomtom215/linewatch/internal/websocket"
)

// Feed is the part of *realtime.Service the HTTP surface reads and commands.
type Feed interface {
	Status() models.ConnectionStatus
	IsRunning() bool
	Stats() realtime.Stats

	Lines() []string
	History(lineID string) []models.Sample
	Recent(lineID string, n int) []models.Sample
	Latest(lineID string) (models.Sample, bool)
	AllLatest() map[string]models.Sample
	Alarms() []models.Alarm
	Alarm(id string) (models.Alarm, bool)
	SystemStatus() (models.SystemStatus, bool)

	RequestData(ctx context.Context, lineID string) (string, error)
	AcknowledgeAlarm(ctx context.Context, alarmID, by string) (string, error)
	Reconnect(ctx context.Context) error
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_health.go: liveness and readiness probes
//   - handlers_lines.go: per-line history, latest sample, data requests
//   - handlers_alarms.go: alarm listing and acknowledgement
//   - handlers_core.go: stats, reconnect, websocket upgrade
type Handler struct {
	feed        Feed
	wsHub       *ws.Hub
	corsOrigins []string
	startTime   time.Time
	perfMon     *middleware.PerformanceMonitor
	cmdTimeout  time.Duration
}

// NewHandler creates the API handler. corsOrigins also gates websocket
// upgrades; cmdTimeout bounds how long a command request may wait on the
// outbound rate limiter or a reconnect.
func NewHandler(feed Feed, hub *ws.Hub, corsOrigins []string, cmdTimeout time.Duration) *Handler {
	if cmdTimeout <= 0 {
		cmdTimeout = 10 * time.Second
	}
	return &Handler{
		feed:        feed,
		wsHub:       hub,
		corsOrigins: corsOrigins,
		startTime:   time.Now(),
		perfMon:     middleware.NewPerformanceMonitor(1000),
		cmdTimeout:  cmdTimeout,
	}
}

// PerformanceMonitor returns the monitor fed by the router's middleware.
func (h *Handler) PerformanceMonitor() *middleware.PerformanceMonitor {
	return h.perfMon
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts configured origins. A missing Origin header
// (a non-browser client) is only accepted when every origin is allowed.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	allowAll := false
	for _, allowed := range h.corsOrigins {
		if allowed == "*" {
			allowAll = true
		}
		if origin != "" && allowed == origin {
			return true
		}
	}
	if allowAll {
		return true
	}

	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
	} else {
		logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	}
	return false
}
