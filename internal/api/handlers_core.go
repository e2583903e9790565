// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/middleware"
	"github.com/tomtom215/linewatch/internal/realtime"
	ws "github.com/tomtom215/linewatch/internal/websocket"
)

// registerTimeout bounds the wait for the hub loop to accept a client.
const registerTimeout = 5 * time.Second

// StatsResponse is GET /stats.
type StatsResponse struct {
	Service   realtime.Stats             `json:"service"`
	WSClients int                        `json:"ws_clients"`
	Endpoints []middleware.EndpointStats `json:"endpoints"`
}

// Stats returns service counters, the dashboard client count and per-route
// latency.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Service:   h.feed.Stats(),
		Endpoints: h.perfMon.GetStats(),
	}
	if h.wsHub != nil {
		resp.WSClients = h.wsHub.GetClientCount()
	}
	respondData(w, http.StatusOK, resp, 1)
}

// Reconnect drops the feed session and dials again, waiting for the
// attempt to finish.
func (h *Handler) Reconnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cmdTimeout)
	defer cancel()

	if err := h.feed.Reconnect(ctx); err != nil {
		status, code := commandFailure(err)
		respondError(w, status, code, "reconnect failed: "+err.Error(), nil)
		return
	}

	logging.Ctx(r.Context()).Info().Msg("Feed reconnect requested over API")
	respondData(w, http.StatusOK, map[string]interface{}{
		"connection_status": h.feed.Status(),
	}, 0)
}

// WebSocket upgrades a dashboard client. ?line= limits the stream to one
// production line; empty or * receives every line.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}

	line := r.URL.Query().Get("line")
	if line != "" && line != ws.AllLines {
		req := LineRequest{LineID: line}
		if apiErr := validateRequest(&req); apiErr != nil {
			respondAPIError(w, http.StatusBadRequest, apiErr)
			return
		}
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn, line)
	select {
	case h.wsHub.Register <- client:
	case <-time.After(registerTimeout):
		logging.Warn().Str("client", client.Name()).Msg("WebSocket hub not accepting clients")
		_ = conn.Close()
		return
	}
	client.Start()
}
