// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/linewatch/internal/models"
)

// HealthLive reports that the process is up, regardless of the feed.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady returns 200 only while the feed connection is established.
// Buffered history stays readable while not ready, so a load balancer can
// still route dashboards elsewhere without losing this instance's data.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := h.feed.Status()
	ready := h.feed.IsRunning() && status == models.StatusConnected

	statusCode := http.StatusOK
	state := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		state = "not_ready"
	}

	data := map[string]interface{}{
		"connection_status": status,
		"running":           h.feed.IsRunning(),
		"ready_to_serve":    ready,
		"uptime":            time.Since(h.startTime).Seconds(),
	}
	if sys, ok := h.feed.SystemStatus(); ok {
		data["feed_system"] = sys
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: state,
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
