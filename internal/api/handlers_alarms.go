// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/models"
)

// Alarms lists tracked alarms, newest first. ?state= filters on active or
// acknowledged.
func (h *Handler) Alarms(w http.ResponseWriter, r *http.Request) {
	req := AlarmsRequest{State: r.URL.Query().Get("state")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	all := h.feed.Alarms()
	alarms := make([]models.Alarm, 0, len(all))
	for _, a := range all {
		switch {
		case req.State == "active" && a.Acknowledged:
			continue
		case req.State == "acknowledged" && !a.Acknowledged:
			continue
		}
		alarms = append(alarms, a)
	}
	respondData(w, http.StatusOK, alarms, len(alarms))
}

// AcknowledgeAlarm forwards an acknowledgement to the feed. The local alarm
// flips to acknowledged only once the feed confirms it.
func (h *Handler) AcknowledgeAlarm(w http.ResponseWriter, r *http.Request) {
	var req AcknowledgeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body", nil)
		return
	}
	req.AlarmID = pathParam(r, "alarmID")
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	if _, ok := h.feed.Alarm(req.AlarmID); !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "unknown alarm "+req.AlarmID, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cmdTimeout)
	defer cancel()

	requestID, err := h.feed.AcknowledgeAlarm(ctx, req.AlarmID, req.AcknowledgedBy)
	if err != nil {
		status, code := commandFailure(err)
		respondError(w, status, code, "acknowledge_alarm failed: "+err.Error(), nil)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("alarm_id", req.AlarmID).
		Str("by", sanitizeLogValue(req.AcknowledgedBy)).
		Str("command_id", requestID).
		Msg("Alarm acknowledgement sent")
	respondData(w, http.StatusAccepted, CommandResponse{
		RequestID: requestID,
		Type:      models.TypeAcknowledgeAlarm,
		Target:    req.AlarmID,
	}, 1)
}
