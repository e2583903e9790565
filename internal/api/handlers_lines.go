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

// LineSummary is one entry of GET /lines.
type LineSummary struct {
	LineID   string         `json:"line_id"`
	Buffered int            `json:"buffered"`
	Latest   *models.Sample `json:"latest,omitempty"`
}

// Lines lists every tracked line with its buffer fill and latest sample.
func (h *Handler) Lines(w http.ResponseWriter, r *http.Request) {
	ids := h.feed.Lines()
	latest := h.feed.AllLatest()
	sizes := h.feed.Stats().PerEntityBufferSizes

	lines := make([]LineSummary, 0, len(ids))
	for _, id := range ids {
		summary := LineSummary{LineID: id, Buffered: sizes[id]}
		if s, ok := latest[id]; ok {
			summary.Latest = &s
		}
		lines = append(lines, summary)
	}
	respondData(w, http.StatusOK, lines, len(lines))
}

// LineHistory returns the buffered samples of one line, oldest first.
// Unknown lines yield an empty list, matching the buffer's own semantics.
func (h *Handler) LineHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := getIntParam(r, "limit", 0)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer", nil)
		return
	}
	req := HistoryRequest{LineID: pathParam(r, "lineID"), Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	var samples []models.Sample
	if req.Limit > 0 {
		samples = h.feed.Recent(req.LineID, req.Limit)
	} else {
		samples = h.feed.History(req.LineID)
	}
	if samples == nil {
		samples = []models.Sample{}
	}
	respondData(w, http.StatusOK, samples, len(samples))
}

// LineLatest returns the newest sample of one line, or 404.
func (h *Handler) LineLatest(w http.ResponseWriter, r *http.Request) {
	req := LineRequest{LineID: pathParam(r, "lineID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	sample, ok := h.feed.Latest(req.LineID)
	if !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "no data for line "+req.LineID, nil)
		return
	}
	respondData(w, http.StatusOK, sample, 1)
}

// RequestLineData asks the feed for an immediate sample of one line. The
// answer arrives on the stream, not in this response.
func (h *Handler) RequestLineData(w http.ResponseWriter, r *http.Request) {
	req := LineRequest{LineID: pathParam(r, "lineID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cmdTimeout)
	defer cancel()

	requestID, err := h.feed.RequestData(ctx, req.LineID)
	if err != nil {
		status, code := commandFailure(err)
		respondError(w, status, code, "request_data failed: "+err.Error(), nil)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("line_id", req.LineID).
		Str("command_id", requestID).
		Msg("Requested line data")
	respondData(w, http.StatusAccepted, CommandResponse{
		RequestID: requestID,
		Type:      models.TypeRequestData,
		Target:    req.LineID,
	}, 1)
}
