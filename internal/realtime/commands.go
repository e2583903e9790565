// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/metrics"
	"github.com/tomtom215/linewatch/internal/models"
)

// RequestData asks the feed for an immediate sample of lineID. It returns
// the request id carried in the command.
func (s *Service) RequestData(ctx context.Context, lineID string) (string, error) {
	if lineID == "" {
		return "", ErrMissingLineID
	}
	return s.sendCommand(ctx, models.TypeRequestData, func(requestID string) any {
		return models.RequestData{LineID: lineID, RequestID: requestID}
	})
}

// AcknowledgeAlarm asks the feed to acknowledge alarmID on behalf of by.
// The local alarm is updated when the feed confirms with alarm_acknowledged.
func (s *Service) AcknowledgeAlarm(ctx context.Context, alarmID, by string) (string, error) {
	if alarmID == "" {
		return "", ErrMissingAlarmID
	}
	return s.sendCommand(ctx, models.TypeAcknowledgeAlarm, func(requestID string) any {
		return models.AcknowledgeAlarm{AlarmID: alarmID, AcknowledgedBy: by, RequestID: requestID}
	})
}

func (s *Service) sendCommand(ctx context.Context, msgType string, payload func(requestID string) any) (string, error) {
	if !s.IsRunning() {
		return "", ErrNotRunning
	}
	if err := s.limiter.Wait(ctx); err != nil {
		metrics.FeedCommandsRejected.WithLabelValues(msgType).Inc()
		return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	requestID := uuid.NewString()
	msg := models.NewMessage(msgType, s.clock.Now(), payload(requestID))
	if err := s.conn.Send(msg); err != nil {
		metrics.FeedCommandsRejected.WithLabelValues(msgType).Inc()
		return "", err
	}
	logging.Debug().Str("type", msgType).Str("request_id", requestID).Msg("Command sent to feed")
	return requestID, nil
}
