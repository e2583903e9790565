// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package realtime

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/metrics"
	"github.com/tomtom215/linewatch/internal/models"
)

func (s *Service) countFrame(models.Frame) error {
	s.messagesReceived.Add(1)
	now := s.clock.Now()
	s.mu.Lock()
	s.lastMessage = now
	s.mu.Unlock()
	return nil
}

func (s *Service) handleProductionData(f models.Frame) error {
	data, err := models.DecodeData[models.ProductionData](f)
	if err != nil {
		return err
	}
	lineID := data.EntityID()
	if lineID == "" {
		return ErrMissingLineID
	}

	now := s.clock.Now()
	ts, ok := f.Time()
	if !ok {
		ts = now
	}
	sample := models.Sample{
		LineID:     lineID,
		Timestamp:  ts,
		ReceivedAt: now,
		Data:       data,
		Raw:        append(json.RawMessage(nil), f.Data...),
	}

	res := s.store.Append(lineID, sample)
	metrics.RecordAppend(res.Overwrote)
	if res.Created {
		metrics.BufferLines.Set(float64(s.store.Len()))
		logging.Debug().Str("line_id", lineID).Msg("Tracking new production line")
	}
	s.dataPoints.Add(1)

	s.projector.Update(lineID, sample)
	metrics.ProjectorPending.Set(float64(s.projector.Pending()))
	s.notifyHistory(lineID, s.store.Snapshot(lineID))
	return nil
}

func (s *Service) handleAlarm(f models.Frame) error {
	alarm, err := models.DecodeData[models.Alarm](f)
	if err != nil {
		return err
	}
	if alarm.ID == "" {
		return ErrMissingAlarmID
	}
	if alarm.RaisedAt.IsZero() {
		if ts, ok := f.Time(); ok {
			alarm.RaisedAt = ts
		} else {
			alarm.RaisedAt = s.clock.Now()
		}
	}

	if dropped := s.alarms.Raise(alarm); dropped > 0 {
		logging.Debug().Int("dropped", dropped).Msg("Alarm history full, dropped oldest")
	}
	metrics.AlarmsReceived.WithLabelValues(severityLabel(alarm.Severity)).Inc()
	metrics.AlarmsActive.Set(float64(s.alarms.Active()))

	logging.Warn().
		Str("alarm_id", alarm.ID.String()).
		Str("line_id", alarm.ProductionLineID.String()).
		Str("severity", string(alarm.Severity)).
		Float64("value", alarm.CurrentValue).
		Msg(alarm.Message)

	if stored, ok := s.alarms.Get(alarm.ID.String()); ok {
		s.notifyAlarm(stored)
	}
	return nil
}

func severityLabel(sev models.AlarmSeverity) string {
	switch sev {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
		return string(sev)
	default:
		return "other"
	}
}

func (s *Service) handleAlarmAcknowledged(f models.Frame) error {
	ack, err := models.DecodeData[models.AlarmAcknowledged](f)
	if err != nil {
		return err
	}
	if ack.AlarmID == "" {
		return ErrMissingAlarmID
	}

	alarm, ok := s.alarms.Acknowledge(ack, s.clock.Now())
	if !ok {
		logging.Debug().Str("alarm_id", ack.AlarmID.String()).Msg("Acknowledgement for unknown alarm")
		return nil
	}
	metrics.AlarmsActive.Set(float64(s.alarms.Active()))
	logging.Info().Str("alarm_id", ack.AlarmID.String()).Str("by", ack.AcknowledgedBy).Msg("Alarm acknowledged")
	s.notifyAlarm(alarm)
	return nil
}

func (s *Service) handleSystemStatus(f models.Frame) error {
	status, err := models.DecodeData[models.SystemStatus](f)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.systemStatus = &status
	s.mu.Unlock()
	return nil
}

func (s *Service) handleWelcome(f models.Frame) error {
	welcome, err := models.DecodeData[models.Welcome](f)
	if err != nil {
		return err
	}
	if welcome.ClientID != "" {
		s.conn.SetClientID(welcome.ClientID)
	}
	logging.Info().
		Str("client_id", welcome.ClientID).
		Str("server_version", welcome.ServerVersion).
		Msg("Feed welcomed client")
	return nil
}

func (s *Service) handleHeartbeatAck(models.Frame) error {
	s.conn.HeartbeatAcked()
	return nil
}

func (s *Service) handleServerShutdown(f models.Frame) error {
	notice, err := models.DecodeData[models.ServerShutdown](f)
	if err != nil {
		logging.Debug().Err(err).Msg("Shutdown notice without payload")
	}
	reason := notice.Reason
	if reason == "" {
		reason = notice.Message
	}

	logging.Warn().Str("reason", reason).Msg("Feed is shutting down")
	s.setLastError(fmt.Errorf("%w: %s", ErrServerShutdown, reason))
	return nil
}
