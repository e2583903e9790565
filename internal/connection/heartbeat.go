// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package connection

import (
	"time"

	"github.com/tomtom215/linewatch/internal/clock"
	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/metrics"
	"github.com/tomtom215/linewatch/internal/models"
)

// HeartbeatConfig controls the client keepalive.
type HeartbeatConfig struct {
	Enabled bool
	// Interval between heartbeat messages.
	Interval time.Duration
	// Timeout is how long to wait for heartbeat_ack before treating the
	// session as dead.
	Timeout time.Duration
}

// DefaultHeartbeat sends every 30s and waits 10s for the ack.
func DefaultHeartbeat() HeartbeatConfig {
	return HeartbeatConfig{Enabled: true, Interval: 30 * time.Second, Timeout: 10 * time.Second}
}

type heartbeatState struct {
	tick        clock.Timer
	ack         clock.Timer
	awaitingAck bool
	lastAck     time.Time
}

func (m *Manager) startHeartbeatLocked(gen uint64) {
	if !m.cfg.Heartbeat.Enabled || m.cfg.Heartbeat.Interval <= 0 {
		return
	}
	m.hb.awaitingAck = false
	m.hb.tick = m.clock.AfterFunc(m.cfg.Heartbeat.Interval, func() { m.heartbeatTick(gen) })
}

func (m *Manager) stopHeartbeatLocked() {
	if m.hb.tick != nil {
		m.hb.tick.Stop()
		m.hb.tick = nil
	}
	if m.hb.ack != nil {
		m.hb.ack.Stop()
		m.hb.ack = nil
	}
	m.hb.awaitingAck = false
}

func (m *Manager) heartbeatTick(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.status != models.StatusConnected || m.conn == nil {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	now := m.clock.Now()
	msg := models.NewMessage(models.TypeHeartbeat, now, models.HeartbeatData{
		ClientID:      m.clientID,
		LastHeartbeat: now.UTC().Format(time.RFC3339Nano),
	})

	// One outstanding ack deadline at a time; a missed ack is not extended
	// by later heartbeats.
	if !m.hb.awaitingAck && m.cfg.Heartbeat.Timeout > 0 {
		m.hb.awaitingAck = true
		m.hb.ack = m.clock.AfterFunc(m.cfg.Heartbeat.Timeout, func() { m.heartbeatExpired(gen) })
	}
	m.hb.tick = m.clock.AfterFunc(m.cfg.Heartbeat.Interval, func() { m.heartbeatTick(gen) })
	m.mu.Unlock()

	if err := m.write(conn, msg); err != nil {
		logging.Warn().Err(err).Msg("Failed to send heartbeat")
		m.handleSessionEnd(gen, err)
		return
	}
	metrics.FeedMessagesSent.WithLabelValues(models.TypeHeartbeat).Inc()
}

func (m *Manager) heartbeatExpired(gen uint64) {
	m.mu.Lock()
	expired := gen == m.gen && m.hb.awaitingAck
	m.mu.Unlock()
	if !expired {
		return
	}

	metrics.FeedHeartbeatTimeouts.Inc()
	logging.Warn().Dur("timeout", m.cfg.Heartbeat.Timeout).Msg("Heartbeat not acknowledged, dropping session")
	m.handleSessionEnd(gen, ErrHeartbeatTimeout)
}

// HeartbeatAcked records a heartbeat_ack from the feed.
func (m *Manager) HeartbeatAcked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != models.StatusConnected {
		return
	}
	m.hb.awaitingAck = false
	m.hb.lastAck = m.clock.Now()
	if m.hb.ack != nil {
		m.hb.ack.Stop()
		m.hb.ack = nil
	}
}
