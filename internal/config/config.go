// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/tomtom215/linewatch/internal/connection"
	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/realtime"
)

// Config is the complete Linewatch configuration.
//
// Load it with Load, which layers defaults, an optional YAML file and
// environment variables, then validates the result. Config is immutable
// after loading and safe for concurrent reads.
type Config struct {
	Feed       FeedConfig       `koanf:"feed"`
	Buffer     BufferConfig     `koanf:"buffer"`
	Throttle   ThrottleConfig   `koanf:"throttle"`
	Heartbeat  HeartbeatConfig  `koanf:"heartbeat"`
	Reconnect  ReconnectConfig  `koanf:"reconnect"`
	Commands   CommandsConfig   `koanf:"commands"`
	Alarms     AlarmsConfig     `koanf:"alarms"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// FeedConfig holds the upstream websocket feed settings.
//
// Environment Variables:
//   - FEED_ENDPOINT: ws:// or wss:// URL of the telemetry feed
//   - FEED_CLIENT_ID: client id sent with heartbeats until the feed assigns one
//   - FEED_HANDSHAKE_TIMEOUT: dial and upgrade timeout
//   - FEED_READ_LIMIT: maximum inbound frame size in bytes
type FeedConfig struct {
	Endpoint         string        `koanf:"endpoint" validate:"required,wsurl"`
	ClientID         string        `koanf:"client_id" validate:"max=128"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout" validate:"gt=0"`
	ReadLimit        int64         `koanf:"read_limit" validate:"gte=1024"`
}

// BufferConfig sizes the per-line history buffers.
type BufferConfig struct {
	Capacity      int           `koanf:"capacity" validate:"min=1,max=100000"`
	MaxEntities   int           `koanf:"max_entities" validate:"gte=0"`
	IdleTTL       time.Duration `koanf:"idle_ttl" validate:"gte=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
}

// ThrottleConfig sets the latest-sample publish spacing per line.
type ThrottleConfig struct {
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
}

// HeartbeatConfig controls liveness probing of the feed.
type HeartbeatConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
}

// ReconnectConfig controls backoff and the dial circuit breaker.
type ReconnectConfig struct {
	Base             time.Duration `koanf:"base" validate:"gt=0"`
	Factor           float64       `koanf:"factor" validate:"gte=1"`
	Cap              time.Duration `koanf:"cap" validate:"gt=0"`
	Jitter           float64       `koanf:"jitter" validate:"gte=0,lte=1"`
	MaxRetries       int           `koanf:"max_retries" validate:"gte=0"`
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout" validate:"gte=0"`
}

// CommandsConfig limits outbound commands (request_data, acknowledge_alarm).
type CommandsConfig struct {
	Rate  float64 `koanf:"rate" validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=1"`
}

// AlarmsConfig bounds alarm tracking.
type AlarmsConfig struct {
	Capacity int `koanf:"capacity" validate:"min=1"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
//   - LOG_FILE: also write to this rotating file (default: none)
type LoggingConfig struct {
	Level      string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format     string `koanf:"format" validate:"oneof=json console"`
	Caller     bool   `koanf:"caller"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
	Compress   bool   `koanf:"compress"`
}

// SupervisorConfig tunes the suture supervisor tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Realtime maps the configuration onto realtime.Config.
func (c *Config) Realtime() realtime.Config {
	return realtime.Config{
		Endpoint: c.Feed.Endpoint,
		Connection: connection.Config{
			HandshakeTimeout: c.Feed.HandshakeTimeout,
			ReadLimit:        c.Feed.ReadLimit,
			ClientID:         c.Feed.ClientID,
			Heartbeat: connection.HeartbeatConfig{
				Enabled:  c.Heartbeat.Enabled,
				Interval: c.Heartbeat.Interval,
				Timeout:  c.Heartbeat.Timeout,
			},
			Backoff: connection.Backoff{
				Base:   c.Reconnect.Base,
				Factor: c.Reconnect.Factor,
				Cap:    c.Reconnect.Cap,
				Jitter: c.Reconnect.Jitter,
			},
			MaxRetries:       c.Reconnect.MaxRetries,
			BreakerThreshold: c.Reconnect.BreakerThreshold,
			BreakerTimeout:   c.Reconnect.BreakerTimeout,
		},
		Buffer: realtime.BufferConfig{
			Capacity:      c.Buffer.Capacity,
			MaxLines:      c.Buffer.MaxEntities,
			IdleTTL:       c.Buffer.IdleTTL,
			SweepInterval: c.Buffer.SweepInterval,
		},
		ThrottleInterval: c.Throttle.Interval,
		CommandRate:      c.Commands.Rate,
		CommandBurst:     c.Commands.Burst,
		AlarmCapacity:    c.Alarms.Capacity,
	}
}

// LogConfig maps the configuration onto logging.Config.
func (c *Config) LogConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	cfg.Output = os.Stderr
	cfg.File = logging.FileConfig{
		Path:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
	return cfg
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
