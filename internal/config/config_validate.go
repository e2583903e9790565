// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/tomtom215/linewatch/internal/validation"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks field constraints first, then cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, verr.Error())
	}

	checks := []func() error{
		c.validateFeed,
		c.validateHeartbeat,
		c.validateReconnect,
		c.validateBuffer,
		c.validateServer,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c *Config) validateFeed() error {
	u, err := url.Parse(c.Feed.Endpoint)
	if err != nil {
		return fmt.Errorf("FEED_ENDPOINT is invalid: %w", err)
	}
	if u.User != nil {
		return errors.New("FEED_ENDPOINT must not embed credentials")
	}
	return nil
}

// validateHeartbeat requires the ack timeout to fit inside one interval, so
// at most one probe is ever outstanding.
func (c *Config) validateHeartbeat() error {
	if !c.Heartbeat.Enabled {
		return nil
	}
	if c.Heartbeat.Timeout >= c.Heartbeat.Interval {
		return fmt.Errorf("HEARTBEAT_TIMEOUT (%s) must be shorter than HEARTBEAT_INTERVAL (%s)",
			c.Heartbeat.Timeout, c.Heartbeat.Interval)
	}
	return nil
}

func (c *Config) validateReconnect() error {
	if c.Reconnect.Cap < c.Reconnect.Base {
		return fmt.Errorf("RECONNECT_CAP (%s) must not be less than RECONNECT_BASE (%s)",
			c.Reconnect.Cap, c.Reconnect.Base)
	}
	if c.Reconnect.BreakerThreshold > 0 && c.Reconnect.BreakerTimeout <= 0 {
		return errors.New("RECONNECT_BREAKER_TIMEOUT is required when RECONNECT_BREAKER_THRESHOLD is set")
	}
	return nil
}

func (c *Config) validateBuffer() error {
	if c.Buffer.IdleTTL > 0 && c.Buffer.SweepInterval > c.Buffer.IdleTTL {
		return fmt.Errorf("BUFFER_SWEEP_INTERVAL (%s) must not exceed BUFFER_IDLE_TTL (%s)",
			c.Buffer.SweepInterval, c.Buffer.IdleTTL)
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if len(c.Server.CORSOrigins) == 0 {
		return errors.New("CORS_ORIGINS must list at least one origin (use * to allow all)")
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS entry %q must be * or an absolute origin", origin)
		}
	}
	return nil
}
