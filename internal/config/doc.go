// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package config loads and validates Linewatch configuration.

Configuration is layered with Koanf v2:

 1. Defaults built into defaultConfig
 2. An optional YAML file: CONFIG_PATH, else config.yaml / config.yml in the
    working directory, else /etc/linewatch/config.yaml
 3. Environment variables mapped through an explicit table; unmapped
    variables are ignored

Validation runs go-playground/validator struct tags (see internal/validation)
followed by cross-field checks such as heartbeat timeout < interval and
reconnect cap >= base.

Key Environment Variables:

	FEED_ENDPOINT            ws://localhost:8080
	FEED_CLIENT_ID           linewatch
	BUFFER_CAPACITY          60 samples per line
	BUFFER_MAX_ENTITIES      256 lines (0 = unbounded)
	BUFFER_IDLE_TTL          1h (0 = keep idle lines)
	THROTTLE_INTERVAL        1s
	HEARTBEAT_ENABLED        true
	HEARTBEAT_INTERVAL       30s
	HEARTBEAT_TIMEOUT        10s
	RECONNECT_BASE           1s
	RECONNECT_FACTOR         2
	RECONNECT_CAP            30s
	RECONNECT_JITTER         0.2
	RECONNECT_MAX_RETRIES    0 (retry forever)
	COMMAND_RATE             5 per second
	HTTP_PORT                8090
	CORS_ORIGINS             * (comma separated)
	LOG_LEVEL                info
	LOG_FORMAT               json

Example YAML:

	feed:
	  endpoint: wss://plant.example.com/telemetry
	buffer:
	  capacity: 120
	throttle:
	  interval: 500ms
	server:
	  cors_origins: ["https://dashboard.example.com"]

Usage:

	cfg, err := config.Load()
	if err != nil {
	    return err
	}
	svc := realtime.New(cfg.Realtime())
*/
package config
