// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

// Package main is the entry point for the Linewatch server.
//
// Linewatch holds a persistent websocket session to a production-line
// telemetry feed, keeps a bounded history per line, and republishes
// throttled latest values to in-process subscribers, to browser clients
// over websocket, and through a read-mostly REST API.
//
// # Startup
//
//  1. Configuration: defaults, then config.yaml, then environment (Koanf v2)
//  2. Logging: zerolog, optionally rotated to a file with lumberjack
//  3. Realtime service: connection manager, dispatcher, buffers, projector
//  4. WebSocket hub: bound to the realtime service's latest, status and alarm streams
//  5. Supervisor tree: stream layer (feed, hub) and API layer (HTTP server)
//
// # Configuration
//
// The only required setting is the feed endpoint:
//
//	export FEED_ENDPOINT=wss://plant.example.com/telemetry
//	./linewatch
//
// Commonly tuned variables:
//   - BUFFER_CAPACITY: samples kept per line (default 60)
//   - THROTTLE_INTERVAL: minimum spacing of latest-value publishes (default 1s)
//   - HEARTBEAT_ENABLED, HEARTBEAT_INTERVAL, HEARTBEAT_TIMEOUT
//   - RECONNECT_BASE, RECONNECT_CAP, RECONNECT_MAX_RETRIES
//   - HTTP_PORT, CORS_ORIGINS, LOG_LEVEL, LOG_FORMAT
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
// in-flight requests, websocket clients are closed, and the feed session is
// closed with a normal closure frame before buffered data is released.
package main
