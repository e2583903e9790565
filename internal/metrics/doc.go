// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package metrics provides Prometheus metrics collection and export for observability.

# Overview

The package provides metrics for:
  - Upstream feed connection state, transitions and reconnect attempts
  - Inbound frames by type, protocol errors and handler failures
  - Per-line buffer occupancy and evictions
  - Throttled projector publishes
  - Downstream websocket hub clients and messages
  - Dial circuit breaker state
  - HTTP request latency and throughput

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8090/metrics

# Label Cardinality

Frame type labels come from the upstream feed, so FrameTypeLabel folds
unknown types into "other". Line IDs are never used as labels.

# Thread Safety

All metrics are registered once through promauto and are safe for
concurrent use.
*/
package metrics
