// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package middleware provides the HTTP middleware shared by the API router.

Key Components:

  - RequestID: reuses or generates X-Request-ID and stores it for logging.Ctx
  - PrometheusMetrics: request count, latency and in-flight gauge
  - PerformanceMonitor: sliding window of recent requests with percentiles,
    surfaced by the stats endpoint

RequestID and PrometheusMetrics use the http.HandlerFunc middleware shape;
the api package adapts them for chi. Both the metrics middleware and the
performance monitor label requests by chi route pattern, so
/api/v1/lines/{lineID}/history is one series regardless of line.

The response recorder implements http.Hijacker, which keeps websocket
upgrades working behind the metrics middleware.
*/
package middleware
