// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package api exposes the realtime service over HTTP using the chi router.

Dashboards read buffered history and the latest sample per production line,
list and acknowledge alarms, and open a websocket for the live stream. All
JSON responses share the models.APIResponse envelope:

	{"status": "success", "data": [...], "metadata": {"timestamp": "...", "count": 60}}
	{"status": "error", "data": null, "metadata": {...}, "error": {"code": "NOT_FOUND", "message": "..."}}

# Middleware

Global: request id (X-Request-ID, propagated into log context), chi RealIP,
chi Recoverer and go-chi/cors. Under /api/v1: go-chi/httprate per-IP limits,
security headers, Prometheus request metrics labelled by route pattern and
the in-memory performance monitor. Read endpoints are gzip-compressed;
command endpoints and websocket upgrades get stricter per-IP limits.

# Commands

POST /lines/{lineID}/request and POST /alarms/{alarmID}/acknowledge send a
command upstream and answer 202 with the command's request id. The effect
arrives later on the stream. Rate-limited commands answer 429, commands
while the feed is down answer 503.

# Readiness

/api/v1/health/ready answers 503 unless the feed connection is established.
Read endpoints keep serving buffered data while it is not.
*/
package api
