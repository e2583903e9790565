// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package connection manages the single websocket session to the upstream
production-line feed.

# State Machine

	disconnected -> connecting -> connected
	                   |              |
	                   v              v
	               reconnecting <-----+
	                   |    ^
	                   v    |
	                 error  +-- backoff timer -> connecting

Any state may move to disconnected. error is only entered when a maximum
retry count is configured and exhausted; an explicit Connect or Reconnect
leaves it.

# Reconnection

Transport failures (dial errors, read errors, heartbeat timeouts) move the
session to reconnecting and arm a backoff timer. Delays grow exponentially
from Backoff.Base by Backoff.Factor up to Backoff.Cap, with jitter that only
shortens them. The attempt counter resets after every successful connection.
Dials run through a gobreaker circuit breaker; a dial rejected by an open
breaker is treated like any other failure.

# Timers

All timers use the clock package so tests drive them with a fake clock.
Every callback carries the session generation it was created for and is
ignored once that session has ended.

# Observers

OnStatusChange observers run one transition at a time, in transition order,
outside the manager lock. They may call back into the Manager.
*/
package connection
