// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package realtime wires the feed connection, the frame dispatcher, the
per-line sample buffers and the throttled projector into one Service.

Frames flow in one direction:

	feed socket -> connection.Manager -> dispatch.Dispatcher -> handlers
	                                                       |
	               production_data -> buffer.Store (history, N per line)
	                               -> throttle.Projector (latest, 1/s per line)

Consumers read copies (History, Recent, Latest, AllLatest) or subscribe
(SubscribeHistory, SubscribeLatest, SubscribeGlobal). Subscriptions replay
the current data immediately and then follow every change.

A Service is an ordinary value; create as many as needed with New. Tests
inject a fake clock and a dialer through options.
*/
package realtime
