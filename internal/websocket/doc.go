// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package websocket fans realtime updates out to downstream renderer clients.

The upstream feed connection lives in internal/connection. This package is
the other side: a hub-and-client pair built on gorilla/websocket that pushes
throttled line projections, connection status changes and alarms to any
number of browser or dashboard clients.

Key Components:

  - Hub: owns the client set and fans messages out in client-ID order
  - Client: one downstream connection with read and write pumps
  - Message: the typed envelope written to clients

Architecture:

	realtime.Service ──Bind──▶ Hub ──▶ Client (line=*)
	                            │
	                            ├───▶ Client (line=7)
	                            └───▶ Client (line=12)

Message Types:

  - line_latest: throttled latest sample of one line (line_id set)
  - connection_status: upstream status transition {from, to, error}; a new
    client first receives the current status
  - alarm: raised or acknowledged alarm (line_id set)
  - pong: reply to a client {"type":"ping"}

Filtering:

A client connected with ?line=7 only receives line-scoped messages whose
line_id is 7. Messages without a line_id, such as connection_status, reach
every client. An empty filter or "*" receives everything.

Slow Clients:

Each client has a bounded send buffer. When a broadcast finds it full the
client is dropped and its connection closed; the hub never blocks on a
single consumer.

Usage Example:

	hub := websocket.NewHub()
	detach := hub.Bind(service)
	defer detach()
	go hub.RunWithContext(ctx) //nolint:errcheck

	// inside the HTTP handler after upgrading
	client := websocket.NewClient(hub, conn, r.URL.Query().Get("line"))
	hub.Register <- client
	client.Start()

Timeouts:

  - writeWait: 10 seconds per write
  - pongWait: 60 seconds without a pong closes the client
  - pingPeriod: 54 seconds
  - maxMessageSize: 4 KB inbound
*/
package websocket
