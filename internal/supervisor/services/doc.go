// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package services provides suture.Service wrappers for Linewatch components.

Each wrapper turns a component's own lifecycle (Start/Stop, RunWithContext,
ListenAndServe) into suture's context-aware Serve, and names itself through
fmt.Stringer so supervisor events identify it.

# Available Services

Telemetry Feed (FeedService):
  - Wraps *realtime.Service
  - Start on Serve, Stop when the tree shuts down
  - A failed Start is returned so suture restarts it with backoff

WebSocket Hub (WebSocketHubService):
  - Wraps *websocket.Hub
  - Closes every dashboard client on shutdown

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Configurable drain timeout

# Usage Example

	tree.AddStreamService(services.NewFeedService(feed))
	tree.AddStreamService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

# Return Values

Serve returns ctx.Err() on a requested shutdown and a wrapped error on a
crash. Neither wrapper returns suture.ErrDoNotRestart.
*/
package services
