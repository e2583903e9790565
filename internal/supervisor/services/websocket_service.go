// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package services

import (
	"context"
)

// ContextHub matches (*websocket.Hub).RunWithContext. Taking the interface
// keeps this package free of the websocket import.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService runs the downstream dashboard hub under supervision.
//
//	hub := websocket.NewHub()
//	tree.AddStreamService(services.NewWebSocketHubService(hub))
type WebSocketHubService struct {
	hub  ContextHub
	name string
}

// NewWebSocketHubService creates a new WebSocket hub service wrapper.
func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service. The hub closes every client when ctx
// ends and returns ctx.Err().
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	return w.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture's log messages.
func (w *WebSocketHubService) String() string {
	return w.name
}
