// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

// Package testinfra provides test infrastructure shared by package tests.
//
// MockFeedServer stands in for the upstream production-line feed: a real
// websocket server on a loopback port that records what clients send and
// lets tests push frames or drop connections at will.
//
//	func TestFeed(t *testing.T) {
//	    feed := testinfra.NewMockFeedServer(t)
//	    feed.AutoAck.Store(true)
//
//	    // point the client at feed.URL() ...
//
//	    conn := feed.Accept(t, 2*time.Second)
//	    conn.Send(models.TypeProductionData, models.ProductionData{...})
//	    conn.Close() // simulate a transport failure
//	}
package testinfra
