// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package models defines the data structures shared across Linewatch.

Key Components:

  - Frame: one inbound websocket frame ({type, timestamp, data})
  - Message: one outbound frame sent to the upstream feed
  - ConnectionStatus / StatusChange: connection lifecycle values
  - ProductionData, Alarm, SystemStatus, Welcome, ...: typed payloads
  - Sample: a buffered production_data reading for one line
  - APIResponse: the HTTP response envelope

Frames are immutable once parsed. Payloads are kept as json.RawMessage on
the Frame and decoded on demand with DecodeData so that consumers that only
route by type never pay for decoding.
*/
package models
