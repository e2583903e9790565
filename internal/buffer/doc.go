// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package buffer keeps a bounded rolling window of recent samples per
production line.

Ring is a fixed-capacity FIFO. Pushing onto a full ring overwrites the
oldest element, so a ring that has seen k pushes always holds exactly
min(k, capacity) elements in arrival order.

Store maps line IDs to rings. Rings are created on first append with the
store's capacity. The set of tracked lines is itself bounded by an LRU with
an idle TTL (see internal/cache), and OnEvict observers learn about lines
that fall out so they can release their own per-line state.

Snapshots are always copies; callers may keep or modify them freely.
*/
package buffer
