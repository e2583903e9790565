// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package cache provides a generic least-recently-used index with idle TTL.

The buffer package uses it to bound how many production lines are tracked:
each line's ring buffer lives in an LRU keyed by line ID, so the total
memory is bounded by max_entities * capacity regardless of how many distinct
line IDs the feed ever sends.

Eviction is reported back to the caller as a slice of Evicted entries rather
than through callbacks. Callers can then notify their own observers after
releasing their locks.

# Usage Example

	lru := cache.NewLRU[*buffer.Ring[Sample]](256, time.Hour, clock.Real())
	evicted := lru.Add("line-1", ring)
	for _, e := range evicted {
	    log.Info().Str("line_id", e.Key).Msg("line evicted")
	}

# Thread Safety

All methods are safe for concurrent use.
*/
package cache
