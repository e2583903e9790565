// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

// Package clock abstracts time so that backoff, heartbeat and throttle
// scheduling can be driven deterministically in tests.
//
// Production code takes a Clock and uses Real(); tests use Fake() and move
// time forward explicitly with Advance.
package clock

import "time"

// Clock provides the current time and one-shot scheduling.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f once d has elapsed. The returned Timer cancels
	// the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable handle for a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from firing. It returns false if the call
	// already fired or was already stopped.
	Stop() bool
}
