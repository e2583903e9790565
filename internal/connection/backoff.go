// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package connection

import (
	"math"
	"time"
)

// minBackoff keeps a fully jittered delay from becoming a busy loop.
const minBackoff = time.Millisecond

// Backoff computes exponential reconnect delays.
type Backoff struct {
	Base   time.Duration
	Factor float64
	Cap    time.Duration
	// Jitter is the maximum fraction (0..1) removed from each delay.
	Jitter float64
}

// DefaultBackoff is 1s doubling up to 30s with 20% jitter.
func DefaultBackoff() Backoff {
	return Backoff{Base: time.Second, Factor: 2, Cap: 30 * time.Second, Jitter: 0.2}
}

// Delay returns the wait before retry number attempt (zero based).
// rnd returns a value in [0, 1); nil disables jitter.
func (b Backoff) Delay(attempt int, rnd func() float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	limit := b.Cap
	if limit <= 0 {
		limit = 30 * time.Second
	}

	d := float64(base) * math.Pow(factor, float64(attempt))
	if math.IsInf(d, 0) || math.IsNaN(d) || d > float64(limit) {
		d = float64(limit)
	}

	if b.Jitter > 0 && rnd != nil {
		j := math.Min(b.Jitter, 1)
		d -= d * j * rnd()
	}
	if d < float64(minBackoff) {
		d = float64(minBackoff)
	}
	return time.Duration(d)
}
