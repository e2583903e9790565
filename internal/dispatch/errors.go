// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingType is reported for frames without a non-empty "type".
	ErrMissingType = errors.New("frame has no type")

	// ErrHandlerPanic wraps a recovered subscriber panic.
	ErrHandlerPanic = errors.New("handler panicked")
)

// maxRawExcerpt bounds how much of a malformed frame is kept for logs.
const maxRawExcerpt = 256

// ProtocolError reports a frame that could not be parsed. The frame is
// dropped and the connection is unaffected.
type ProtocolError struct {
	Raw string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func newProtocolError(raw []byte, err error) *ProtocolError {
	excerpt := raw
	if len(excerpt) > maxRawExcerpt {
		excerpt = excerpt[:maxRawExcerpt]
	}
	return &ProtocolError{Raw: string(excerpt), Err: err}
}

// HandlerError reports a subscriber that returned an error or panicked.
// Delivery to the remaining subscribers continues.
type HandlerError struct {
	Type           string
	SubscriptionID uint64
	Err            error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %d for %q: %v", e.SubscriptionID, e.Type, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
