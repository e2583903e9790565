// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

// Package validation wraps go-playground/validator v10 with a shared
// validator instance, two custom tags and readable error messages.
//
// Custom tags:
//
//   - entityid: 1-64 characters of [A-Za-z0-9._:-], used for line and alarm IDs
//   - wsurl: absolute ws:// or wss:// URL with a host, used for the feed endpoint
//
// Fields are reported by their query, json or koanf tag name, so errors
// match what the caller actually sent:
//
//	type historyQuery struct {
//	    LineID string `query:"lineID" validate:"required,entityid"`
//	    Limit  int    `query:"limit" validate:"min=0,max=10000"`
//	}
//
//	if verr := validation.ValidateStruct(&q); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // respond 400 with apiErr.Code and apiErr.Message
//	}
package validation
