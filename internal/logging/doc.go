// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

// Package logging provides centralized zerolog-based structured logging for Linewatch.
//
// # Quick Start
//
//	import "github.com/tomtom215/linewatch/internal/logging"
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("line_id", "3").Msg("Line appeared")
//	logging.Warn().Err(err).Msg("Feed connection lost")
//
// # Configuration
//
// Environment Variables (read by internal/config):
//
//	LOG_LEVEL        - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT       - json, console (default: json)
//	LOG_CALLER       - include caller file:line (default: false)
//	LOG_FILE         - optional rotating log file path
//	LOG_MAX_SIZE_MB  - rotation size (default: 100)
//	LOG_MAX_BACKUPS  - rotated files kept (default: 3)
//	LOG_MAX_AGE_DAYS - rotated file retention (default: 28)
//
// Rotation is handled by lumberjack; rotated files are always JSON.
//
// # Structured Logging
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// # slog Adapter
//
// SlogHandler routes log/slog records into zerolog. The supervisor tree uses
// it through sutureslog so that restart events share the same output.
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger
// is protected by sync.RWMutex for configuration changes.
package logging
