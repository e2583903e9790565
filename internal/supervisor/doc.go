// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

/*
Package supervisor provides process supervision for Linewatch using suture v4.

# Overview

Long-running services are organized into two layers:

	RootSupervisor ("linewatch")
	├── StreamSupervisor ("stream-layer")
	│   ├── FeedService          (upstream telemetry websocket)
	│   └── WebSocketHubService  (downstream dashboard fan-out)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A feed that keeps failing to start backs off inside the stream layer while
the API layer keeps serving buffered history and health checks.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    FailureThreshold: cfg.Supervisor.FailureThreshold,
	    FailureDecay:     cfg.Supervisor.FailureDecay,
	    FailureBackoff:   cfg.Supervisor.FailureBackoff,
	    ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
	    return err
	}
	tree.AddStreamService(services.NewFeedService(feed))
	tree.AddStreamService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, timeout))

	err = tree.Serve(ctx) // blocks until ctx is canceled

# Failure Handling

Suture counts failures per supervisor with exponential decay
(FailureDecay seconds). Above FailureThreshold the supervisor waits
FailureBackoff before the next restart. Services returning
suture.ErrDoNotRestart are not restarted.

# Logging

Supervisor events (start, failure, backoff, resume) reach zerolog through
sutureslog and the slog bridge in internal/logging.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()

lists services that did not return within ShutdownTimeout.
*/
package supervisor
