// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/linewatch/internal/api"
	"github.com/tomtom215/linewatch/internal/config"
	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/realtime"
	"github.com/tomtom215/linewatch/internal/supervisor"
	"github.com/tomtom215/linewatch/internal/supervisor/services"
	ws "github.com/tomtom215/linewatch/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LogConfig())

	logging.Info().
		Str("endpoint", cfg.Feed.Endpoint).
		Int("buffer_capacity", cfg.Buffer.Capacity).
		Dur("throttle_interval", cfg.Throttle.Interval).
		Bool("heartbeat", cfg.Heartbeat.Enabled).
		Bool("http", cfg.Server.Enabled).
		Msg("Starting Linewatch")

	svc := realtime.New(cfg.Realtime())
	if err := svc.Initialize(); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize realtime service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	hub := ws.NewHub()
	unbind := hub.Bind(svc)
	defer unbind()

	// Stream layer
	tree.AddStreamService(services.NewFeedService(svc))
	tree.AddStreamService(services.NewWebSocketHubService(hub))

	// API layer
	if cfg.Server.Enabled {
		handler := api.NewHandler(svc, hub, cfg.Server.CORSOrigins, cfg.Server.Timeout)
		chiMw := api.NewChiMiddlewareFromServer(cfg.Server.CORSOrigins, cfg.Server.RateLimitReqs, cfg.Server.RateLimitWindow)
		router := api.NewRouter(handler, chiMw)

		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router.SetupChi(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.Server.Timeout,
			IdleTimeout:       2 * time.Minute,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Supervisor.ShutdownTimeout))
		logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
	} else {
		logging.Info().Msg("HTTP server disabled (HTTP_ENABLED=false)")
	}

	logging.Info().Msg("Starting supervisor tree...")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, s := range unstopped {
		logging.Warn().Str("service", s.Name).Msg("Service failed to stop")
	}

	// The feed service stops the realtime service on cancel; this covers a
	// tree that exits before the feed service ever ran.
	svc.Stop()
	logging.Info().Msg("Linewatch stopped")
}
