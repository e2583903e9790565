// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/linewatch/internal/middleware"
)

// Router sets up HTTP routes using the chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil chiMw uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: chiMw,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to chi's r.Use.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi builds the HTTP handler.
//
//	GET  /metrics
//	GET  /api/v1/health/live
//	GET  /api/v1/health/ready
//	GET  /api/v1/stats
//	GET  /api/v1/lines
//	GET  /api/v1/lines/{lineID}/history?limit=
//	GET  /api/v1/lines/{lineID}/latest
//	POST /api/v1/lines/{lineID}/request
//	GET  /api/v1/alarms?state=
//	POST /api/v1/alarms/{alarmID}/acknowledge
//	POST /api/v1/connection/reconnect
//	GET  /api/v1/ws?line=
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.handler.perfMon.Middleware)

		// Read endpoints; history responses compress well.
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5, "application/json"))
			r.Get("/stats", router.handler.Stats)
			r.Get("/lines", router.handler.Lines)
			r.Get("/lines/{lineID}/history", router.handler.LineHistory)
			r.Get("/lines/{lineID}/latest", router.handler.LineLatest)
			r.Get("/alarms", router.handler.Alarms)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCommand())
			r.Post("/lines/{lineID}/request", router.handler.RequestLineData)
			r.Post("/alarms/{alarmID}/acknowledge", router.handler.AcknowledgeAlarm)
			r.Post("/connection/reconnect", router.handler.Reconnect)
		})

		r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", router.handler.WebSocket)
	})

	return r
}
