// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/waymark/internal/auth"
	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/middleware"
)

// NewRouter assembles the HTTP routing table.
//
// Route groups and their protection:
//   - /health/*, /metrics: unauthenticated, no rate limit
//   - /auth/*: unauthenticated, tight rate limit (login brute force)
//   - /waypoints, /paths, /clear-all: authenticated, instrumented
//   - /ws: authenticated upgrade to the push channel
func NewRouter(cfg *config.Config, handler *Handler, authMW *auth.Middleware) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health and metrics stay outside the rate limiter so probes and
	// scrapes cannot be starved by client traffic.
	r.Get("/health/live", handler.HealthLive)
	r.Get("/health/ready", handler.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		// Auth endpoints get a tighter budget than the configured
		// per-IP limit to slow credential stuffing.
		r.Use(httprate.LimitByIP(10, cfg.Security.RateLimitWindow))
		r.Post("/auth/register", handler.Register)
		r.Post("/auth/login", handler.Login)
		r.Post("/auth/logout", handler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow))
		r.Use(middleware.PrometheusMetrics)
		r.Use(authMW.Authenticate)

		r.Get("/waypoints", handler.ListWaypoints)
		r.Post("/waypoints", handler.CreateWaypoint)
		r.Delete("/waypoints", handler.DeleteAllWaypoints)
		r.Delete("/waypoints/{id}", handler.DeleteWaypoint)

		r.Get("/paths", handler.ListPaths)
		r.Post("/paths", handler.CreatePath)
		r.Delete("/paths", handler.DeleteAllPaths)
		r.Delete("/paths/{id}", handler.DeletePath)

		r.Delete("/clear-all", handler.ClearAll)

		r.Get("/ws", handler.WebSocket)
	})

	return r
}
