// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

// Package api exposes the HTTP surface: annotation CRUD, account
// registration and login, the websocket upgrade endpoint, and health
// probes. Handlers stay thin; all mutation semantics live in the
// annotations service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/waymark/internal/auth"
	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/database"
	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/models"
	ws "github.com/tomtom215/waymark/internal/websocket"
)

// AnnotationService is the mutation and query surface the handlers
// call into. Defined here so tests can substitute a fake.
type AnnotationService interface {
	SubmitWaypoint(ctx context.Context, req *models.CreateWaypointRequest, ownerID int64, ownerName string) (*models.Waypoint, error)
	SubmitPath(ctx context.Context, req *models.CreatePathRequest, ownerID int64, ownerName string) (*models.Path, error)
	ListWaypoints(ctx context.Context) ([]models.Waypoint, error)
	ListPaths(ctx context.Context) ([]models.Path, error)
	DeleteWaypoint(ctx context.Context, id, requesterID int64) error
	DeletePath(ctx context.Context, id, requesterID int64) error
	DeleteAllWaypoints(ctx context.Context, requesterID int64) (int64, error)
	DeleteAllPaths(ctx context.Context, requesterID int64) (int64, error)
	ClearAll(ctx context.Context, requesterID int64) (*database.ClearAllResult, error)
}

// UserStore is the account persistence surface for registration and
// login.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Pinger reports store liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	config  *config.Config
	service AnnotationService
	users   UserStore
	jwt     *auth.JWTManager
	wsHub   *ws.Hub
	pinger  Pinger
}

// NewHandler creates the HTTP handler set.
func NewHandler(cfg *config.Config, service AnnotationService, users UserStore, jwtManager *auth.JWTManager, hub *ws.Hub, pinger Pinger) *Handler {
	return &Handler{
		config:  cfg,
		service: service,
		users:   users,
		jwt:     jwtManager,
		wsHub:   hub,
		pinger:  pinger,
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates connection origins against the
// configured CORS allow-list. A missing Origin header is rejected:
// browsers always send one, and allowing its absence would bypass CORS
// entirely.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("websocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and registers it with the hub as a
// receive-only push channel.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("websocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
