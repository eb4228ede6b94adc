// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"context"
	"net/http"
	"time"
)

// healthResponse is the body of the health probe endpoints.
type healthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"connected_clients,omitempty"`
}

// HealthLive reports process liveness. It never touches dependencies;
// a live process that cannot reach its store is still live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// HealthReady reports readiness to serve traffic by pinging the store.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Database unavailable", err)
		return
	}

	clients := 0
	if h.wsHub != nil {
		clients = h.wsHub.GetClientCount()
	}

	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Clients: clients})
}
