// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"net/http"

	"github.com/tomtom215/waymark/internal/auth"
	"github.com/tomtom215/waymark/internal/models"
)

// ListWaypoints returns every waypoint in creation order.
func (h *Handler) ListWaypoints(w http.ResponseWriter, r *http.Request) {
	waypoints, err := h.service.ListWaypoints(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load waypoints", err)
		return
	}
	respondJSON(w, http.StatusOK, waypoints)
}

// CreateWaypoint persists a new waypoint owned by the authenticated
// user and returns it with its server-assigned id and timestamp.
func (h *Handler) CreateWaypoint(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	var req models.CreateWaypointRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err)
		return
	}

	wp, err := h.service.SubmitWaypoint(r.Context(), &req, claims.UserID, claims.Username)
	if err != nil {
		handleServiceError(w, err, "Waypoint not found")
		return
	}

	respondJSON(w, http.StatusCreated, wp)
}

// DeleteWaypoint removes a waypoint the requester owns. A waypoint that
// is absent or owned by someone else yields the same 404.
func (h *Handler) DeleteWaypoint(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid waypoint id", err)
		return
	}

	if err := h.service.DeleteWaypoint(r.Context(), id, claims.UserID); err != nil {
		handleServiceError(w, err, "Waypoint not found")
		return
	}

	respondJSON(w, http.StatusOK, models.DeleteWaypointResponse{
		Message:    "Waypoint deleted",
		WaypointID: id,
	})
}

// DeleteAllWaypoints removes every waypoint the requester owns.
// Deleting zero waypoints is still a success.
func (h *Handler) DeleteAllWaypoints(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	deleted, err := h.service.DeleteAllWaypoints(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete waypoints", err)
		return
	}

	respondJSON(w, http.StatusOK, models.BulkDeleteResponse{
		Message:      "All waypoints deleted",
		DeletedCount: deleted,
	})
}

// ListPaths returns every path in creation order, points in their
// original sequence.
func (h *Handler) ListPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.service.ListPaths(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load paths", err)
		return
	}
	respondJSON(w, http.StatusOK, paths)
}

// CreatePath persists a new path owned by the authenticated user.
func (h *Handler) CreatePath(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	var req models.CreatePathRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err)
		return
	}

	p, err := h.service.SubmitPath(r.Context(), &req, claims.UserID, claims.Username)
	if err != nil {
		handleServiceError(w, err, "Path not found")
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

// DeletePath removes a path the requester owns.
func (h *Handler) DeletePath(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid path id", err)
		return
	}

	if err := h.service.DeletePath(r.Context(), id, claims.UserID); err != nil {
		handleServiceError(w, err, "Path not found")
		return
	}

	respondJSON(w, http.StatusOK, models.DeletePathResponse{
		Message: "Path deleted",
		PathID:  id,
	})
}

// DeleteAllPaths removes every path the requester owns.
func (h *Handler) DeleteAllPaths(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	deleted, err := h.service.DeleteAllPaths(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete paths", err)
		return
	}

	respondJSON(w, http.StatusOK, models.BulkDeleteResponse{
		Message:      "All paths deleted",
		DeletedCount: deleted,
	})
}

// ClearAll atomically removes every annotation the requester owns.
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	result, err := h.service.ClearAll(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to clear annotations", err)
		return
	}

	respondJSON(w, http.StatusOK, models.ClearAllResponse{
		Message:          "All annotations cleared",
		DeletedWaypoints: result.DeletedWaypoints,
		DeletedPaths:     result.DeletedPaths,
	})
}
