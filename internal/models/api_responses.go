// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package models

import "time"

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - NOT_FOUND: Delete target absent or owned by another user (the two
//     cases are deliberately collapsed so callers cannot probe for the
//     existence of other users' entities)
//   - AUTHENTICATION_ERROR: Invalid/missing credentials
//   - DATABASE_ERROR: Store-layer failure (internal detail never exposed)
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse is the envelope for all non-2xx responses.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// DeleteWaypointResponse is the body of a successful DELETE /waypoints/:id.
type DeleteWaypointResponse struct {
	Message    string `json:"message"`
	WaypointID int64  `json:"waypointId"`
}

// DeletePathResponse is the body of a successful DELETE /paths/:id.
type DeletePathResponse struct {
	Message string `json:"message"`
	PathID  int64  `json:"pathId"`
}

// BulkDeleteResponse is the body of DELETE /waypoints and DELETE /paths.
type BulkDeleteResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

// ClearAllResponse is the body of DELETE /clear-all. Both counts come from
// one atomic transaction; a client never observes one table cleared while
// the other's delete failed.
type ClearAllResponse struct {
	Message          string `json:"message"`
	DeletedWaypoints int64  `json:"deletedWaypoints"`
	DeletedPaths     int64  `json:"deletedPaths"`
}

// LoginResponse is the body of a successful POST /auth/login. The token is
// also set as an HTTP-only cookie for browser clients.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
}

// RegisterResponse is the body of a successful POST /auth/register.
type RegisterResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}
