// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package models

// CreateWaypointRequest is the body of POST /waypoints.
//
// Lat and Lng are pointers so a missing field is distinguishable from a
// legitimate zero coordinate (the equator and the prime meridian are valid
// places to drop a marker).
type CreateWaypointRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

// CreatePathRequest is the body of POST /paths.
type CreatePathRequest struct {
	Path []LatLng `json:"path" validate:"required,min=2,dive"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
