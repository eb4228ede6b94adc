// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

// Package models defines the wire and storage types shared by the store,
// the broadcast hub, the HTTP API, and the reconciling client.
package models

import "time"

// LatLng is a single WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// Waypoint is a single-point annotation owned by one user.
//
// Waypoints are immutable once created: they can be deleted by their owner
// but never updated. IDs are assigned by the store and are monotonically
// unique across the life of the database.
type Waypoint struct {
	ID        int64     `json:"id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	OwnerID   int64     `json:"ownerId"`
	OwnerName string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Path is an ordered multi-point line annotation owned by one user.
//
// Point order defines the drawn line and is preserved exactly through
// storage and retransmission. A path always has at least two points.
// Like waypoints, paths are immutable except for whole-entity deletion.
type Path struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"ownerId"`
	OwnerName string    `json:"username"`
	Points    []LatLng  `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event types carried on the push channel. Creates broadcast; deletes do
// not — clients observe deletions through full-list refreshes.
const (
	EventTypeNewWaypoint = "new_waypoint"
	EventTypeNewPath     = "new_path"
)

// Event is a transient broadcast message. It exists only on the wire:
// exactly one event is published per successful creation, none is persisted,
// and a channel that connects later never sees it.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
