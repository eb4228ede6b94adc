// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package reconciler

// Mode is the mutually exclusive interaction mode governing how map
// clicks are interpreted. Exactly one mode is active at a time;
// switching modes discards any in-progress unsent draft.
type Mode int

const (
	// ModeIdle is the initial and terminal mode. Clicks do nothing.
	ModeIdle Mode = iota

	// ModeAddingMarker submits a waypoint on every map click.
	ModeAddingMarker

	// ModeDrawingPath accumulates clicked points into a draft path,
	// submitted when the mode is exited with at least two points.
	ModeDrawingPath

	// ModeDeletingEntity deletes a clicked entity if the current user
	// owns it.
	ModeDeletingEntity
)

// String returns the mode name for logging.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeAddingMarker:
		return "adding_marker"
	case ModeDrawingPath:
		return "drawing_path"
	case ModeDeletingEntity:
		return "deleting_entity"
	default:
		return "unknown"
	}
}

// EntityKind distinguishes the two annotation kinds in click dispatch
// and render bookkeeping.
type EntityKind int

const (
	// KindWaypoint identifies a point annotation.
	KindWaypoint EntityKind = iota
	// KindPath identifies a multi-point line annotation.
	KindPath
)

// String returns the kind name for logging.
func (k EntityKind) String() string {
	if k == KindPath {
		return "path"
	}
	return "waypoint"
}
