// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

// Package annotations implements the mutation service: the single
// choke point through which every annotation write flows. Each
// mutation validates its input, persists through the store, and on
// success publishes a creation event to the hub. Persistence and
// notification are deliberately decoupled: a failed or dropped
// broadcast never rolls back a committed write, and a late subscriber
// converges through a full-list refresh instead of replay.
package annotations

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/waymark/internal/database"
	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/metrics"
	"github.com/tomtom215/waymark/internal/models"
	"github.com/tomtom215/waymark/internal/validation"
)

// ErrNotFound is returned when a delete matches no row owned by the
// requester. Absent and not-owned are indistinguishable on purpose so
// callers cannot probe for other users' entities.
var ErrNotFound = errors.New("annotation not found")

// Store is the persistence surface the service mutates through.
type Store interface {
	CreateWaypoint(ctx context.Context, lat, lng float64, ownerID int64, ownerName string) (*models.Waypoint, error)
	ListWaypoints(ctx context.Context) ([]models.Waypoint, error)
	DeleteWaypoint(ctx context.Context, id, requesterID int64) (int64, error)
	DeleteAllWaypoints(ctx context.Context, ownerID int64) (int64, error)

	CreatePath(ctx context.Context, points []models.LatLng, ownerID int64, ownerName string) (*models.Path, error)
	ListPaths(ctx context.Context) ([]models.Path, error)
	DeletePath(ctx context.Context, id, requesterID int64) (int64, error)
	DeleteAllPaths(ctx context.Context, ownerID int64) (int64, error)

	ClearAll(ctx context.Context, ownerID int64) (*database.ClearAllResult, error)
}

// Broadcaster receives creation events after a successful persist.
// Deletions are not broadcast; peers converge through refresh.
type Broadcaster interface {
	BroadcastNewWaypoint(wp *models.Waypoint)
	BroadcastNewPath(p *models.Path)
}

// Service coordinates validation, persistence, and fan-out for all
// annotation mutations.
type Service struct {
	store Store
	hub   Broadcaster
}

// NewService creates a mutation service over the given store and hub.
func NewService(store Store, hub Broadcaster) *Service {
	return &Service{store: store, hub: hub}
}

// SubmitWaypoint validates and persists a new waypoint attributed to
// the authenticated owner, then notifies all connected channels. The
// returned waypoint carries its store-assigned id and timestamp.
func (s *Service) SubmitWaypoint(ctx context.Context, req *models.CreateWaypointRequest, ownerID int64, ownerName string) (*models.Waypoint, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	wp, err := s.store.CreateWaypoint(ctx, *req.Lat, *req.Lng, ownerID, ownerName)
	if err != nil {
		return nil, fmt.Errorf("failed to create waypoint: %w", err)
	}

	metrics.AnnotationsCreated.WithLabelValues("waypoint").Inc()
	logging.Ctx(ctx).Info().
		Int64("waypoint_id", wp.ID).
		Int64("owner_id", ownerID).
		Msg("waypoint created")

	s.hub.BroadcastNewWaypoint(wp)
	return wp, nil
}

// SubmitPath validates and persists a new path. The point sequence is
// preserved exactly as submitted; a path needs at least two points.
func (s *Service) SubmitPath(ctx context.Context, req *models.CreatePathRequest, ownerID int64, ownerName string) (*models.Path, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	p, err := s.store.CreatePath(ctx, req.Path, ownerID, ownerName)
	if err != nil {
		return nil, fmt.Errorf("failed to create path: %w", err)
	}

	metrics.AnnotationsCreated.WithLabelValues("path").Inc()
	logging.Ctx(ctx).Info().
		Int64("path_id", p.ID).
		Int64("owner_id", ownerID).
		Int("points", len(p.Points)).
		Msg("path created")

	s.hub.BroadcastNewPath(p)
	return p, nil
}

// ListWaypoints returns every waypoint in creation order.
func (s *Service) ListWaypoints(ctx context.Context) ([]models.Waypoint, error) {
	return s.store.ListWaypoints(ctx)
}

// ListPaths returns every path in creation order.
func (s *Service) ListPaths(ctx context.Context) ([]models.Path, error) {
	return s.store.ListPaths(ctx)
}

// DeleteWaypoint removes a waypoint the requester owns. Returns
// ErrNotFound when no owned row matches. No event is published.
func (s *Service) DeleteWaypoint(ctx context.Context, id, requesterID int64) error {
	deleted, err := s.store.DeleteWaypoint(ctx, id, requesterID)
	if err != nil {
		return fmt.Errorf("failed to delete waypoint: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	metrics.AnnotationsDeleted.WithLabelValues("waypoint").Inc()
	logging.Ctx(ctx).Info().Int64("waypoint_id", id).Msg("waypoint deleted")
	return nil
}

// DeletePath removes a path the requester owns. Returns ErrNotFound
// when no owned row matches.
func (s *Service) DeletePath(ctx context.Context, id, requesterID int64) error {
	deleted, err := s.store.DeletePath(ctx, id, requesterID)
	if err != nil {
		return fmt.Errorf("failed to delete path: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	metrics.AnnotationsDeleted.WithLabelValues("path").Inc()
	logging.Ctx(ctx).Info().Int64("path_id", id).Msg("path deleted")
	return nil
}

// DeleteAllWaypoints removes every waypoint the requester owns and
// reports the count. Zero is a success, not an error.
func (s *Service) DeleteAllWaypoints(ctx context.Context, requesterID int64) (int64, error) {
	deleted, err := s.store.DeleteAllWaypoints(ctx, requesterID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete waypoints: %w", err)
	}

	metrics.AnnotationsDeleted.WithLabelValues("waypoint").Add(float64(deleted))
	logging.Ctx(ctx).Info().Int64("deleted", deleted).Msg("all waypoints deleted")
	return deleted, nil
}

// DeleteAllPaths removes every path the requester owns and reports the
// count.
func (s *Service) DeleteAllPaths(ctx context.Context, requesterID int64) (int64, error) {
	deleted, err := s.store.DeleteAllPaths(ctx, requesterID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete paths: %w", err)
	}

	metrics.AnnotationsDeleted.WithLabelValues("path").Add(float64(deleted))
	logging.Ctx(ctx).Info().Int64("deleted", deleted).Msg("all paths deleted")
	return deleted, nil
}

// ClearAll atomically removes every annotation the requester owns,
// across both kinds, in one transaction.
func (s *Service) ClearAll(ctx context.Context, requesterID int64) (*database.ClearAllResult, error) {
	result, err := s.store.ClearAll(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear annotations: %w", err)
	}

	metrics.AnnotationsDeleted.WithLabelValues("waypoint").Add(float64(result.DeletedWaypoints))
	metrics.AnnotationsDeleted.WithLabelValues("path").Add(float64(result.DeletedPaths))
	logging.Ctx(ctx).Info().
		Int64("deleted_waypoints", result.DeletedWaypoints).
		Int64("deleted_paths", result.DeletedPaths).
		Msg("cleared all annotations")
	return result, nil
}
