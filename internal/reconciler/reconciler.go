// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

// Package reconciler implements the client-side state machine that
// merges three asynchronous data sources — full-list refresh, push
// events, and optimistic local inserts — into one duplicate-free
// rendering.
//
// The merge is keyed strictly by server-assigned id. An optimistic
// render that precedes id assignment is display-only: it lives under a
// local pending handle, never enters the rendered-id sets, and is
// removed when the authoritative result (or a failure) arrives. The
// push event for one's own creation therefore dedupes exactly like
// anyone else's, because the hub broadcasts to the originator too.
//
// Deletions are never pushed. They converge through refresh: any
// rendered id absent from a full list is pruned.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/models"
)

// Renderer is the display surface the reconciler draws on. Confirmed
// entities are addressed by server id, optimistic ones by a local
// pending handle; the two address spaces never mix.
type Renderer interface {
	ShowWaypoint(wp models.Waypoint, animated bool)
	ShowPath(p models.Path, animated bool)
	RemoveWaypoint(id int64)
	RemovePath(id int64)

	ShowPendingWaypoint(handle uint64, lat, lng float64)
	ShowPendingPath(handle uint64, points []models.LatLng)
	RemovePending(handle uint64)

	ShowDraftVertex(index int, point models.LatLng)
	ClearDraft()

	NotifyFailure(operation string, err error)
}

// Submitter is the server surface the reconciler mutates and refreshes
// through. The HTTP API client implements it.
type Submitter interface {
	SubmitWaypoint(ctx context.Context, lat, lng float64) (*models.Waypoint, error)
	SubmitPath(ctx context.Context, points []models.LatLng) (*models.Path, error)
	DeleteWaypoint(ctx context.Context, id int64) error
	DeletePath(ctx context.Context, id int64) error
	ClearAll(ctx context.Context) (deletedWaypoints, deletedPaths int64, err error)
	ListWaypoints(ctx context.Context) ([]models.Waypoint, error)
	ListPaths(ctx context.Context) ([]models.Path, error)
}

// Reconciler tracks the interaction mode, the rendered-id sets, and the
// draft path for one connected client.
//
// All exported methods are safe for concurrent use: refreshes and push
// events arrive on their own goroutines while the user drives the mode
// machine. In-flight submissions never block mode changes.
type Reconciler struct {
	userID   int64
	renderer Renderer
	api      Submitter

	mu                sync.Mutex
	mode              Mode
	draft             []models.LatLng
	renderedWaypoints map[int64]models.Waypoint
	renderedPaths     map[int64]models.Path
	nextPending       uint64
	loaded            bool
}

// New creates a reconciler for the given authenticated user.
func New(userID int64, renderer Renderer, api Submitter) *Reconciler {
	return &Reconciler{
		userID:            userID,
		renderer:          renderer,
		api:               api,
		mode:              ModeIdle,
		renderedWaypoints: make(map[int64]models.Waypoint),
		renderedPaths:     make(map[int64]models.Path),
	}
}

// Mode returns the active interaction mode.
func (r *Reconciler) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// DraftLen returns the number of points in the in-progress draft path.
func (r *Reconciler) DraftLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.draft)
}

// RenderedCount reports how many entities of the given kind are
// currently rendered.
func (r *Reconciler) RenderedCount(kind EntityKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kind == KindPath {
		return len(r.renderedPaths)
	}
	return len(r.renderedWaypoints)
}

// IsRendered reports whether the entity id is currently rendered.
func (r *Reconciler) IsRendered(kind EntityKind, id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kind == KindPath {
		_, ok := r.renderedPaths[id]
		return ok
	}
	_, ok := r.renderedWaypoints[id]
	return ok
}

// CanDelete reports whether the current user owns the rendered entity.
// Non-owned entities expose no delete affordance.
func (r *Reconciler) CanDelete(kind EntityKind, id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ownsLocked(kind, id)
}

func (r *Reconciler) ownsLocked(kind EntityKind, id int64) bool {
	if kind == KindPath {
		p, ok := r.renderedPaths[id]
		return ok && p.OwnerID == r.userID
	}
	wp, ok := r.renderedWaypoints[id]
	return ok && wp.OwnerID == r.userID
}

// SetMode switches the interaction mode. Entering any mode first exits
// the previous one: leaving DrawingPath with at least two draft points
// submits the path, fewer points discards the draft silently.
func (r *Reconciler) SetMode(ctx context.Context, mode Mode) {
	r.mu.Lock()
	if r.mode == mode {
		r.mu.Unlock()
		return
	}

	previous := r.mode
	var submit []models.LatLng
	if previous == ModeDrawingPath {
		if len(r.draft) >= 2 {
			submit = r.draft
		}
		r.draft = nil
		r.renderer.ClearDraft()
	}
	r.mode = mode
	r.mu.Unlock()

	logging.Debug().
		Str("from", previous.String()).
		Str("to", mode.String()).
		Msg("interaction mode changed")

	if submit != nil {
		r.submitPath(ctx, submit)
	}
}

// HandleMapClick dispatches a click on the map surface by the active
// mode. Idle and DeletingEntity ignore bare map clicks; entity clicks
// go through HandleEntityClick.
func (r *Reconciler) HandleMapClick(ctx context.Context, point models.LatLng) {
	r.mu.Lock()
	mode := r.mode
	if mode == ModeDrawingPath {
		r.draft = append(r.draft, point)
		index := len(r.draft) - 1
		r.mu.Unlock()
		r.renderer.ShowDraftVertex(index, point)
		return
	}
	r.mu.Unlock()

	if mode == ModeAddingMarker {
		r.submitWaypoint(ctx, point)
	}
}

// HandleEntityClick dispatches a click on a rendered entity. Only
// DeletingEntity mode reacts, and only for entities the current user
// owns; clicking another user's entity is a no-op.
func (r *Reconciler) HandleEntityClick(ctx context.Context, kind EntityKind, id int64) {
	r.mu.Lock()
	if r.mode != ModeDeletingEntity || !r.ownsLocked(kind, id) {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	var err error
	if kind == KindPath {
		err = r.api.DeletePath(ctx, id)
	} else {
		err = r.api.DeleteWaypoint(ctx, id)
	}
	if err != nil {
		r.renderer.NotifyFailure("delete "+kind.String(), err)
		return
	}

	r.mu.Lock()
	if kind == KindPath {
		delete(r.renderedPaths, id)
	} else {
		delete(r.renderedWaypoints, id)
	}
	r.mu.Unlock()

	if kind == KindPath {
		r.renderer.RemovePath(id)
	} else {
		r.renderer.RemoveWaypoint(id)
	}
}

// submitWaypoint optimistically renders the marker under a pending
// handle, submits, and reconciles. The pending render never enters the
// rendered-id set; on failure it is removed instead of lingering as a
// convincing but false confirmation.
func (r *Reconciler) submitWaypoint(ctx context.Context, point models.LatLng) {
	handle := r.allocPending()
	r.renderer.ShowPendingWaypoint(handle, point.Lat, point.Lng)

	go func() {
		wp, err := r.api.SubmitWaypoint(ctx, point.Lat, point.Lng)
		r.renderer.RemovePending(handle)
		if err != nil {
			logging.Warn().Err(err).Msg("waypoint submission failed")
			r.renderer.NotifyFailure("create waypoint", err)
			return
		}
		r.ApplyWaypoint(*wp)
	}()
}

// submitPath mirrors submitWaypoint for a completed draft.
func (r *Reconciler) submitPath(ctx context.Context, points []models.LatLng) {
	handle := r.allocPending()
	r.renderer.ShowPendingPath(handle, points)

	go func() {
		p, err := r.api.SubmitPath(ctx, points)
		r.renderer.RemovePending(handle)
		if err != nil {
			logging.Warn().Err(err).Msg("path submission failed")
			r.renderer.NotifyFailure("create path", err)
			return
		}
		r.ApplyPath(*p)
	}()
}

func (r *Reconciler) allocPending() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextPending++
	return r.nextPending
}

// ApplyWaypoint merges one waypoint from any source — push event,
// refresh, or a confirmed submission. An id already rendered is
// skipped; a new one is rendered and recorded. Arrivals after the
// initial load animate to draw attention.
func (r *Reconciler) ApplyWaypoint(wp models.Waypoint) {
	r.mu.Lock()
	if _, ok := r.renderedWaypoints[wp.ID]; ok {
		r.mu.Unlock()
		return
	}
	r.renderedWaypoints[wp.ID] = wp
	animated := r.loaded
	r.mu.Unlock()

	r.renderer.ShowWaypoint(wp, animated)
}

// ApplyPath merges one path from any source.
func (r *Reconciler) ApplyPath(p models.Path) {
	r.mu.Lock()
	if _, ok := r.renderedPaths[p.ID]; ok {
		r.mu.Unlock()
		return
	}
	r.renderedPaths[p.ID] = p
	animated := r.loaded
	r.mu.Unlock()

	r.renderer.ShowPath(p, animated)
}

// ApplyWaypoints merges a full waypoint list. New ids are rendered,
// known ids skipped, and rendered ids absent from the list are pruned.
// Pruning is how deletions converge, since deletes are never pushed.
func (r *Reconciler) ApplyWaypoints(waypoints []models.Waypoint) {
	present := make(map[int64]bool, len(waypoints))
	for _, wp := range waypoints {
		present[wp.ID] = true
		r.ApplyWaypoint(wp)
	}

	r.mu.Lock()
	var removed []int64
	for id := range r.renderedWaypoints {
		if !present[id] {
			delete(r.renderedWaypoints, id)
			removed = append(removed, id)
		}
	}
	r.mu.Unlock()

	for _, id := range removed {
		r.renderer.RemoveWaypoint(id)
	}
}

// ApplyPaths merges a full path list, pruning rendered paths no longer
// present.
func (r *Reconciler) ApplyPaths(paths []models.Path) {
	present := make(map[int64]bool, len(paths))
	for _, p := range paths {
		present[p.ID] = true
		r.ApplyPath(p)
	}

	r.mu.Lock()
	var removed []int64
	for id := range r.renderedPaths {
		if !present[id] {
			delete(r.renderedPaths, id)
			removed = append(removed, id)
		}
	}
	r.mu.Unlock()

	for _, id := range removed {
		r.renderer.RemovePath(id)
	}
}

// InitialLoad fetches and renders both full lists without animation,
// then arms animation for everything that arrives later.
func (r *Reconciler) InitialLoad(ctx context.Context) error {
	waypoints, err := r.api.ListWaypoints(ctx)
	if err != nil {
		return err
	}
	paths, err := r.api.ListPaths(ctx)
	if err != nil {
		return err
	}

	r.ApplyWaypoints(waypoints)
	r.ApplyPaths(paths)

	r.mu.Lock()
	r.loaded = true
	r.mu.Unlock()
	return nil
}

// Refresh fetches and merges both full lists. Unlike InitialLoad,
// discoveries animate.
func (r *Reconciler) Refresh(ctx context.Context) error {
	waypoints, err := r.api.ListWaypoints(ctx)
	if err != nil {
		return err
	}
	paths, err := r.api.ListPaths(ctx)
	if err != nil {
		return err
	}

	r.ApplyWaypoints(waypoints)
	r.ApplyPaths(paths)
	return nil
}

// RunRefreshLoop refreshes on the given interval until the context is
// canceled. Individual refresh failures are logged and retried on the
// next tick; prior rendered state stays untouched.
func (r *Reconciler) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				logging.Warn().Err(err).Msg("refresh failed")
			}
		}
	}
}

// ClearOverlays invokes the atomic server-side clear and removes only
// the current user's entities from the rendering and the tracking
// sets. Other users' rendered entities are untouched.
func (r *Reconciler) ClearOverlays(ctx context.Context) error {
	deletedWaypoints, deletedPaths, err := r.api.ClearAll(ctx)
	if err != nil {
		r.renderer.NotifyFailure("clear all", err)
		return err
	}

	r.mu.Lock()
	var removedWaypoints, removedPaths []int64
	for id, wp := range r.renderedWaypoints {
		if wp.OwnerID == r.userID {
			delete(r.renderedWaypoints, id)
			removedWaypoints = append(removedWaypoints, id)
		}
	}
	for id, p := range r.renderedPaths {
		if p.OwnerID == r.userID {
			delete(r.renderedPaths, id)
			removedPaths = append(removedPaths, id)
		}
	}
	r.mu.Unlock()

	for _, id := range removedWaypoints {
		r.renderer.RemoveWaypoint(id)
	}
	for _, id := range removedPaths {
		r.renderer.RemovePath(id)
	}

	logging.Info().
		Int64("deleted_waypoints", deletedWaypoints).
		Int64("deleted_paths", deletedPaths).
		Msg("cleared own annotations")
	return nil
}
