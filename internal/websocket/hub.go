// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

// Package websocket implements the broadcast hub and its per-connection
// clients.
//
// The hub is a registry of currently-connected push channels. Publishing is
// best-effort and non-blocking per recipient: a slow or closed recipient is
// dropped, never allowed to block delivery to others. There is no replay —
// a channel that connects after an event was published relies on a
// full-list refresh to catch up — and no notion of "sender": every event
// goes to the full registered set, including the originator's own channel.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/metrics"
	"github.com/tomtom215/waymark/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan models.Event
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan models.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// This method is designed for use with suture supervision.
//
// When the context is canceled:
//  1. All connected clients are gracefully closed
//  2. The method returns ctx.Err()
//
// DETERMINISM: Uses priority-based selection to ensure predictable behavior
// when multiple channels are ready simultaneously (Go's select picks
// randomly otherwise):
//   - Priority 1: Context cancellation (shutdown)
//   - Priority 2: Client lifecycle events (Register/Unregister)
//   - Priority 3: Broadcast events
//
// Handling lifecycle first keeps the client set consistent before any event
// is fanned out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		// Priority 3: Handle broadcasts or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case event := <-h.broadcast:
			h.broadcastToClients(event)
		}
	}
}

// Run starts the hub without shutdown support. Intended for tests; the
// server always runs the hub under supervision via RunWithContext.
func (h *Hub) Run() {
	_ = h.RunWithContext(context.Background())
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.ConnectedClients.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.ConnectedClients.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// logGracefulShutdown closes all clients and logs structured shutdown
// information. ctx.Err() is NOT logged as an error because context
// cancellation is expected behavior during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// broadcastToClients sends an event to all connected clients in a
// deterministic order.
//
// DETERMINISM: Clients are sorted by their monotonically-assigned ID so the
// delivery attempt order is consistent within a single publish. Per-recipient
// failure is isolated: a full or closed send channel marks that client for
// removal and the loop carries on to the rest.
func (h *Hub) broadcastToClients(event models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	// Track clients to remove (can't modify map during iteration)
	var toRemove []*Client

	for _, client := range clients {
		select {
		case client.send <- event:
			metrics.EventsBroadcast.Inc()
		default:
			// Channel full or closed, mark for removal
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.BroadcastDrops.Inc()
		logging.Warn().Uint64("client_id", client.id).Msg("dropping unresponsive websocket client")
	}
	if len(toRemove) > 0 {
		metrics.ConnectedClients.Set(float64(len(h.clients)))
	}
}

// closeAllClients gracefully closes all connected clients in ID order.
// Called during shutdown to ensure clean termination.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.ConnectedClients.Set(0)
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// BroadcastNewWaypoint publishes a waypoint creation to every registered
// channel. Fire-and-forget: if the broadcast queue is full the event is
// dropped and logged, never surfaced to the caller.
func (h *Hub) BroadcastNewWaypoint(wp *models.Waypoint) {
	h.publish(models.Event{Type: models.EventTypeNewWaypoint, Payload: wp})
}

// BroadcastNewPath publishes a path creation to every registered channel.
func (h *Hub) BroadcastNewPath(p *models.Path) {
	h.publish(models.Event{Type: models.EventTypeNewPath, Payload: p})
}

func (h *Hub) publish(event models.Event) {
	select {
	case h.broadcast <- event:
	default:
		metrics.BroadcastDrops.Inc()
		logging.Warn().Str("event_type", event.Type).Msg("broadcast channel full, dropping event")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
