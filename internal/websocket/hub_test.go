// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package websocket

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// setupHub creates and starts a new hub for testing
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	time.Sleep(10 * time.Millisecond)
	return hub
}

// createTestClient creates a client without an underlying connection
func createTestClient(hub *Hub) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: nil,
		send: make(chan models.Event, 256),
	}
}

// registerClient registers a client and waits for registration to complete
func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

func testWaypoint(id int64) *models.Waypoint {
	return &models.Waypoint{
		ID: id, Lat: 45.0, Lng: -122.0,
		OwnerID: 1, OwnerName: "alice", CreatedAt: time.Now(),
	}
}

func testPath(id int64) *models.Path {
	return &models.Path{
		ID: id, OwnerID: 1, OwnerName: "alice",
		Points:    []models.LatLng{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}},
		CreatedAt: time.Now(),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}

	checks := []struct {
		name   string
		check  bool
		errMsg string
	}{
		{"clients map", hub.clients != nil, "clients map not initialized"},
		{"broadcast channel", hub.broadcast != nil, "broadcast channel not initialized"},
		{"Register channel", hub.Register != nil, "Register channel not initialized"},
		{"Unregister channel", hub.Unregister != nil, "Unregister channel not initialized"},
		{"empty clients", len(hub.clients) == 0, "clients map should be empty"},
	}

	for _, c := range checks {
		if !c.check {
			t.Error(c.errMsg)
		}
	}
}

func TestHub_GetClientCount(t *testing.T) {
	hub := NewHub()

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients initially, got %d", hub.GetClientCount())
	}

	for i := 0; i < 5; i++ {
		hub.clients[createTestClient(hub)] = true
	}

	if hub.GetClientCount() != 5 {
		t.Errorf("Expected 5 clients, got %d", hub.GetClientCount())
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)

	registerClient(hub, client)
	if hub.GetClientCount() != 1 {
		t.Fatalf("Expected 1 client after register, got %d", hub.GetClientCount())
	}

	hub.Unregister <- client
	time.Sleep(20 * time.Millisecond)
	if hub.GetClientCount() != 0 {
		t.Fatalf("Expected 0 clients after unregister, got %d", hub.GetClientCount())
	}

	// Unregistering an unknown client must be harmless
	hub.Unregister <- createTestClient(hub)
	time.Sleep(20 * time.Millisecond)
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := setupHub(t)
	hub.BroadcastNewWaypoint(testWaypoint(1))
	hub.BroadcastNewPath(testPath(1))
	time.Sleep(10 * time.Millisecond)
}

func TestHub_BroadcastDeliversToAllClients(t *testing.T) {
	hub := setupHub(t)

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = createTestClient(hub)
		registerClient(hub, clients[i])
	}

	hub.BroadcastNewWaypoint(testWaypoint(7))
	time.Sleep(50 * time.Millisecond)

	for i, client := range clients {
		select {
		case event := <-client.send:
			if event.Type != models.EventTypeNewWaypoint {
				t.Errorf("client %d: expected type %q, got %q", i, models.EventTypeNewWaypoint, event.Type)
			}
			wp, ok := event.Payload.(*models.Waypoint)
			if !ok {
				t.Fatalf("client %d: payload is %T, not *models.Waypoint", i, event.Payload)
			}
			if wp.ID != 7 {
				t.Errorf("client %d: expected waypoint id 7, got %d", i, wp.ID)
			}
		default:
			t.Errorf("client %d received no event", i)
		}
	}
}

func TestHub_BroadcastIncludesOriginator(t *testing.T) {
	// The hub has no notion of sender: every registered channel gets
	// every event, including the one that originated the mutation.
	hub := setupHub(t)

	originator := createTestClient(hub)
	observer := createTestClient(hub)
	registerClient(hub, originator)
	registerClient(hub, observer)

	hub.BroadcastNewPath(testPath(3))
	time.Sleep(50 * time.Millisecond)

	for _, client := range []*Client{originator, observer} {
		select {
		case event := <-client.send:
			if event.Type != models.EventTypeNewPath {
				t.Errorf("expected type %q, got %q", models.EventTypeNewPath, event.Type)
			}
		default:
			t.Error("client received no event")
		}
	}
}

func TestHub_LateSubscriberReceivesNothing(t *testing.T) {
	hub := setupHub(t)

	early := createTestClient(hub)
	registerClient(hub, early)

	hub.BroadcastNewWaypoint(testWaypoint(1))
	time.Sleep(50 * time.Millisecond)

	late := createTestClient(hub)
	registerClient(hub, late)

	select {
	case event := <-late.send:
		t.Errorf("late subscriber received event %q published before registration", event.Type)
	default:
	}

	if len(early.send) != 1 {
		t.Errorf("early subscriber expected 1 event, got %d", len(early.send))
	}
}

func TestHub_SlowClientIsDroppedNotBlocking(t *testing.T) {
	hub := setupHub(t)

	slow := createTestClient(hub)
	slow.send = make(chan models.Event) // unbuffered, nothing reading
	healthy := createTestClient(hub)
	registerClient(hub, slow)
	registerClient(hub, healthy)

	hub.BroadcastNewWaypoint(testWaypoint(1))
	time.Sleep(50 * time.Millisecond)

	if hub.GetClientCount() != 1 {
		t.Errorf("expected slow client to be dropped, count = %d", hub.GetClientCount())
	}
	if len(healthy.send) != 1 {
		t.Errorf("healthy client expected 1 event, got %d", len(healthy.send))
	}
}

func TestHub_RunWithContextCancellation(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- hub.RunWithContext(ctx)
	}()

	client := createTestClient(hub)
	registerClient(hub, client)

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after context cancellation")
	}

	// All client channels are closed on shutdown
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel, got event")
		}
	default:
		t.Error("send channel not closed after shutdown")
	}
}

func TestHub_ConcurrentRegisterPublish(t *testing.T) {
	hub := setupHub(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			client := createTestClient(hub)
			hub.Register <- client
		}()
		go func(n int64) {
			defer wg.Done()
			hub.BroadcastNewWaypoint(testWaypoint(n))
		}(int64(i))
	}
	wg.Wait()
	time.Sleep(50 * time.Millisecond)

	if hub.GetClientCount() == 0 {
		t.Error("expected registered clients to survive concurrent publishing")
	}
}

func TestHub_PublishFullQueueDropsEvent(t *testing.T) {
	// An unstarted hub never drains its broadcast channel; filling it
	// must drop rather than block.
	hub := NewHub()

	for i := 0; i < cap(hub.broadcast)+10; i++ {
		hub.BroadcastNewWaypoint(testWaypoint(int64(i)))
	}

	if len(hub.broadcast) != cap(hub.broadcast) {
		t.Errorf("expected broadcast channel at capacity %d, got %d", cap(hub.broadcast), len(hub.broadcast))
	}
}
