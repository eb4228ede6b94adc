// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

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

func TestSubmitWaypoint(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/waypoints" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var req models.CreateWaypointRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Waypoint{ID: 5, Lat: *req.Lat, Lng: *req.Lng, OwnerID: 1})
	}))
	defer server.Close()

	c := New(server.URL, WithToken("testtoken"))
	wp, err := c.SubmitWaypoint(context.Background(), 45.0, -122.0)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if wp.ID != 5 || wp.Lat != 45.0 {
		t.Errorf("unexpected waypoint: %+v", wp)
	}
	if gotAuth != "Bearer testtoken" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: &models.APIError{
			Code:    "NOT_FOUND",
			Message: "Waypoint not found",
		}})
	}))
	defer server.Close()

	c := New(server.URL)
	err := c.DeleteWaypoint(context.Background(), 42)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("expected not-found classification, got %v", err)
	}
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "NOT_FOUND" {
		t.Errorf("error envelope not decoded: %v", err)
	}
}

func TestClearAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/clear-all" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.ClearAllResponse{
			Message: "All annotations cleared", DeletedWaypoints: 3, DeletedPaths: 2,
		})
	}))
	defer server.Close()

	c := New(server.URL)
	wps, ps, err := c.ClearAll(context.Background())
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if wps != 3 || ps != 2 {
		t.Errorf("unexpected counts: %d, %d", wps, ps)
	}
}

func TestLoginStoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(models.LoginResponse{Token: "issued", UserID: 1, Username: "alice"})
		case "/waypoints":
			if r.Header.Get("Authorization") != "Bearer issued" {
				t.Errorf("login token not reused: %q", r.Header.Get("Authorization"))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode([]models.Waypoint{})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := New(server.URL)
	resp, err := c.Login(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Token != "issued" {
		t.Errorf("unexpected token %q", resp.Token)
	}
	if _, err := c.ListWaypoints(context.Background()); err != nil {
		t.Fatalf("list failed: %v", err)
	}
}

// recordingHandler collects dispatched events.
type recordingHandler struct {
	waypoints []models.Waypoint
	paths     []models.Path
}

func (h *recordingHandler) ApplyWaypoint(wp models.Waypoint) { h.waypoints = append(h.waypoints, wp) }
func (h *recordingHandler) ApplyPath(p models.Path)          { h.paths = append(h.paths, p) }

func TestStreamDispatch(t *testing.T) {
	handler := &recordingHandler{}
	s := NewStream("http://localhost:3857", "http://localhost:3857", "", handler)

	t.Run("waypoint event", func(t *testing.T) {
		s.dispatch([]byte(`{"type":"new_waypoint","payload":{"id":7,"lat":45,"lng":-122,"ownerId":1}}`))
		if len(handler.waypoints) != 1 || handler.waypoints[0].ID != 7 {
			t.Errorf("waypoint event not dispatched: %+v", handler.waypoints)
		}
	})

	t.Run("path event", func(t *testing.T) {
		s.dispatch([]byte(`{"type":"new_path","payload":{"id":8,"ownerId":1,"path":[{"lat":1,"lng":1},{"lat":2,"lng":2}]}}`))
		if len(handler.paths) != 1 || len(handler.paths[0].Points) != 2 {
			t.Errorf("path event not dispatched: %+v", handler.paths)
		}
	})

	t.Run("unknown type skipped", func(t *testing.T) {
		s.dispatch([]byte(`{"type":"server_gossip","payload":{}}`))
		if len(handler.waypoints) != 1 || len(handler.paths) != 1 {
			t.Error("unknown event type mutated handler state")
		}
	})

	t.Run("malformed json skipped", func(t *testing.T) {
		s.dispatch([]byte(`{not json`))
		if len(handler.waypoints) != 1 {
			t.Error("malformed event mutated handler state")
		}
	})
}
