// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

// Package client is the Go client for the Waymark API: an HTTP client
// covering the annotation and auth endpoints, and a websocket stream
// for the receive-only push channel. The HTTP client satisfies the
// reconciler's Submitter interface.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waymark/internal/models"
)

// Client talks to a Waymark server over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token used on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates an API client for the given base URL, e.g.
// "http://localhost:3857".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates and stores the returned token for subsequent
// requests.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login",
		models.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.RegisterResponse, error) {
	var resp models.RegisterResponse
	err := c.do(ctx, http.MethodPost, "/auth/register",
		models.RegisterRequest{Username: username, Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitWaypoint creates a waypoint and returns the persisted entity
// with its server-assigned id.
func (c *Client) SubmitWaypoint(ctx context.Context, lat, lng float64) (*models.Waypoint, error) {
	var wp models.Waypoint
	err := c.do(ctx, http.MethodPost, "/waypoints",
		models.CreateWaypointRequest{Lat: &lat, Lng: &lng}, &wp)
	if err != nil {
		return nil, err
	}
	return &wp, nil
}

// SubmitPath creates a path from the ordered point sequence.
func (c *Client) SubmitPath(ctx context.Context, points []models.LatLng) (*models.Path, error) {
	var p models.Path
	err := c.do(ctx, http.MethodPost, "/paths",
		models.CreatePathRequest{Path: points}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListWaypoints fetches every waypoint in creation order.
func (c *Client) ListWaypoints(ctx context.Context) ([]models.Waypoint, error) {
	var waypoints []models.Waypoint
	if err := c.do(ctx, http.MethodGet, "/waypoints", nil, &waypoints); err != nil {
		return nil, err
	}
	return waypoints, nil
}

// ListPaths fetches every path in creation order.
func (c *Client) ListPaths(ctx context.Context) ([]models.Path, error) {
	var paths []models.Path
	if err := c.do(ctx, http.MethodGet, "/paths", nil, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

// DeleteWaypoint removes an owned waypoint.
func (c *Client) DeleteWaypoint(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/waypoints/%d", id), nil, nil)
}

// DeletePath removes an owned path.
func (c *Client) DeletePath(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/paths/%d", id), nil, nil)
}

// DeleteAllWaypoints removes every waypoint the caller owns.
func (c *Client) DeleteAllWaypoints(ctx context.Context) (int64, error) {
	var resp models.BulkDeleteResponse
	if err := c.do(ctx, http.MethodDelete, "/waypoints", nil, &resp); err != nil {
		return 0, err
	}
	return resp.DeletedCount, nil
}

// DeleteAllPaths removes every path the caller owns.
func (c *Client) DeleteAllPaths(ctx context.Context) (int64, error) {
	var resp models.BulkDeleteResponse
	if err := c.do(ctx, http.MethodDelete, "/paths", nil, &resp); err != nil {
		return 0, err
	}
	return resp.DeletedCount, nil
}

// ClearAll atomically removes every annotation the caller owns and
// reports the per-kind counts.
func (c *Client) ClearAll(ctx context.Context) (int64, int64, error) {
	var resp models.ClearAllResponse
	if err := c.do(ctx, http.MethodDelete, "/clear-all", nil, &resp); err != nil {
		return 0, 0, err
	}
	return resp.DeletedWaypoints, resp.DeletedPaths, nil
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether the error is a 404 from the server.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: "UNKNOWN"}

	var envelope models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
