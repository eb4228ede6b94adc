// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/models"
)

// EventHandler receives decoded push events. The reconciler satisfies
// it through ApplyWaypoint/ApplyPath.
type EventHandler interface {
	ApplyWaypoint(wp models.Waypoint)
	ApplyPath(p models.Path)
}

// wireEvent is the on-the-wire event shape with the payload left raw
// until the type is known.
type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Stream is the receive-only push channel. It reconnects with backoff
// until its context is canceled; missed events during a gap are
// recovered by the next full-list refresh, so reconnection needs no
// replay handshake.
type Stream struct {
	url     string
	origin  string
	token   string
	handler EventHandler
}

// NewStream creates a push channel consumer. baseURL is the server's
// HTTP base URL; the scheme is rewritten to ws/wss.
func NewStream(baseURL, origin, token string, handler EventHandler) *Stream {
	wsURL := strings.Replace(baseURL, "http", "ws", 1)
	return &Stream{
		url:     strings.TrimRight(wsURL, "/") + "/ws",
		origin:  origin,
		token:   token,
		handler: handler,
	}
}

// Run connects and consumes events until the context is canceled.
// Connection failures and drops trigger reconnection with capped
// exponential backoff.
func (s *Stream) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn().Err(err).Dur("backoff", backoff).Msg("push channel disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// consume runs one connection to completion.
func (s *Stream) consume(ctx context.Context) error {
	header := http.Header{}
	header.Set("Origin", s.origin)
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	logging.Info().Str("url", s.url).Msg("push channel connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("push channel read failed: %w", err)
		}
		s.dispatch(data)
	}
}

// dispatch decodes one event and routes it by type. Unknown types are
// logged and skipped so the server can add event types without
// breaking older clients.
func (s *Stream) dispatch(data []byte) {
	var event wireEvent
	if err := json.Unmarshal(data, &event); err != nil {
		logging.Warn().Err(err).Msg("failed to decode push event")
		return
	}

	switch event.Type {
	case models.EventTypeNewWaypoint:
		var wp models.Waypoint
		if err := json.Unmarshal(event.Payload, &wp); err != nil {
			logging.Warn().Err(err).Msg("failed to decode waypoint payload")
			return
		}
		s.handler.ApplyWaypoint(wp)

	case models.EventTypeNewPath:
		var p models.Path
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			logging.Warn().Err(err).Msg("failed to decode path payload")
			return
		}
		s.handler.ApplyPath(p)

	default:
		logging.Debug().Str("type", event.Type).Msg("ignoring unknown event type")
	}
}
