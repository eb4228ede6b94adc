// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

// Package metrics defines the Prometheus instrumentation surface:
// HTTP endpoint latency and throughput, mutation outcomes, and the
// websocket fan-out.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Mutation Metrics
	AnnotationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotations_created_total",
			Help: "Total number of annotations created",
		},
		[]string{"kind"}, // "waypoint", "path"
	)

	AnnotationsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotations_deleted_total",
			Help: "Total number of annotations deleted",
		},
		[]string{"kind"}, // "waypoint", "path"
	)

	MutationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutation_errors_total",
			Help: "Total number of failed mutations",
		},
		[]string{"operation", "error_type"}, // error_type: "validation", "database"
	)

	// WebSocket Metrics
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_clients",
			Help: "Current number of connected websocket clients",
		},
	)

	EventsBroadcast = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_events_broadcast_total",
			Help: "Total number of events delivered to websocket clients",
		},
	)

	BroadcastDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_broadcast_drops_total",
			Help: "Total number of events dropped due to slow clients or a full queue",
		},
	)

	// Database Metrics
	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)
)

// RecordAPIRequest records metrics for a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordMutationError classifies a failed mutation for alerting.
func RecordMutationError(operation string, status int) {
	errorType := "database"
	if status >= 400 && status < 500 {
		errorType = "validation"
	}
	MutationErrors.WithLabelValues(operation, errorType).Inc()
}

// StatusLabel converts an HTTP status code to its metric label form.
func StatusLabel(code int) string {
	return strconv.Itoa(code)
}
