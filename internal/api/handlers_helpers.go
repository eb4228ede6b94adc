// Waymark - Collaborative Map Annotation Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/waymark/internal/annotations"
	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/models"
	"github.com/tomtom215/waymark/internal/validation"
)

// maxBodyBytes caps request bodies. The largest legitimate payload is a
// long path; 1MB leaves room for tens of thousands of points.
const maxBodyBytes = 1 << 20

// sanitizeLogValue strips control characters from strings before they
// reach a log line, preventing log injection from request-controlled
// values.
func sanitizeLogValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// respondJSON writes v as the response body with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// respondError writes the error envelope. The underlying error is
// logged but never leaked to the client.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("api error")
	}

	respondJSON(w, status, models.ErrorResponse{Error: &models.APIError{
		Code:    code,
		Message: message,
	}})
}

// respondValidationError writes a 400 carrying the per-field details of
// a validation failure.
func respondValidationError(w http.ResponseWriter, ve *validation.RequestValidationError) {
	apiErr := ve.ToAPIError()
	respondJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}})
}

// decodeJSONBody decodes a size-capped JSON request body into dst.
// Unknown fields are tolerated; clients evolve independently of the
// server.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// idParam parses the {id} route parameter as a positive integer.
func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// handleServiceError maps a mutation service error to an HTTP response.
func handleServiceError(w http.ResponseWriter, err error, notFoundMessage string) {
	var ve *validation.RequestValidationError
	switch {
	case errors.As(err, &ve):
		respondValidationError(w, ve)
	case errors.Is(err, annotations.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", notFoundMessage, nil)
	default:
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Operation failed", err)
	}
}
