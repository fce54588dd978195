// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package api provides the HTTP surface: the versioned chi router, the JSON
// envelope every endpoint speaks, and the handlers that translate between
// wire payloads and the engine's operations.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/moodloop/moodloop/internal/logging"
)

// Envelope is the wire format shared by every endpoint:
// {"success": bool, "data": ..., "error": {...}, "timestamp": ISO-8601}.
type Envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError carries a stable machine-readable code plus a human message.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Stable error codes.
const (
	CodeInvalidInput    = "E003"
	CodeUnknownResource = "E005"
	CodeAuthFailure     = "E007"
	CodeInternal        = "E010"
)

// details.reason values for recommendation-specific E003 conditions.
const (
	ReasonNoPendingSession = "no_pending_session"
	ReasonCatalogEmpty     = "catalog_empty"
	ReasonStateOutOfRange  = "state_out_of_range"
	ReasonUserBusy         = "user_busy"
)

func respondJSON(w http.ResponseWriter, status int, env Envelope) {
	env.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logging.Error().Err(err).Msg("encode response")
	}
}

// respondSuccess writes a 200 envelope with the payload.
func respondSuccess(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// respondError writes an error envelope with the given status and code.
func respondError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	respondJSON(w, status, Envelope{
		Success: false,
		Error:   &APIError{Code: code, Message: message, Details: details},
	})
}

func respondInvalid(w http.ResponseWriter, message string, details map[string]any) {
	respondError(w, http.StatusBadRequest, CodeInvalidInput, message, details)
}

func respondInternal(w http.ResponseWriter, message string) {
	respondError(w, http.StatusInternalServerError, CodeInternal, message, nil)
}
