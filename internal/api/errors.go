package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Error kinds returned to clients.
const (
	KindUnauthorized    = "unauthorized"
	KindInvalidArgument = "invalid_argument"
	KindNotFound        = "not_found"
	KindUnavailable     = "upstream_unavailable"
	KindInternal        = "internal"
)

// ErrUnauthorized is returned when a request does not carry the configured secret.
var ErrUnauthorized = errors.New("invalid secret")

// APIError is the structured error body.
type APIError struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

func writeError(w http.ResponseWriter, status int, apiErr APIError) {
	writeJSON(w, status, errorResponse{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

// writeRaw sends an upstream or fallback document verbatim.
func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}
