// Package api exposes the proxy over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/tmdbproxy/internal/core/domain"
	"github.com/vietddude/tmdbproxy/internal/infra/upstream"
	"github.com/vietddude/tmdbproxy/internal/metrics"
	"github.com/vietddude/tmdbproxy/internal/proxy"
)

const maxRequestBytes = 1 << 20

// Proxy is the set of proxied operations.
type Proxy interface {
	Trending(ctx context.Context, p domain.TrendingParams) ([]byte, error)
	Details(ctx context.Context, p domain.DetailsParams) ([]byte, error)
	Search(ctx context.Context, p domain.SearchParams) ([]byte, error)
}

// Dispatcher sends notifications in the background.
type Dispatcher interface {
	Dispatch(url string, payload any)
}

// StatsSource reports upstream health.
type StatsSource interface {
	Stats() upstream.MonitorStats
}

// Handler serves the proxy endpoints.
type Handler struct {
	proxy      Proxy
	auth       *SecretChecker
	dispatcher Dispatcher
	stats      StatsSource
	now        func() time.Time
}

// NewHandler creates a new handler. stats may be nil.
func NewHandler(p Proxy, auth *SecretChecker, dispatcher Dispatcher, stats StatsSource) *Handler {
	return &Handler{
		proxy:      p,
		auth:       auth,
		dispatcher: dispatcher,
		stats:      stats,
		now:        time.Now,
	}
}

type defaulter interface {
	applyDefaults()
}

// readRequest authenticates, decodes and validates a request body into dst.
// It writes the error response itself and returns false on any failure.
func (h *Handler) readRequest(w http.ResponseWriter, r *http.Request, op string, dst defaulter) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		metrics.RequestsRejected.WithLabelValues(op, KindInvalidArgument).Inc()
		writeError(w, http.StatusBadRequest, APIError{Kind: KindInvalidArgument, Message: "request body too large or unreadable"})
		return false
	}

	if err := h.auth.Check(r, body); err != nil {
		metrics.RequestsRejected.WithLabelValues(op, KindUnauthorized).Inc()
		slog.Warn("Rejected request", "operation", op, "reason", err)
		writeError(w, http.StatusUnauthorized, APIError{Kind: KindUnauthorized, Message: "Invalid secret"})
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		metrics.RequestsRejected.WithLabelValues(op, KindInvalidArgument).Inc()
		writeError(w, http.StatusBadRequest, APIError{Kind: KindInvalidArgument, Message: "invalid JSON body"})
		return false
	}
	dst.applyDefaults()

	if apiErr := validateStruct(dst); apiErr != nil {
		metrics.RequestsRejected.WithLabelValues(op, KindInvalidArgument).Inc()
		slog.Debug("Invalid request", "operation", op, "error", apiErr.Message)
		writeError(w, http.StatusBadRequest, *apiErr)
		return false
	}
	return true
}

// Trending handles POST /tmdb/trending.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	var req TrendingRequest
	if !h.readRequest(w, r, "trending", &req) {
		return
	}
	body, err := h.proxy.Trending(r.Context(), req.params())
	h.respond(w, body, err)
}

// Details handles POST /tmdb/details.
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	var req DetailsRequest
	if !h.readRequest(w, r, "details", &req) {
		return
	}
	body, err := h.proxy.Details(r.Context(), req.params())
	h.respond(w, body, err)
}

// Search handles POST /tmdb/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !h.readRequest(w, r, "search", &req) {
		return
	}
	body, err := h.proxy.Search(r.Context(), req.params())
	h.respond(w, body, err)
}

func (h *Handler) respond(w http.ResponseWriter, body []byte, err error) {
	switch {
	case err == nil:
		writeRaw(w, body)
	case errors.Is(err, proxy.ErrNotFound):
		writeError(w, http.StatusNotFound, APIError{Kind: KindNotFound, Message: "Not found"})
	case errors.Is(err, proxy.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, APIError{Kind: KindUnavailable, Message: "Upstream unavailable"})
	default:
		slog.Error("Unexpected proxy error", "error", err)
		writeError(w, http.StatusInternalServerError, APIError{Kind: KindInternal, Message: "Internal error"})
	}
}

// Build handles POST /build. The build is acknowledged immediately and the
// evaluator, when given, is notified in the background.
func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	var req BuildRequest
	if !h.readRequest(w, r, "build", &req) {
		return
	}

	if req.EvaluationURL != "" && h.dispatcher != nil {
		requestID := uuid.NewString()
		slog.Info("Build accepted, notifying evaluator",
			"task", req.Task,
			"round", req.Round,
			"request_id", requestID,
		)
		h.dispatcher.Dispatch(req.EvaluationURL, BuildNotification{
			Email:     req.Email,
			Task:      req.Task,
			Round:     req.Round,
			Nonce:     req.Nonce,
			Status:    "accepted",
			RequestID: requestID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "accepted",
		"task":   req.Task,
		"round":  req.Round,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": h.now().Format(time.RFC3339),
	})
}

// HealthDetailed handles GET /health/detailed.
func (h *Handler) HealthDetailed(w http.ResponseWriter, r *http.Request) {
	report := map[string]any{
		"status":    "healthy",
		"timestamp": h.now().Format(time.RFC3339),
	}
	if h.stats != nil {
		stats := h.stats.Stats()
		report["upstream"] = stats
		if stats.Status != upstream.StatusHealthy {
			report["status"] = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, report)
}
