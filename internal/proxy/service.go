// Package proxy implements the trending, details and search operations on top
// of the upstream client, degrading to fallback documents on exhaustion.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/tmdbproxy/internal/core/config"
	"github.com/vietddude/tmdbproxy/internal/core/domain"
	"github.com/vietddude/tmdbproxy/internal/infra/upstream"
	"github.com/vietddude/tmdbproxy/internal/metrics"
	"github.com/vietddude/tmdbproxy/internal/retry"
)

var (
	// ErrNotFound means the upstream authoritatively reported the resource absent.
	ErrNotFound = errors.New("resource not found")
	// ErrUnavailable means the upstream failed and no fallback document exists.
	ErrUnavailable = errors.New("upstream unavailable")
)

// Caller runs one upstream call to completion.
type Caller interface {
	Call(ctx context.Context, req upstream.CallRequest) domain.CallOutcome
}

// Fallbacks looks up canned documents.
type Fallbacks interface {
	Document(kind domain.ResourceKind) ([]byte, bool)
}

// Policies holds the retry policy for each resource.
type Policies struct {
	Trending *retry.Policy
	Details  *retry.Policy
	Search   *retry.Policy
}

// NewPolicies builds the per-resource policies. Only details treats 404 as
// terminal; every other non-200 status is retried.
func NewPolicies(cfg config.RetryConfig) Policies {
	build := func(name string, ep config.EndpointPolicy, classify retry.Classifier) *retry.Policy {
		return retry.New(name, retry.Config{
			MaxAttempts:     ep.MaxAttempts,
			AttemptTimeout:  ep.Timeout,
			InitialDelay:    cfg.InitialDelay,
			BackoffMultiple: 2.0,
		}, classify)
	}
	return Policies{
		Trending: build(string(domain.ResourceTrending), cfg.Trending, retry.OKOnly),
		Details:  build(string(domain.ResourceDetails), cfg.Details, retry.TerminalOn(http.StatusNotFound)),
		Search:   build(string(domain.ResourceSearch), cfg.Search, retry.OKOnly),
	}
}

// WithSleeper returns a copy of ps whose policies wait with s.
func (ps Policies) WithSleeper(s retry.Sleeper) Policies {
	return Policies{
		Trending: ps.Trending.WithSleeper(s),
		Details:  ps.Details.WithSleeper(s),
		Search:   ps.Search.WithSleeper(s),
	}
}

// Service exposes the proxied operations.
type Service struct {
	caller    Caller
	fallbacks Fallbacks
	policies  Policies
	log       *slog.Logger
}

// NewService creates a new proxy service.
func NewService(caller Caller, fallbacks Fallbacks, policies Policies) *Service {
	return &Service{
		caller:    caller,
		fallbacks: fallbacks,
		policies:  policies,
		log:       slog.Default().With("component", "proxy"),
	}
}

// Trending returns the trending list for the given media type and window.
func (s *Service) Trending(ctx context.Context, p domain.TrendingParams) ([]byte, error) {
	return s.resolve(s.caller.Call(ctx, upstream.TrendingRequest(p, s.policies.Trending)))
}

// Details returns a single title, or ErrNotFound when the upstream has no such id.
func (s *Service) Details(ctx context.Context, p domain.DetailsParams) ([]byte, error) {
	return s.resolve(s.caller.Call(ctx, upstream.DetailsRequest(p, s.policies.Details)))
}

// Search runs a search query.
func (s *Service) Search(ctx context.Context, p domain.SearchParams) ([]byte, error) {
	return s.resolve(s.caller.Call(ctx, upstream.SearchRequest(p, s.policies.Search)))
}

func (s *Service) resolve(out domain.CallOutcome) ([]byte, error) {
	switch out.Status {
	case domain.OutcomeSuccess:
		return out.Body, nil
	case domain.OutcomeNotFound:
		return nil, fmt.Errorf("%s: %w", out.Kind, ErrNotFound)
	}

	doc, ok := s.fallbacks.Document(out.Kind)
	if !ok {
		s.log.Error("Upstream exhausted and no fallback document", "resource", out.Kind, "error", out.Err)
		return nil, fmt.Errorf("%s: %w", out.Kind, ErrUnavailable)
	}

	s.log.Warn("Serving fallback document",
		"resource", out.Kind,
		"attempts", out.Attempts,
		"error", out.Err,
	)
	metrics.FallbacksServed.WithLabelValues(string(out.Kind)).Inc()
	return doc, nil
}
