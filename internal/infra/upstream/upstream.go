// Package upstream talks to the movie-metadata API.
//
// This package contains:
//   - Client: GET requests with the server-held API key, run under a retry policy
//   - CallRequest builders for the trending, details and search resources
//   - Monitor: latency and failure tracking for health reporting
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/tmdbproxy/internal/core/domain"
	"github.com/vietddude/tmdbproxy/internal/metrics"
	"github.com/vietddude/tmdbproxy/internal/retry"
)

// DefaultBaseURL is the public TMDB v3 endpoint.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// DefaultMaxBodyBytes caps how much of an upstream response is read.
const DefaultMaxBodyBytes = 10 << 20

var (
	// ErrNoPolicy is returned in an outcome when a CallRequest has no policy.
	ErrNoPolicy = errors.New("call request has no retry policy")
	// ErrBodyTooLarge means the response exceeded the body limit and was discarded.
	ErrBodyTooLarge = errors.New("response body too large")
)

// Config holds upstream connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // optional client-level ceiling; zero leaves deadlines to the policy

	MaxBodyBytes int64
}

// Client issues requests against the upstream API.
type Client struct {
	baseURL    string
	apiKey     string
	maxBody    int64
	httpClient *http.Client
	log        *slog.Logger

	Monitor *Monitor
}

// NewClient creates a new upstream client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		maxBody: maxBody,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log:     slog.Default().With("component", "upstream"),
		Monitor: NewMonitor(),
	}
}

// CallRequest is one proxied upstream call. It is immutable once built.
type CallRequest struct {
	Kind   domain.ResourceKind
	Path   string
	Query  url.Values
	Policy *retry.Policy
}

// Call runs req under its policy until success, not-found or exhaustion.
// It never returns an error directly; failures are carried in the outcome.
func (c *Client) Call(ctx context.Context, req CallRequest) domain.CallOutcome {
	if req.Policy == nil {
		return domain.CallOutcome{Kind: req.Kind, Status: domain.OutcomeExhausted, Err: ErrNoPolicy}
	}

	var body []byte
	res := req.Policy.Do(ctx, func(ctx context.Context, attempt int) (int, error) {
		statusCode, b, err := c.get(ctx, req)
		if err != nil {
			return 0, err
		}
		body = b
		return statusCode, nil
	})

	out := domain.CallOutcome{Kind: req.Kind, Attempts: res.Attempts}
	switch res.Verdict {
	case retry.VerdictSuccess:
		out.Status = domain.OutcomeSuccess
		out.Body = body
	case retry.VerdictTerminal:
		out.Status = domain.OutcomeNotFound
	default:
		out.Status = domain.OutcomeExhausted
		out.Err = res.Err
	}

	c.log.Debug("Upstream call finished",
		"resource", req.Kind,
		"outcome", out.Status.String(),
		"attempts", out.Attempts,
	)
	return out
}

func (c *Client) get(ctx context.Context, req CallRequest) (int, []byte, error) {
	start := time.Now()

	query := url.Values{}
	for k, v := range req.Query {
		query[k] = v
	}
	query.Set("api_key", c.apiKey)
	target := c.baseURL + req.Path + "?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.Monitor.RecordFailure(0)
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.Monitor.RecordFailure(0)
		// url.Error would echo the api key back into logs
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return 0, nil, fmt.Errorf("%s request: %w", req.Kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		c.Monitor.RecordFailure(resp.StatusCode)
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		c.Monitor.RecordFailure(resp.StatusCode)
		return 0, nil, fmt.Errorf("%s response over %d bytes: %w", req.Kind, c.maxBody, ErrBodyTooLarge)
	}

	latency := time.Since(start)
	metrics.UpstreamLatency.WithLabelValues(string(req.Kind)).Observe(latency.Seconds())

	if resp.StatusCode == http.StatusOK {
		c.Monitor.RecordSuccess(latency)
	} else {
		c.Monitor.RecordFailure(resp.StatusCode)
	}
	return resp.StatusCode, body, nil
}

// Close cleans up resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
