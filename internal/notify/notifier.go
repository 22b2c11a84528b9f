// Package notify delivers build results to an evaluator URL.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/tmdbproxy/internal/core/config"
	"github.com/vietddude/tmdbproxy/internal/metrics"
	"github.com/vietddude/tmdbproxy/internal/retry"
)

const maxLoggedBody = 512

// DefaultConfig is 5 attempts with a 30s deadline each and 1s,2s,4s,8s waits.
var DefaultConfig = retry.DefaultConfig

// ConfigFrom builds the notifier's retry config from the notify section and
// the shared initial delay.
func ConfigFrom(cfg *config.AppConfig) retry.Config {
	rc := DefaultConfig
	if cfg.Notify.MaxAttempts > 0 {
		rc.MaxAttempts = cfg.Notify.MaxAttempts
	}
	if cfg.Notify.Timeout > 0 {
		rc.AttemptTimeout = cfg.Notify.Timeout
	}
	if cfg.Retry.InitialDelay > 0 {
		rc.InitialDelay = cfg.Retry.InitialDelay
	}
	return rc
}

// Notifier posts JSON payloads with retry.
type Notifier struct {
	httpClient *http.Client
	policy     *retry.Policy
	log        *slog.Logger
}

// New creates a Notifier using cfg for its attempt budget.
func New(cfg retry.Config) *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		policy: retry.New("notify", cfg, retry.OKOnly),
		log:    slog.Default().With("component", "notifier"),
	}
}

// WithSleeper replaces how the notifier waits between attempts.
func (n *Notifier) WithSleeper(s retry.Sleeper) *Notifier {
	cp := *n
	cp.policy = n.policy.WithSleeper(s)
	return &cp
}

// Notify posts payload to url and reports whether it was delivered with a 200.
// It never returns an error; every failure is logged.
func (n *Notifier) Notify(ctx context.Context, url string, payload any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Error("Failed to encode notification payload", "error", err)
		metrics.NotificationsTotal.WithLabelValues("invalid").Inc()
		return false
	}

	n.log.Info("Sending notification", "url", url)
	res := n.policy.Do(ctx, func(ctx context.Context, attempt int) (int, error) {
		return n.post(ctx, url, body, attempt)
	})

	if res.Verdict == retry.VerdictSuccess {
		n.log.Info("Notification delivered", "url", url, "attempts", res.Attempts)
		metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
		return true
	}

	n.log.Error("Failed to deliver notification", "url", url, "attempts", res.Attempts, "error", res.Err)
	metrics.NotificationsTotal.WithLabelValues("failed").Inc()
	return false
}

func (n *Notifier) post(ctx context.Context, url string, body []byte, attempt int) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		n.log.Warn("Evaluator rejected notification",
			"attempt", attempt+1,
			"status", resp.StatusCode,
			"body", string(text),
		)
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}
