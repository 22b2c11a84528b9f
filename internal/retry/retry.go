// Package retry implements the attempt/backoff/give-up loop shared by
// upstream calls and outbound notifications.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/vietddude/tmdbproxy/internal/metrics"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts     int
	AttemptTimeout  time.Duration
	InitialDelay    time.Duration
	MaxDelay        time.Duration // 0 = uncapped
	BackoffMultiple float64
}

// DefaultConfig mirrors the notifier's budget: 5 attempts, 30s each, 1s base.
var DefaultConfig = Config{
	MaxAttempts:     5,
	AttemptTimeout:  30 * time.Second,
	InitialDelay:    1 * time.Second,
	BackoffMultiple: 2.0,
}

// Backoff returns the wait after the given zero-based attempt.
func (c Config) Backoff(attempt int) time.Duration {
	multiple := c.BackoffMultiple
	if multiple <= 0 {
		multiple = 2.0
	}
	delay := float64(c.InitialDelay) * math.Pow(multiple, float64(attempt))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	return time.Duration(delay)
}

// Verdict classifies a single attempt.
type Verdict int

const (
	VerdictSuccess Verdict = iota
	VerdictRetry
	VerdictTerminal
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictRetry:
		return "retry"
	case VerdictTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Classifier maps a received HTTP status code to a Verdict.
// Transport errors never reach a Classifier; they are always retried.
type Classifier func(statusCode int) Verdict

// OKOnly treats 200 as success and every other status as retryable.
func OKOnly(statusCode int) Verdict {
	if statusCode == http.StatusOK {
		return VerdictSuccess
	}
	return VerdictRetry
}

// TerminalOn treats 200 as success, the given codes as terminal and
// everything else as retryable.
func TerminalOn(codes ...int) Classifier {
	return func(statusCode int) Verdict {
		if statusCode == http.StatusOK {
			return VerdictSuccess
		}
		for _, c := range codes {
			if statusCode == c {
				return VerdictTerminal
			}
		}
		return VerdictRetry
	}
}

// Sleeper waits between attempts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper waits on a timer and gives up early when ctx is done.
type TimerSleeper struct{}

// Sleep implements Sleeper.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Attempt performs one try and returns the HTTP status it received.
// A non-nil error means no usable response arrived.
type Attempt func(ctx context.Context, attempt int) (statusCode int, err error)

// Result describes how a policy run ended.
type Result struct {
	Verdict    Verdict
	StatusCode int
	Attempts   int
	Err        error
}

// Exhausted reports whether every attempt failed retryably.
func (r Result) Exhausted() bool {
	return r.Verdict == VerdictRetry
}

// ErrStatus is recorded as the last error when a retryable status was received.
var ErrStatus = errors.New("unexpected status")

// Policy runs an Attempt up to Config.MaxAttempts times.
type Policy struct {
	Name     string
	Config   Config
	Classify Classifier
	Sleeper  Sleeper
	Logger   *slog.Logger
}

// New creates a Policy with the default sleeper and logger.
func New(name string, cfg Config, classify Classifier) *Policy {
	return &Policy{
		Name:     name,
		Config:   cfg,
		Classify: classify,
		Sleeper:  TimerSleeper{},
		Logger:   slog.Default().With("policy", name),
	}
}

// WithSleeper returns a copy of p that waits with s.
func (p *Policy) WithSleeper(s Sleeper) *Policy {
	cp := *p
	cp.Sleeper = s
	return &cp
}

// WithConfig returns a copy of p using cfg.
func (p *Policy) WithConfig(cfg Config) *Policy {
	cp := *p
	cp.Config = cfg
	return &cp
}

// Do executes fn with exponential backoff between attempts. It stops on the
// first success or terminal verdict. Each attempt gets its own deadline of
// Config.AttemptTimeout; there is no deadline across attempts beyond ctx.
func (p *Policy) Do(ctx context.Context, fn Attempt) Result {
	maxAttempts := p.Config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	classify := p.Classify
	if classify == nil {
		classify = OKOnly
	}
	sleeper := p.Sleeper
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	log := p.Logger
	if log == nil {
		log = slog.Default().With("policy", p.Name)
	}

	var (
		lastErr    error
		lastStatus int
		attempts   int
	)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		attempts++
		statusCode, err := p.runAttempt(ctx, fn, attempt)

		verdict := VerdictRetry
		if err == nil {
			verdict = classify(statusCode)
			lastStatus = statusCode
		}
		metrics.AttemptsTotal.WithLabelValues(p.Name, verdict.String()).Inc()

		switch verdict {
		case VerdictSuccess:
			log.Debug("Attempt succeeded", "attempt", attempt+1, "status", statusCode)
			return Result{Verdict: VerdictSuccess, StatusCode: statusCode, Attempts: attempts}
		case VerdictTerminal:
			log.Info("Attempt returned terminal status", "attempt", attempt+1, "status", statusCode)
			return Result{Verdict: VerdictTerminal, StatusCode: statusCode, Attempts: attempts}
		}

		if err != nil {
			lastErr = err
			log.Warn("Attempt failed", "attempt", attempt+1, "max_attempts", maxAttempts, "error", err)
		} else {
			lastErr = fmt.Errorf("%w: %s", ErrStatus, strconv.Itoa(statusCode))
			log.Warn("Attempt failed", "attempt", attempt+1, "max_attempts", maxAttempts, "status", statusCode)
		}

		if attempt == maxAttempts-1 {
			break
		}

		delay := p.Config.Backoff(attempt)
		metrics.BackoffSeconds.WithLabelValues(p.Name).Observe(delay.Seconds())
		log.Debug("Retrying after backoff", "delay", delay, "next_attempt", attempt+2)
		if err := sleeper.Sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	metrics.ExhaustedTotal.WithLabelValues(p.Name).Inc()
	return Result{
		Verdict:    VerdictRetry,
		StatusCode: lastStatus,
		Attempts:   attempts,
		Err:        fmt.Errorf("failed after %d attempts: %w", attempts, lastErr),
	}
}

func (p *Policy) runAttempt(ctx context.Context, fn Attempt, attempt int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p.Config.AttemptTimeout <= 0 {
		return fn(ctx, attempt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.Config.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx, attempt)
}
