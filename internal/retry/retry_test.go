package retry

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/vietddude/tmdbproxy/internal/retry/retrytest"
)

func statusSequence(codes ...int) (Attempt, *int) {
	calls := 0
	return func(ctx context.Context, attempt int) (int, error) {
		code := codes[len(codes)-1]
		if calls < len(codes) {
			code = codes[calls]
		}
		calls++
		if code < 0 {
			return 0, errors.New("connection refused")
		}
		return code, nil
	}, &calls
}

func testPolicy(attempts int, classify Classifier) (*Policy, *retrytest.RecordingSleeper) {
	sleeper := &retrytest.RecordingSleeper{}
	cfg := DefaultConfig
	cfg.MaxAttempts = attempts
	return New("test", cfg, classify).WithSleeper(sleeper), sleeper
}

func TestConfig_Backoff(t *testing.T) {
	cfg := DefaultConfig
	want := retrytest.Seconds(1, 2, 4, 8, 16)
	for i, w := range want {
		if got := cfg.Backoff(i); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i, got, w)
		}
	}

	cfg.MaxDelay = 3 * time.Second
	if got := cfg.Backoff(4); got != 3*time.Second {
		t.Errorf("capped Backoff(4) = %v, want 3s", got)
	}
}

func TestPolicy_SuccessFirstAttempt(t *testing.T) {
	p, sleeper := testPolicy(6, OKOnly)
	fn, calls := statusSequence(http.StatusOK)

	res := p.Do(context.Background(), fn)
	if res.Verdict != VerdictSuccess {
		t.Fatalf("expected success, got %v", res.Verdict)
	}
	if *calls != 1 || res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got calls=%d attempts=%d", *calls, res.Attempts)
	}
	if len(sleeper.Delays()) != 0 {
		t.Errorf("expected no sleeps, got %v", sleeper.Delays())
	}
}

func TestPolicy_ExhaustsWithDoublingBackoff(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		want     []time.Duration
	}{
		{"three attempts", 3, retrytest.Seconds(1, 2)},
		{"five attempts", 5, retrytest.Seconds(1, 2, 4, 8)},
		{"six attempts", 6, retrytest.Seconds(1, 2, 4, 8, 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, sleeper := testPolicy(tt.attempts, OKOnly)
			fn, calls := statusSequence(http.StatusBadGateway, -1, http.StatusInternalServerError)

			res := p.Do(context.Background(), fn)
			if !res.Exhausted() {
				t.Fatalf("expected exhausted, got %v", res.Verdict)
			}
			if *calls != tt.attempts {
				t.Errorf("expected %d calls, got %d", tt.attempts, *calls)
			}
			if !reflect.DeepEqual(sleeper.Delays(), tt.want) {
				t.Errorf("delays = %v, want %v", sleeper.Delays(), tt.want)
			}
			if res.Err == nil {
				t.Error("expected last error on exhaustion")
			}
		})
	}
}

func TestPolicy_TerminalShortCircuits(t *testing.T) {
	p, sleeper := testPolicy(6, TerminalOn(http.StatusNotFound))
	fn, calls := statusSequence(http.StatusServiceUnavailable, http.StatusNotFound, http.StatusOK)

	res := p.Do(context.Background(), fn)
	if res.Verdict != VerdictTerminal {
		t.Fatalf("expected terminal, got %v", res.Verdict)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", res.StatusCode)
	}
	if *calls != 2 {
		t.Errorf("expected 2 calls, got %d", *calls)
	}
	if !reflect.DeepEqual(sleeper.Delays(), retrytest.Seconds(1)) {
		t.Errorf("delays = %v, want [1s]", sleeper.Delays())
	}
}

func TestPolicy_SuccessAfterFailures(t *testing.T) {
	p, sleeper := testPolicy(5, OKOnly)
	fn, calls := statusSequence(-1, http.StatusTooManyRequests, http.StatusOK)

	res := p.Do(context.Background(), fn)
	if res.Verdict != VerdictSuccess {
		t.Fatalf("expected success, got %v", res.Verdict)
	}
	if *calls != 3 {
		t.Errorf("expected 3 calls, got %d", *calls)
	}
	if !reflect.DeepEqual(sleeper.Delays(), retrytest.Seconds(1, 2)) {
		t.Errorf("delays = %v, want [1s 2s]", sleeper.Delays())
	}
}

func TestPolicy_AttemptTimeout(t *testing.T) {
	p, _ := testPolicy(2, OKOnly)
	p.Config.AttemptTimeout = 10 * time.Millisecond

	var deadlines int
	res := p.Do(context.Background(), func(ctx context.Context, attempt int) (int, error) {
		if _, ok := ctx.Deadline(); ok {
			deadlines++
		}
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !res.Exhausted() {
		t.Fatalf("expected exhausted, got %v", res.Verdict)
	}
	if deadlines != 2 {
		t.Errorf("expected a deadline on every attempt, got %d", deadlines)
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", res.Err)
	}
}

func TestPolicy_ContextCancelledStopsLoop(t *testing.T) {
	p := New("test", DefaultConfig, OKOnly)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	res := p.Do(ctx, func(ctx context.Context, attempt int) (int, error) {
		calls++
		cancel()
		return http.StatusBadGateway, nil
	})
	if !res.Exhausted() {
		t.Fatalf("expected exhausted, got %v", res.Verdict)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("expected context canceled, got %v", res.Err)
	}
}

func TestTerminalOn(t *testing.T) {
	classify := TerminalOn(http.StatusNotFound)
	tests := []struct {
		code   int
		expect Verdict
	}{
		{http.StatusOK, VerdictSuccess},
		{http.StatusNotFound, VerdictTerminal},
		{http.StatusCreated, VerdictRetry},
		{http.StatusUnauthorized, VerdictRetry},
		{http.StatusInternalServerError, VerdictRetry},
	}
	for _, tt := range tests {
		if got := classify(tt.code); got != tt.expect {
			t.Errorf("TerminalOn(404)(%d) = %v, want %v", tt.code, got, tt.expect)
		}
	}
}
