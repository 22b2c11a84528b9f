// Package retrytest provides helpers for exercising retry policies without
// real waits.
package retrytest

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper records requested waits and returns immediately.
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep implements retry.Sleeper.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Delays returns a copy of every recorded wait.
func (s *RecordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

// Seconds converts whole-second waits into durations, for expectations.
func Seconds(values ...int) []time.Duration {
	out := make([]time.Duration, len(values))
	for i, v := range values {
		out[i] = time.Duration(v) * time.Second
	}
	return out
}
