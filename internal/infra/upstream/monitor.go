package upstream

import (
	"net/http"
	"sync"
	"time"
)

// Status represents the observed health of the upstream API.
type Status string

const (
	StatusHealthy   Status = "healthy"   // Upstream is answering normally
	StatusDegraded  Status = "degraded"  // Upstream is slow or failing often
	StatusThrottled Status = "throttled" // Upstream is rate limiting the key
)

// MonitorStats holds monitoring statistics for the upstream.
type MonitorStats struct {
	Status           Status        `json:"status"`
	AverageLatency   time.Duration `json:"average_latency_ns"`
	Successes        int           `json:"successes"`
	Failures         int           `json:"failures"`
	ErrorRate        float64       `json:"error_rate"`
	ThrottleCount429 int           `json:"throttle_count_429"`
	LastStatusCode   int           `json:"last_status_code"`
	LastSuccessAt    time.Time     `json:"last_success_at"`
	LastFailureAt    time.Time     `json:"last_failure_at"`
}

// Monitor tracks upstream latency and failures. It only feeds health
// reporting and never changes how calls are retried.
type Monitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	successCount     int
	failureCount     int
	status429Count   int
	lastThrottleTime time.Time
	lastStatusCode   int
	lastSuccessAt    time.Time
	lastFailureAt    time.Time

	slowResponseThreshold time.Duration
	degradedThreshold     float64
	throttleWindow        time.Duration
}

// NewMonitor creates a new monitor with default settings.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:       make([]time.Duration, 0, 100),
		maxLatencyWindow:      100,
		slowResponseThreshold: 3 * time.Second,
		degradedThreshold:     0.3, // 30% error rate
		throttleWindow:        time.Minute,
	}
}

// RecordSuccess records a 200 response with its latency.
func (m *Monitor) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successCount++
	m.lastStatusCode = http.StatusOK
	m.lastSuccessAt = time.Now()

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}
}

// RecordFailure records a failed attempt. statusCode is 0 for transport errors.
func (m *Monitor) RecordFailure(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failureCount++
	m.lastFailureAt = time.Now()
	if statusCode != 0 {
		m.lastStatusCode = statusCode
	}
	if statusCode == http.StatusTooManyRequests {
		m.status429Count++
		m.lastThrottleTime = m.lastFailureAt
	}
}

// Stats returns current monitoring statistics.
func (m *Monitor) Stats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := MonitorStats{
		AverageLatency:   m.averageLatency(),
		Successes:        m.successCount,
		Failures:         m.failureCount,
		ThrottleCount429: m.status429Count,
		LastStatusCode:   m.lastStatusCode,
		LastSuccessAt:    m.lastSuccessAt,
		LastFailureAt:    m.lastFailureAt,
	}
	if total := m.successCount + m.failureCount; total > 0 {
		stats.ErrorRate = float64(m.failureCount) / float64(total)
	}
	stats.Status = m.status(stats)
	return stats
}

func (m *Monitor) status(stats MonitorStats) Status {
	if m.status429Count > 0 && time.Since(m.lastThrottleTime) < m.throttleWindow {
		return StatusThrottled
	}
	if stats.ErrorRate > m.degradedThreshold {
		return StatusDegraded
	}
	if len(m.recentLatencies) > 10 && stats.AverageLatency > m.slowResponseThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

func (m *Monitor) averageLatency() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}
