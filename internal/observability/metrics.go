package observability

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Dependency names a remote collaborator of the scoring service.
type Dependency string

// Dependencies observed by the service.
const (
	DependencyNLP   Dependency = "nlp"
	DependencyML    Dependency = "ml"
	DependencyQueue Dependency = "queue"
)

// Call statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// ConnectionMetrics keeps in-process call statistics for one dependency.
// They back the /v1/dependencies report; Prometheus gets the same samples.
type ConnectionMetrics struct {
	mu sync.RWMutex

	Dependency Dependency
	Endpoint   string

	TotalRequests   int64
	SuccessRequests int64
	FailureRequests int64
	TimeoutRequests int64

	TotalLatency time.Duration
	MinLatency   time.Duration
	MaxLatency   time.Duration
	AvgLatency   time.Duration

	ErrorCounts map[string]int64

	FirstRequest time.Time
	LastRequest  time.Time
	LastSuccess  time.Time
	LastFailure  time.Time
}

// NewConnectionMetrics creates new connection metrics
func NewConnectionMetrics(dep Dependency, endpoint string) *ConnectionMetrics {
	return &ConnectionMetrics{
		Dependency:  dep,
		Endpoint:    endpoint,
		ErrorCounts: make(map[string]int64),
	}
}

// RecordRequest records a request start
func (cm *ConnectionMetrics) RecordRequest() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	now := time.Now()
	cm.TotalRequests++
	if cm.FirstRequest.IsZero() {
		cm.FirstRequest = now
	}
	cm.LastRequest = now
}

// RecordSuccess records a successful operation
func (cm *ConnectionMetrics) RecordSuccess(duration time.Duration) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.SuccessRequests++
	cm.LastSuccess = time.Now()

	cm.TotalLatency += duration
	if cm.MinLatency == 0 || duration < cm.MinLatency {
		cm.MinLatency = duration
	}
	if duration > cm.MaxLatency {
		cm.MaxLatency = duration
	}
	cm.AvgLatency = cm.TotalLatency / time.Duration(cm.SuccessRequests)
}

// RecordFailure records a failed operation under a coarse error kind.
func (cm *ConnectionMetrics) RecordFailure(kind string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.FailureRequests++
	cm.LastFailure = time.Now()
	if kind == "" {
		kind = "unknown"
	}
	cm.ErrorCounts[kind]++
}

// RecordTimeout records a timeout
func (cm *ConnectionMetrics) RecordTimeout() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.TimeoutRequests++
	cm.LastFailure = time.Now()
	cm.ErrorCounts[StatusTimeout]++
}

// GetStats returns current metrics
func (cm *ConnectionMetrics) GetStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	successRate := float64(0)
	if cm.TotalRequests > 0 {
		successRate = float64(cm.SuccessRequests) / float64(cm.TotalRequests) * 100
	}
	errs := make(map[string]int64, len(cm.ErrorCounts))
	for k, v := range cm.ErrorCounts {
		errs[k] = v
	}

	return map[string]interface{}{
		"dependency":       string(cm.Dependency),
		"endpoint":         cm.Endpoint,
		"total_requests":   cm.TotalRequests,
		"success_requests": cm.SuccessRequests,
		"failure_requests": cm.FailureRequests,
		"timeout_requests": cm.TimeoutRequests,
		"success_rate":     fmt.Sprintf("%.2f%%", successRate),
		"avg_latency":      cm.AvgLatency.String(),
		"min_latency":      cm.MinLatency.String(),
		"max_latency":      cm.MaxLatency.String(),
		"error_counts":     errs,
		"last_success":     formatTime(cm.LastSuccess),
		"last_failure":     formatTime(cm.LastFailure),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Reset resets all metrics
func (cm *ConnectionMetrics) Reset() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.TotalRequests = 0
	cm.SuccessRequests = 0
	cm.FailureRequests = 0
	cm.TimeoutRequests = 0
	cm.TotalLatency = 0
	cm.MinLatency = 0
	cm.MaxLatency = 0
	cm.AvgLatency = 0
	cm.ErrorCounts = make(map[string]int64)
	cm.FirstRequest = time.Time{}
	cm.LastRequest = time.Time{}
	cm.LastSuccess = time.Time{}
	cm.LastFailure = time.Time{}

	slog.Info("connection metrics reset",
		slog.String("dependency", string(cm.Dependency)),
		slog.String("endpoint", cm.Endpoint))
}
