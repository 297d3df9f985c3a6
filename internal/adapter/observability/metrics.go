package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	RemoteCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_calls_total",
			Help: "Total number of calls to remote scoring dependencies by outcome",
		},
		[]string{"dependency", "operation", "status"},
	)
	RemoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_call_duration_seconds",
			Help:    "Remote dependency call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"dependency", "operation"},
	)
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_fallbacks_total",
			Help: "Total number of fallback values used in place of a remote result",
		},
		[]string{"dependency", "reason"},
	)
	DependencyHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dependency_healthy",
			Help: "1 when the remote dependency is assumed reachable, 0 otherwise",
		},
		[]string{"dependency"},
	)
	ExtractionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_cache_requests_total",
			Help: "Extraction cache lookups by result",
		},
		[]string{"result"},
	)

	ScoringsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorings_total",
			Help: "Total number of scoring runs by blend mode",
		},
		[]string{"mode"},
	)
	MatchScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_score",
			Help:    "Distribution of final match scores ([0,100])",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
	ComponentScoreHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_component_score",
			Help:    "Distribution of component scores (normalized fraction [0,1])",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"component"},
	)

	JobsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"type"},
	)
	JobsProcessing = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobs_processing",
			Help: "Number of jobs currently processing",
		},
		[]string{"type"},
	)
	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Total number of jobs completed",
		},
		[]string{"type"},
	)
	JobsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Total number of jobs failed",
		},
		[]string{"type"},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			RemoteCallsTotal,
			RemoteCallDuration,
			FallbacksTotal,
			DependencyHealthy,
			ExtractionCacheTotal,
			ScoringsTotal,
			MatchScoreHistogram,
			ComponentScoreHistogram,
			JobsEnqueuedTotal,
			JobsProcessing,
			JobsCompletedTotal,
			JobsFailedTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveRemoteCall records one remote call outcome ("success", "error" or "timeout").
func ObserveRemoteCall(dependency, operation, status string, d time.Duration) {
	RemoteCallsTotal.WithLabelValues(dependency, operation, status).Inc()
	RemoteCallDuration.WithLabelValues(dependency, operation).Observe(d.Seconds())
}

// RecordFallback counts a fallback value used for dependency.
func RecordFallback(dependency, reason string) {
	FallbacksTotal.WithLabelValues(dependency, reason).Inc()
}

// SetDependencyHealth mirrors a health flag into a gauge.
func SetDependencyHealth(dependency string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	DependencyHealthy.WithLabelValues(dependency).Set(v)
}

// RecordCacheLookup counts an extraction cache result ("hit", "miss" or "error").
func RecordCacheLookup(result string) {
	ExtractionCacheTotal.WithLabelValues(result).Inc()
}

// ObserveScoring records the outcome of one scoring run. mode is "blended",
// "local" or "safe_default"; components maps component name to its [0,1] score.
func ObserveScoring(mode string, score float64, components map[string]float64) {
	ScoringsTotal.WithLabelValues(mode).Inc()
	if score >= 0 && score <= 100 {
		MatchScoreHistogram.Observe(score)
	}
	for name, v := range components {
		if v >= 0 && v <= 1 {
			ComponentScoreHistogram.WithLabelValues(name).Observe(v)
		}
	}
}

func EnqueueJob(jobType string) {
	JobsEnqueuedTotal.WithLabelValues(jobType).Inc()
}

func StartProcessingJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Inc()
}

func CompleteJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Dec()
	JobsCompletedTotal.WithLabelValues(jobType).Inc()
}

func FailJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Dec()
	JobsFailedTotal.WithLabelValues(jobType).Inc()
}
