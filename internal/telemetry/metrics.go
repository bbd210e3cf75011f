package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsCreated          = prometheus.NewCounter(prometheus.CounterOpts{Name: "insight_jobs_created_total", Help: "Analytics jobs created"})
	JobsCompleted        = prometheus.NewCounter(prometheus.CounterOpts{Name: "insight_jobs_completed_total", Help: "Analytics jobs completed successfully"})
	JobsFailed           = prometheus.NewCounter(prometheus.CounterOpts{Name: "insight_jobs_failed_total", Help: "Analytics jobs that exhausted retries"})
	JobRetries           = prometheus.NewCounter(prometheus.CounterOpts{Name: "insight_job_retries_total", Help: "Job handler retries"})
	FallbackFetches      = prometheus.NewCounter(prometheus.CounterOpts{Name: "insight_fallback_fetches_total", Help: "Stuck-job direct fetches"})
	AnalyticsCacheHits   = prometheus.NewCounter(prometheus.CounterOpts{Name: "analytics_cache_hits_total", Help: "Analytics cache hits"})
	AnalyticsCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "analytics_cache_misses_total", Help: "Analytics cache misses"})
	JobsInFlight         = prometheus.NewGauge(prometheus.GaugeOpts{Name: "insight_jobs_inflight", Help: "Jobs currently processing"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsCreated,
			JobsCompleted,
			JobsFailed,
			JobRetries,
			FallbackFetches,
			AnalyticsCacheHits,
			AnalyticsCacheMisses,
			JobsInFlight,
		)
	})
	return promhttp.Handler()
}
