package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the engine.
	Registry = prometheus.NewRegistry()

	// CacheLookups counts in-memory cache reads by cache name and result (hit, miss, expired).
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_lookups_total", Help: "Cache lookups by cache and result."},
		[]string{"cache", "result"},
	)
	// CacheEvictions counts capacity evictions by cache name.
	CacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_evictions_total", Help: "Cache capacity evictions."},
		[]string{"cache"},
	)
	// ProviderCalls counts external distance/geocode calls by provider and outcome.
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "provider_calls_total", Help: "External provider calls by outcome."},
		[]string{"provider", "outcome"},
	)
	// OptimizeDuration records optimize() wall time in seconds, labelled by degraded state.
	OptimizeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "optimize_duration_seconds", Help: "Day optimization duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"degraded"},
	)

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers the collectors on Registry. Safe to call repeatedly.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(CacheEvictions)
		Registry.MustRegister(ProviderCalls)
		Registry.MustRegister(OptimizeDuration)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
