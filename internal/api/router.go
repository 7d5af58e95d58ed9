package api

import (
	"net/http"
	"trip-route-engine/internal/api/handlers"
	"trip-route-engine/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps holds the configured endpoint handlers.
type Deps struct {
	Optimize *handlers.OptimizeHandler
	Caches   *handlers.CacheHandler
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	health := &handlers.HealthHandler{Routes: deps.Caches.Routes, Coordinates: deps.Caches.Coordinates}

	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/v1/optimize", deps.Optimize.Optimize)
	mux.HandleFunc("/v1/caches", deps.Caches.Clear)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return requestIDMiddleware(loggingMiddleware(mux))
}
