package services

import (
	"context"
	"sync/atomic"
	"time"
	"trip-route-engine/internal/adapters/cache"
	"trip-route-engine/internal/domain"
	"trip-route-engine/internal/ports"
)

func pt(x, y float64) *domain.Coordinates {
	return &domain.Coordinates{Lat: x, Lon: y}
}

func at(hour, minute int) *time.Time {
	t := time.Date(2026, 6, 1, hour, minute, 0, 0, time.UTC)
	return &t
}

func freeStop(id string, c *domain.Coordinates) domain.Stop {
	return domain.Stop{ID: id, Name: id, Coordinates: c, Category: domain.CategoryAttraction}
}

func anchorStop(id string, c *domain.Coordinates, fixed *time.Time) domain.Stop {
	s := freeStop(id, c)
	s.FixedTime = fixed
	return s
}

func dayOf(stops ...domain.Stop) *domain.Day {
	for i := range stops {
		stops[i].Order = i
	}
	return &domain.Day{Date: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), Stops: stops}
}

func testConfig() domain.OptimizationConfig {
	cfg := domain.DefaultOptimizationConfig()
	cfg.ProviderTimeoutSeconds = 1
	cfg.RetryBackoffMillis = 1
	return cfg
}

func newTestOptimizer(provider ports.DistanceProvider, opts ...OptimizerOption) (*RouteOptimizer, *cache.RouteCache) {
	cfg := testConfig()
	routes := cache.NewRouteCache(cfg.RouteCacheCapacity, cfg.RouteCacheTTL())
	return NewRouteOptimizer(NewRouteLookup(routes, nil, provider), opts...), routes
}

func ids(stops []domain.Stop) []string {
	out := make([]string, 0, len(stops))
	for _, s := range stops {
		out = append(out, s.ID)
	}
	return out
}

// blockingProvider never answers; every call ends with its context.
type blockingProvider struct {
	calls atomic.Int64
}

func (p *blockingProvider) GetDistance(ctx context.Context, from, to domain.Coordinates) (domain.DistanceResult, error) {
	p.calls.Add(1)
	<-ctx.Done()
	return domain.DistanceResult{}, ctx.Err()
}

// permutations returns every ordering of stops.
func permutations(stops []domain.Stop) [][]domain.Stop {
	if len(stops) <= 1 {
		return [][]domain.Stop{append([]domain.Stop(nil), stops...)}
	}

	var out [][]domain.Stop
	for i := range stops {
		rest := make([]domain.Stop, 0, len(stops)-1)
		rest = append(rest, stops[:i]...)
		rest = append(rest, stops[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]domain.Stop{stops[i]}, p...))
		}
	}
	return out
}
