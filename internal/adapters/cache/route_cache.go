package cache

import (
	"time"
	"trip-route-engine/internal/domain"
)

// RouteCache is an in-memory cache of travel distance/duration for
// directional coordinate pairs.
//
// Keys are ordered pairs (see domain.RouteKey): A->B and B->A are cached
// independently because the routing backend may be asymmetric.
// The cache is safe for concurrent use.
type RouteCache struct {
	m *boundedTTL[domain.DistanceResult]
}

func NewRouteCache(capacity int, ttl time.Duration, opts ...Option) *RouteCache {
	return &RouteCache{m: newBoundedTTL[domain.DistanceResult]("route", capacity, ttl, buildOptions(opts))}
}

// Get returns the cached result, or false when missing or expired.
func (c *RouteCache) Get(from, to domain.Coordinates) (domain.DistanceResult, bool) {
	return c.m.get(domain.RouteKey(from, to))
}

// Put inserts or refreshes a result, evicting the oldest entry on overflow.
func (c *RouteCache) Put(from, to domain.Coordinates, result domain.DistanceResult) {
	c.m.put(domain.RouteKey(from, to), result)
}

// Contains reports whether a key is stored, ignoring expiry. It does not
// touch hit/miss metrics.
func (c *RouteCache) Contains(from, to domain.Coordinates) bool {
	return c.m.has(domain.RouteKey(from, to))
}

func (c *RouteCache) Clear() { c.m.clear() }

func (c *RouteCache) Len() int { return c.m.len() }

func (c *RouteCache) TTL() time.Duration { return c.m.ttl }
