package ports

import (
	"context"
	"time"
	"trip-route-engine/internal/domain"
)

// RouteCache is the in-process distance cache for directional coordinate pairs.
// TTL is the entry lifetime fixed at construction; shared-tier entries older
// than it are treated as stale too.
type RouteCache interface {
	Get(from, to domain.Coordinates) (domain.DistanceResult, bool)
	Put(from, to domain.Coordinates, result domain.DistanceResult)
	Clear()
	Len() int
	TTL() time.Duration
}

// RouteStore is an optional shared or persistent tier behind RouteCache.
// A miss is reported as ok == false with a nil error.
type RouteStore interface {
	GetRoute(ctx context.Context, key string) (result domain.DistanceResult, computedAt time.Time, ok bool, err error)
	PutRoute(ctx context.Context, key string, result domain.DistanceResult, computedAt time.Time) error
}

// CoordinateStore is an optional shared or persistent tier behind the
// coordinate cache. Keys are already normalized.
type CoordinateStore interface {
	GetCoordinate(ctx context.Context, key string) (coord domain.Coordinates, cachedAt time.Time, ok bool, err error)
	PutCoordinate(ctx context.Context, key string, coord domain.Coordinates, cachedAt time.Time) error
}

// CacheStore bundles both tiers; every concrete store implements it.
type CacheStore interface {
	RouteStore
	CoordinateStore
	Clear(ctx context.Context) error
}
