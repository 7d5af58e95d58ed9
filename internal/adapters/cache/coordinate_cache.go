package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"trip-route-engine/internal/domain"
	"trip-route-engine/internal/platform/obs"
	"trip-route-engine/internal/ports"
)

// CoordinateCache caches geocoded coordinates for free-text locations.
//
// Resolve consults, in order: the in-memory map, the optional shared store,
// then the geocoder. Concurrent misses on the same text are not
// de-duplicated; both reach the geocoder and the last write wins.
// The cache is safe for concurrent use.
type CoordinateCache struct {
	m        *boundedTTL[domain.Coordinates]
	ttl      time.Duration
	now      func() time.Time
	geocoder ports.Geocoder
	store    ports.CoordinateStore
}

// NewCoordinateCache builds a cache in front of geocoder. store may be nil.
func NewCoordinateCache(
	capacity int,
	ttl time.Duration,
	geocoder ports.Geocoder,
	store ports.CoordinateStore,
	opts ...Option,
) *CoordinateCache {
	o := buildOptions(opts)
	return &CoordinateCache{
		m:        newBoundedTTL[domain.Coordinates]("coordinate", capacity, ttl, o),
		ttl:      ttl,
		now:      o.now,
		geocoder: geocoder,
		store:    store,
	}
}

// NormalizeLocation collapses whitespace and case so equivalent spellings
// share one cache entry.
func NormalizeLocation(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Get is a cache-only peek.
func (c *CoordinateCache) Get(text string) (domain.Coordinates, bool) {
	return c.m.get(NormalizeLocation(text))
}

// Put inserts or refreshes text's coordinate, evicting the oldest entry on overflow.
func (c *CoordinateCache) Put(text string, coord domain.Coordinates) {
	key := NormalizeLocation(text)
	if key == "" {
		return
	}
	c.m.put(key, coord)
}

func (c *CoordinateCache) Clear() { c.m.clear() }

func (c *CoordinateCache) Len() int { return c.m.len() }

// Resolve returns the coordinate for text, geocoding and caching it on a miss.
func (c *CoordinateCache) Resolve(ctx context.Context, text string) (_ domain.Coordinates, err error) {
	key := NormalizeLocation(text)
	if key == "" {
		return domain.Coordinates{}, fmt.Errorf("resolve location: %w: empty text", domain.ErrGeocodeNotFound)
	}

	if coord, ok := c.m.get(key); ok {
		return coord, nil
	}

	defer obs.Time(ctx, "coordinate.cache.Resolve")(&err)

	if c.store != nil {
		coord, cachedAt, ok, err := c.store.GetCoordinate(ctx, key)
		if err != nil {
			log.Printf("coordinate store read failed: key=%q err=%v", key, err)
		} else if ok && c.now().Sub(cachedAt) < c.ttl {
			c.m.put(key, coord)
			return coord, nil
		}
	}

	if c.geocoder == nil {
		return domain.Coordinates{}, fmt.Errorf("resolve location %q: %w: no geocoder configured", key, domain.ErrGeocodeNotFound)
	}

	coord, err := c.geocoder.Geocode(ctx, key)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("resolve location %q: %w", key, err)
	}
	if !coord.Valid() {
		return domain.Coordinates{}, fmt.Errorf("resolve location %q: %w: geocoder returned %+v", key, domain.ErrGeocodeNotFound, coord)
	}

	c.m.put(key, coord)

	if c.store != nil {
		if err := c.store.PutCoordinate(ctx, key, coord, c.now()); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("coordinate store write failed: key=%q err=%v", key, err)
		}
	}

	return coord, nil
}
