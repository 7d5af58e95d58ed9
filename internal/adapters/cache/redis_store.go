package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"trip-route-engine/internal/domain"

	redis "github.com/redis/go-redis/v9"
)

const (
	redisRoutePrefix      = "tre:route:"
	redisCoordinatePrefix = "tre:coord:"
)

type redisRouteValue struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	ComputedAt      int64   `json:"computed_at"`
}

type redisCoordinateValue struct {
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
	CachedAt int64   `json:"cached_at"`
}

// RedisStore shares route and coordinate entries between processes.
// Entries carry a Redis expiry equal to the cache TTL, so stale keys are
// dropped server-side.
type RedisStore struct {
	rdb           *redis.Client
	routeTTL      time.Duration
	coordinateTTL time.Duration
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

func NewRedisStore(rdb *redis.Client, routeTTL, coordinateTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, routeTTL: routeTTL, coordinateTTL: coordinateTTL}
}

func (s *RedisStore) GetRoute(ctx context.Context, key string) (domain.DistanceResult, time.Time, bool, error) {
	data, err := s.rdb.Get(ctx, redisRoutePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.DistanceResult{}, time.Time{}, false, nil
	}
	if err != nil {
		return domain.DistanceResult{}, time.Time{}, false, fmt.Errorf("get route store key=%q: %w", key, err)
	}

	var v redisRouteValue
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.DistanceResult{}, time.Time{}, false, fmt.Errorf("decode route store key=%q: %w", key, err)
	}

	return domain.DistanceResult{DistanceMeters: v.DistanceMeters, DurationSeconds: v.DurationSeconds},
		time.Unix(v.ComputedAt, 0), true, nil
}

func (s *RedisStore) PutRoute(ctx context.Context, key string, r domain.DistanceResult, computedAt time.Time) error {
	data, err := json.Marshal(redisRouteValue{
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		ComputedAt:      computedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode route store key=%q: %w", key, err)
	}

	if err := s.rdb.Set(ctx, redisRoutePrefix+key, data, s.routeTTL).Err(); err != nil {
		return fmt.Errorf("insert route store key=%q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) GetCoordinate(ctx context.Context, key string) (domain.Coordinates, time.Time, bool, error) {
	data, err := s.rdb.Get(ctx, redisCoordinatePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Coordinates{}, time.Time{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, time.Time{}, false, fmt.Errorf("get coordinate store key=%q: %w", key, err)
	}

	var v redisCoordinateValue
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.Coordinates{}, time.Time{}, false, fmt.Errorf("decode coordinate store key=%q: %w", key, err)
	}

	return domain.Coordinates{Lon: v.Lon, Lat: v.Lat}, time.Unix(v.CachedAt, 0), true, nil
}

func (s *RedisStore) PutCoordinate(ctx context.Context, key string, c domain.Coordinates, cachedAt time.Time) error {
	data, err := json.Marshal(redisCoordinateValue{Lon: c.Lon, Lat: c.Lat, CachedAt: cachedAt.Unix()})
	if err != nil {
		return fmt.Errorf("encode coordinate store key=%q: %w", key, err)
	}

	if err := s.rdb.Set(ctx, redisCoordinatePrefix+key, data, s.coordinateTTL).Err(); err != nil {
		return fmt.Errorf("insert coordinate store key=%q: %w", key, err)
	}
	return nil
}

// Clear deletes every key this store owns.
func (s *RedisStore) Clear(ctx context.Context) error {
	for _, prefix := range []string{redisRoutePrefix, redisCoordinatePrefix} {
		iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("clear cache store: del %q: %w", iter.Val(), err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("clear cache store: scan %q: %w", prefix, err)
		}
	}
	return nil
}
