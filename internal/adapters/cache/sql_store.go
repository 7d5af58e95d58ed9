package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"trip-route-engine/internal/domain"
	"trip-route-engine/internal/platform/obs"
)

// SQLStore is a Postgres-backed shared tier for route and coordinate entries.
// It expects the schema created by repositories.InitSchema.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) GetRoute(
	ctx context.Context,
	key string,
) (_ domain.DistanceResult, _ time.Time, _ bool, err error) {
	defer obs.Time(ctx, "route.store.GetRoute")(&err)

	if s.DB == nil {
		return domain.DistanceResult{}, time.Time{}, false, errors.New("route store: db is nil")
	}

	q := `
	SELECT distance_meters, duration_seconds, computed_at
    FROM route_cache
    WHERE route_key = $1;
	`

	var r domain.DistanceResult
	var computedAt time.Time
	err = s.DB.QueryRowContext(ctx, q, key).Scan(&r.DistanceMeters, &r.DurationSeconds, &computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DistanceResult{}, time.Time{}, false, nil
	}
	if err != nil {
		return domain.DistanceResult{}, time.Time{}, false, fmt.Errorf("get route store: query route_cache table: %w", err)
	}

	return r, computedAt, true, nil
}

func (s *SQLStore) PutRoute(
	ctx context.Context,
	key string,
	r domain.DistanceResult,
	computedAt time.Time,
) error {
	if s.DB == nil {
		return errors.New("route store: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("insert route store: empty route key")
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO route_cache (route_key, distance_meters, duration_seconds, computed_at)
    VALUES ($1, $2, $3, $4)
	ON CONFLICT (route_key) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		computed_at = EXCLUDED.computed_at;
	`, key, r.DistanceMeters, r.DurationSeconds, computedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert route store key=%q: %w", key, err)
	}

	return nil
}

func (s *SQLStore) GetCoordinate(
	ctx context.Context,
	key string,
) (_ domain.Coordinates, _ time.Time, _ bool, err error) {
	defer obs.Time(ctx, "coordinate.store.GetCoordinate")(&err)

	if s.DB == nil {
		return domain.Coordinates{}, time.Time{}, false, errors.New("coordinate store: db is nil")
	}

	q := `
	SELECT lon, lat, cached_at
    FROM coordinate_cache
    WHERE location = $1;
	`

	var c domain.Coordinates
	var cachedAt time.Time
	err = s.DB.QueryRowContext(ctx, q, key).Scan(&c.Lon, &c.Lat, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coordinates{}, time.Time{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, time.Time{}, false, fmt.Errorf("get coordinate store: query coordinate_cache table: %w", err)
	}

	return c, cachedAt, true, nil
}

func (s *SQLStore) PutCoordinate(
	ctx context.Context,
	key string,
	c domain.Coordinates,
	cachedAt time.Time,
) error {
	if s.DB == nil {
		return errors.New("coordinate store: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("insert coordinate store: empty location key")
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO coordinate_cache (location, lon, lat, cached_at)
    VALUES ($1, $2, $3, $4)
	ON CONFLICT (location) DO UPDATE
	SET lon = EXCLUDED.lon,
		lat = EXCLUDED.lat,
		cached_at = EXCLUDED.cached_at;
	`, key, c.Lon, c.Lat, cachedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert coordinate store location=%q: %w", key, err)
	}

	return nil
}

// Clear empties both tables.
func (s *SQLStore) Clear(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("cache store: db is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear cache store: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"route_cache", "coordinate_cache"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear cache store: delete %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clear cache store commit: %w", err)
	}
	return nil
}
