package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"trip-route-engine/internal/domain"
)

// SQLite backed shared tier for route and coordinate entries.
// Timestamps are stored as unix seconds so reads do not depend on the
// driver's time parsing.
type SqliteStore struct {
	DB *sql.DB
}

func NewSqliteStore(db *sql.DB) *SqliteStore {
	return &SqliteStore{DB: db}
}

func (s *SqliteStore) GetRoute(ctx context.Context, key string) (domain.DistanceResult, time.Time, bool, error) {
	if s.DB == nil {
		return domain.DistanceResult{}, time.Time{}, false, errors.New("route store: db is nil")
	}

	q := `
	SELECT
        distance_meters,
        duration_seconds,
        computed_at
    FROM route_cache
    WHERE route_key = ?;
	`

	var r domain.DistanceResult
	var computedAt int64
	err := s.DB.QueryRowContext(ctx, q, key).Scan(&r.DistanceMeters, &r.DurationSeconds, &computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DistanceResult{}, time.Time{}, false, nil
	}
	if err != nil {
		return domain.DistanceResult{}, time.Time{}, false, fmt.Errorf("get route store: query route_cache table: %w", err)
	}

	return r, time.Unix(computedAt, 0), true, nil
}

func (s *SqliteStore) PutRoute(ctx context.Context, key string, r domain.DistanceResult, computedAt time.Time) error {
	if s.DB == nil {
		return errors.New("route store: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("insert route store: empty route key")
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT OR REPLACE INTO route_cache (
        route_key,
        distance_meters,
        duration_seconds,
        computed_at
    )
    VALUES (?, ?, ?, ?);
	`, key, r.DistanceMeters, r.DurationSeconds, computedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert route store key=%q: %w", key, err)
	}

	return nil
}

func (s *SqliteStore) GetCoordinate(ctx context.Context, key string) (domain.Coordinates, time.Time, bool, error) {
	if s.DB == nil {
		return domain.Coordinates{}, time.Time{}, false, errors.New("coordinate store: db is nil")
	}

	q := `
	SELECT
        lon,
        lat,
        cached_at
    FROM coordinate_cache
    WHERE location = ?;
	`

	var c domain.Coordinates
	var cachedAt int64
	err := s.DB.QueryRowContext(ctx, q, key).Scan(&c.Lon, &c.Lat, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coordinates{}, time.Time{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, time.Time{}, false, fmt.Errorf("get coordinate store: query coordinate_cache table: %w", err)
	}

	return c, time.Unix(cachedAt, 0), true, nil
}

func (s *SqliteStore) PutCoordinate(ctx context.Context, key string, c domain.Coordinates, cachedAt time.Time) error {
	if s.DB == nil {
		return errors.New("coordinate store: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("insert coordinate store: empty location key")
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT OR REPLACE INTO coordinate_cache (
        location,
        lon,
        lat,
        cached_at
    )
    VALUES (?, ?, ?, ?);
	`, key, c.Lon, c.Lat, cachedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert coordinate store location=%q: %w", key, err)
	}

	return nil
}

func (s *SqliteStore) Clear(ctx context.Context) error {
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
