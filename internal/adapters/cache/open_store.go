package cache

import (
	"context"
	"fmt"
	"io"
	"log"
	"trip-route-engine/internal/adapters/repositories"
	"trip-route-engine/internal/domain"
	"trip-route-engine/internal/platform/db"
	"trip-route-engine/internal/ports"
)

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// OpenStore selects the shared cache tier: Redis when redisURL is set,
// otherwise Postgres or SQLite from databaseURL (schema created on open).
// With neither set it returns a nil store and only in-memory caches are used.
func OpenStore(ctx context.Context, redisURL, databaseURL string, cfg domain.OptimizationConfig) (ports.CacheStore, io.Closer, error) {
	switch {
	case redisURL != "":
		rdb, err := NewRedisClient(redisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache store: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("open cache store: ping redis: %w", err)
		}
		log.Printf("cache store: redis")
		return NewRedisStore(rdb, cfg.RouteCacheTTL(), cfg.CoordinateCacheTTL()), rdb, nil

	case databaseURL != "":
		conn, err := db.Open(databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache store: %w", err)
		}

		driver := db.DriverFor(databaseURL)
		if err := repositories.InitSchema(conn, driver); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open cache store: %w", err)
		}

		log.Printf("cache store: driver=%s", driver)
		if driver == db.DriverPostgres {
			return NewSQLStore(conn), conn, nil
		}
		return NewSqliteStore(conn), conn, nil
	}

	log.Printf("cache store: none (in-memory only)")
	return nil, noopCloser{}, nil
}
