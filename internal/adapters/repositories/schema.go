package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"trip-route-engine/internal/platform/db"
)

// Initialize the cache-tier schema for the given database/sql driver
// (db.DriverPostgres or db.DriverSQLite).
func InitSchema(conn *sql.DB, driver string) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	var statements []string
	switch driver {
	case db.DriverPostgres:
		statements = []string{
			`
	CREATE TABLE IF NOT EXISTS route_cache (
        route_key TEXT PRIMARY KEY,
        distance_meters DOUBLE PRECISION NOT NULL,
        duration_seconds DOUBLE PRECISION NOT NULL,
        computed_at TIMESTAMPTZ NOT NULL
    );
	`,
			`
	CREATE TABLE IF NOT EXISTS coordinate_cache (
        location TEXT PRIMARY KEY,
        lon DOUBLE PRECISION NOT NULL,
        lat DOUBLE PRECISION NOT NULL,
        cached_at TIMESTAMPTZ NOT NULL
    );
	`,
			`
	CREATE INDEX IF NOT EXISTS idx_route_cache_computed_at
    ON route_cache(computed_at);
	`,
		}
	case db.DriverSQLite:
		statements = []string{
			`
	CREATE TABLE IF NOT EXISTS route_cache (
        route_key TEXT PRIMARY KEY,
        distance_meters REAL NOT NULL,
        duration_seconds REAL NOT NULL,
        computed_at INTEGER NOT NULL
    );
	`,
			`
	CREATE TABLE IF NOT EXISTS coordinate_cache (
        location TEXT PRIMARY KEY,
        lon REAL NOT NULL,
        lat REAL NOT NULL,
        cached_at INTEGER NOT NULL
    );
	`,
			`
	CREATE INDEX IF NOT EXISTS idx_route_cache_computed_at
    ON route_cache(computed_at);
	`,
		}
	default:
		return fmt.Errorf("init schema: unsupported driver %q", driver)
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
