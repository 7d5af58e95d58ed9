package repositories

import (
	"path/filepath"
	"testing"
	"trip-route-engine/internal/platform/db"
)

func TestInitSchemaSQLite(t *testing.T) {
	conn, err := db.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		if err := InitSchema(conn, db.DriverSQLite); err != nil {
			t.Fatalf("init schema run %d: %v", i+1, err)
		}
	}

	for _, table := range []string{"route_cache", "coordinate_cache"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestInitSchemaErrors(t *testing.T) {
	if err := InitSchema(nil, db.DriverSQLite); err == nil {
		t.Fatalf("expected error for nil db")
	}

	conn, err := db.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if err := InitSchema(conn, "mysql"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
