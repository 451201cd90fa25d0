package shared

import (
	"database/sql"
	"testing"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var found string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&found)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	return true
}

func TestMigrations(t *testing.T) {
	t.Run("RunMigrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 1, 1)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		for _, table := range []string{"spotify_tokens", "playlist_snapshots", "schema_migrations"} {
			if !tableExists(t, db, table) {
				t.Errorf("expected table %s to exist", table)
			}
		}

		t.Run("Idempotent", func(t *testing.T) {
			if err := RunMigrations(db); err != nil {
				t.Errorf("re-running migrations should succeed: %v", err)
			}
		})
	})

	t.Run("RollbackMigration", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 1, 1)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		if tableExists(t, db, "spotify_tokens") {
			t.Error("expected spotify_tokens to be dropped after rollback")
		}
		if tableExists(t, db, "playlist_snapshots") {
			t.Error("expected playlist_snapshots to be dropped after rollback")
		}

		t.Run("Nothing To Rollback", func(t *testing.T) {
			if err := RollbackMigration(db); err == nil {
				t.Error("expected error when no migrations are applied")
			}
		})
	})
}
