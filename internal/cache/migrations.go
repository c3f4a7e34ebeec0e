package cache

import (
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version     int
	description string
	up          string
}

// migrations are applied in order; never edit a released one.
var migrations = []migration{
	{
		version:     1,
		description: "parsed item cache",
		up: `
			CREATE TABLE IF NOT EXISTS parsed_items (
				parser     TEXT NOT NULL,
				source     TEXT NOT NULL,
				payload    BLOB NOT NULL,
				item_count INTEGER NOT NULL DEFAULT 0,
				cached_at  INTEGER NOT NULL,
				PRIMARY KEY (parser, source)
			)`,
	},
	{
		version:     2,
		description: "index cached_at for pruning",
		up:          `CREATE INDEX IF NOT EXISTS idx_parsed_items_cached_at ON parsed_items(cached_at)`,
	},
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}

	current, err := schemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(db, m); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}
	}
	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version, err
}

func apply(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(m.up); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)",
		m.version, m.description, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
