// Package cache keeps recent parser output in SQLite so repeated parses of
// the same source within a parser's cache duration skip the network.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

// Store is a parsed-item cache keyed by parser name and source.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate cache schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns cached items for (parser, source) no older than maxAge. A
// maxAge of zero disables the lookup.
func (s *Store) Get(ctx context.Context, parser, source string, maxAge time.Duration) ([]*contracts.ParsedItem, bool, error) {
	if maxAge <= 0 {
		return nil, false, nil
	}

	var payload []byte
	var cachedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, cached_at FROM parsed_items WHERE parser = ? AND source = ?",
		parser, source,
	).Scan(&payload, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	if s.now().Sub(time.Unix(0, cachedAt)) > maxAge {
		return nil, false, nil
	}

	var items []*contracts.ParsedItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached items: %w", err)
	}
	return items, true, nil
}

// Put replaces the cached items for (parser, source).
func (s *Store) Put(ctx context.Context, parser, source string, items []*contracts.ParsedItem) error {
	if items == nil {
		items = []*contracts.ParsedItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO parsed_items (parser, source, payload, item_count, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(parser, source) DO UPDATE SET
			payload = excluded.payload,
			item_count = excluded.item_count,
			cached_at = excluded.cached_at
	`, parser, source, payload, len(items), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Prune deletes entries older than olderThan and returns how many went.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UnixNano()
	res, err := s.db.ExecContext(ctx, "DELETE FROM parsed_items WHERE cached_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of cached (parser, source) pairs.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM parsed_items").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
