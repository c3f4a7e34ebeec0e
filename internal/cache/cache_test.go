package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "items.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleItems() []*contracts.ParsedItem {
	a := contracts.NewParsedItem("https://example.com/feed", "rss_item").Set("title", "first")
	b := contracts.NewParsedItem("https://example.com/feed", "rss_item").Set("title", "second")
	return []*contracts.ParsedItem{a, b}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	items := sampleItems()

	require.NoError(t, s.Put(ctx, "rss_parser", "https://example.com/feed", items))

	got, ok, err := s.Get(ctx, "rss_parser", "https://example.com/feed", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, items[0].ID, got[0].ID)
	assert.Equal(t, "second", got[1].Text("title"))
	assert.True(t, items[0].ParsedAt.Equal(got[0].ParsedAt))

	_, ok, err = s.Get(ctx, "web_parser", "https://example.com/feed", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetHonorsMaxAge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }
	require.NoError(t, s.Put(ctx, "p", "src", sampleItems()))

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok, err := s.Get(ctx, "p", "src", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Get(ctx, "p", "src", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = s.Get(ctx, "p", "src", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutReplacesAndPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }
	require.NoError(t, s.Put(ctx, "p", "old", sampleItems()))
	require.NoError(t, s.Put(ctx, "p", "old", nil))

	got, ok, err := s.Get(ctx, "p", "old", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, got)

	s.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, s.Put(ctx, "p", "new", sampleItems()))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pruned, err := s.Prune(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	n, err = s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := schemaVersion(s.db)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}
