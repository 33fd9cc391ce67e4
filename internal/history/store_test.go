package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgseek/internal/searchapi"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first := &Search{
		QueryName:  "cat.png",
		QuerySize:  2048,
		MediaType:  "image/png",
		ServerFile: "abc_cat.png",
		ServerURL:  "http://localhost:5000/",
		Results: []searchapi.SearchResult{
			{Filename: "r1.jpg", Path: "dataset/r1.jpg", Distance: 0.5},
			{Filename: "r2.jpg", Path: "dataset/r2.jpg", Distance: 0.75},
		},
	}
	require.NoError(t, store.Record(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.True(t, base.Add(time.Minute).Equal(first.SearchedAt))

	second := &Search{QueryName: "dog.jpg", Results: []searchapi.SearchResult{}}
	require.NoError(t, store.Record(ctx, second))

	searches, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, searches, 2)

	assert.Equal(t, "dog.jpg", searches[0].QueryName)
	assert.Empty(t, searches[0].Results)

	got := searches[1]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "abc_cat.png", got.ServerFile)
	assert.True(t, first.SearchedAt.Equal(got.SearchedAt))
	require.Len(t, got.Results, 2)
	assert.Equal(t, "r1.jpg", got.Results[0].Filename)
	assert.Equal(t, 0.75, got.Results[1].Distance)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	s := &Search{QueryName: "cat.png", Results: []searchapi.SearchResult{{Filename: "a", Path: "b", Distance: 1}}}
	require.NoError(t, store.Record(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "cat.png", got.QueryName)
	assert.Len(t, got.Results, 1)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, &Search{
			QueryName:  "q",
			SearchedAt: base.Add(time.Duration(i) * time.Hour),
			Results:    []searchapi.SearchResult{{Filename: "r", Path: "p", Distance: 0.1}},
		}))
	}

	deleted, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	remaining, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.True(t, base.Add(4*time.Hour).Equal(remaining[0].SearchedAt))

	var orphans int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM search_results WHERE search_id NOT IN (SELECT id FROM searches)").Scan(&orphans))
	assert.Equal(t, 0, orphans)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, &Search{QueryName: "cat.png"}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	searches, err := store.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, searches, 1)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, len(migrations()), version)
}

func TestListAndPrune_SubSecondOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 19, 9, 0, 5, 0, time.UTC)
	entries := []struct {
		name string
		at   time.Time
	}{
		{"middle", base.Add(500 * time.Millisecond)},
		{"oldest", base},
		{"newest", base.Add(520 * time.Millisecond)},
	}
	for _, e := range entries {
		require.NoError(t, store.Record(ctx, &Search{QueryName: e.name, SearchedAt: e.at}))
	}

	searches, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, searches, 3)
	assert.Equal(t, "newest", searches[0].QueryName)
	assert.Equal(t, "middle", searches[1].QueryName)
	assert.Equal(t, "oldest", searches[2].QueryName)
	assert.True(t, base.Add(520*time.Millisecond).Equal(searches[0].SearchedAt))

	deleted, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	searches, err = store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, searches, 2)
	assert.Equal(t, "newest", searches[0].QueryName)
	assert.Equal(t, "middle", searches[1].QueryName)
}

func TestRecord_StoresUTC(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	zone := time.FixedZone("BRT", -3*60*60)
	at := time.Date(2026, 10, 19, 6, 0, 0, 0, zone)
	entry := &Search{QueryName: "local.png", SearchedAt: at}
	require.NoError(t, store.Record(ctx, entry))

	got, err := store.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, at.Equal(got.SearchedAt))
	assert.Equal(t, time.UTC, got.SearchedAt.Location())
}
