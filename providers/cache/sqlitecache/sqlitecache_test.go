package sqlitecache

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/draftly/providers/cache"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newStore(t *testing.T, ttl time.Duration, opts ...Option) *Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "cache.db") + "?_journal=WAL"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := New(db, ttl, opts...)
	require.NoError(t, err)
	return s
}

func TestNew_NilDB(t *testing.T) {
	_, err := New(nil, time.Hour)
	assert.Error(t, err)
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, time.Hour)

	require.NoError(t, s.Set(ctx, "tavily_go", []byte(`[{"url":"u"}]`)))

	got, ok, err := s.Get(ctx, "tavily_go")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"url":"u"}]`, string(got))

	_, ok, err = s.Get(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_UpsertResetsAge(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newStore(t, time.Hour, WithClock(c.Now))

	require.NoError(t, s.Set(ctx, "k", []byte("one")))
	c.Advance(50 * time.Minute)
	require.NoError(t, s.Set(ctx, "k", []byte("two")))
	c.Advance(50 * time.Minute)

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", string(got))
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newStore(t, time.Hour, WithClock(c.Now))

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	c.Advance(time.Hour)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestStore_Purge(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newStore(t, time.Hour, WithClock(c.Now))

	require.NoError(t, s.Set(ctx, "old", []byte("v")))
	c.Advance(2 * time.Hour)
	require.NoError(t, s.Set(ctx, "new", []byte("v")))

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, _ := s.Get(ctx, "new")
	assert.True(t, ok)
}

func TestStore_DeleteAndInvalidKey(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	require.NoError(t, s.Set(ctx, "k", nil))
	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)

	assert.ErrorIs(t, s.Set(ctx, "", []byte("v")), cache.ErrInvalidKey)
}

func TestStore_SchemaIsIdempotent(t *testing.T) {
	s := newStore(t, time.Hour)
	_, err := New(s.db, time.Hour)
	require.NoError(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "c.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
