// Package sqlitecache implements [cache.Store] on a single SQLite table.
//
// The caller owns the *sql.DB and must register a driver, typically with
//
//	import _ "modernc.org/sqlite"
//
// [Open] does both for the common case of a cache file on disk.
package sqlitecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leofalp/draftly/providers/cache"
)

// Store persists entries in the cache_entries table.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps db and creates the schema if it does not exist.
// A zero TTL disables expiry.
func New(db *sql.DB, ttl time.Duration, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlitecache: db is nil")
	}

	s := &Store{db: db, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens (or creates) the database file at path with the modernc driver.
func Open(path string, ttl time.Duration, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlitecache: open %s: %w", path, err)
	}
	s, err := New(db, ttl, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS cache_entries (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    created_at INTEGER NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("sqlitecache: init schema: %w", err)
	}
	return nil
}

var _ cache.Store = (*Store)(nil)

// Get returns the value for key. Expired rows are deleted and reported as a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, false, err
	}

	var (
		value     []byte
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, created_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlitecache: get %q: %w", key, err)
	}

	if s.ttl > 0 && s.now().Sub(time.Unix(0, createdAt)) >= s.ttl {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE key = ? AND created_at = ?`, key, createdAt,
		); err != nil {
			return nil, false, fmt.Errorf("sqlitecache: evict %q: %w", key, err)
		}
		return nil, false, nil
	}

	return value, true, nil
}

// Set upserts key and resets its age.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO cache_entries (key, value, created_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    created_at = excluded.created_at
`, key, value, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("sqlitecache: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlitecache: delete %q: %w", key, err)
	}
	return nil
}

// Purge deletes every expired row and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sqlitecache: purge: %w", err)
	}
	return res.RowsAffected()
}
