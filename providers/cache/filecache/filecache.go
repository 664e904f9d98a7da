// Package filecache implements [cache.Store] as one JSON file per key.
//
// Each file holds a record of the form
//
//	{"timestamp": "2025-01-01T00:00:00Z", "value": <json>}
//
// so entries stay readable and can be inspected or deleted by hand.
// Values that are not valid JSON are kept base64-encoded under "bytes".
package filecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/leofalp/draftly/providers/cache"
)

const (
	lockStripes   = 32
	maxNameLength = 80
)

type record struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     json.RawMessage `json:"value,omitempty"`
	Bytes     []byte          `json:"bytes,omitempty"`
}

// Store keeps cache entries under a directory.
type Store struct {
	dir   string
	ttl   time.Duration
	now   func() time.Time
	locks [lockStripes]sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates dir if needed and returns a Store whose entries live for ttl.
// A zero TTL disables expiry.
func New(dir string, ttl time.Duration, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("filecache: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filecache: create %s: %w", dir, err)
	}

	s := &Store{dir: dir, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ cache.Store = (*Store)(nil)

// Path returns the file that holds key.
// The name keeps a readable prefix of the key and a hash suffix so that keys
// differing only in stripped characters do not collide.
func (s *Store) Path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, sanitize(key)+"_"+hex.EncodeToString(sum[:4])+".json")
}

// Get reads key. Expired or unreadable records count as misses and are removed.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	mu := s.lock(key)
	mu.Lock()
	defer mu.Unlock()

	path := s.Path(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("filecache: read %s: %w", path, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		_ = os.Remove(path)
		return nil, false, nil
	}

	if s.ttl > 0 && s.now().Sub(rec.Timestamp) >= s.ttl {
		_ = os.Remove(path)
		return nil, false, nil
	}

	if rec.Value != nil {
		return []byte(rec.Value), true, nil
	}
	return rec.Bytes, true, nil
}

// Set writes key through a temporary file so readers never see a partial record.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := record{Timestamp: s.now().UTC()}
	if json.Valid(value) {
		rec.Value = json.RawMessage(value)
	} else {
		rec.Bytes = value
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("filecache: encode %q: %w", key, err)
	}

	mu := s.lock(key)
	mu.Lock()
	defer mu.Unlock()

	path := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("filecache: write %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("filecache: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("filecache: write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("filecache: write %s: %w", path, err)
	}
	return nil
}

// Delete removes the file for key.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	mu := s.lock(key)
	mu.Lock()
	defer mu.Unlock()

	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filecache: delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.locks[h.Sum32()%lockStripes]
}

func sanitize(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
		if b.Len() >= maxNameLength {
			break
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		return "key"
	}
	return name
}
