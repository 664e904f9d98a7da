package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned when a key is empty or only whitespace.
var ErrInvalidKey = errors.New("cache: invalid key")

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	// Get returns the stored value and true, or false when the key is absent
	// or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, resetting its age.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects keys that cannot address an entry.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}

// GetJSON loads key and decodes it into a T.
// A value that no longer decodes is treated as a miss.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var zero T

	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, false, nil
	}
	return out, true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

type disabled struct{}

// Disabled returns a Store that never hits and discards writes.
func Disabled() Store { return disabled{} }

func (disabled) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (disabled) Set(context.Context, string, []byte) error         { return nil }
func (disabled) Delete(context.Context, string) error              { return nil }
