// Package cache provides the key/value store used for login hand-offs,
// community view buffering and like counters.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned when a key does not exist or has expired.
var ErrMiss = errors.New("cache: key not found")

// Store is the subset of Redis the application relies on.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// GetDel reads a key and removes it in one step.
	GetDel(ctx context.Context, key string) (string, error)
	// Incr adds one to an integer key, creating it at zero.
	Incr(ctx context.Context, key string) (int64, error)
	// IncrBy adds delta to an integer key, creating it at zero.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	Close() error
}

// SetJSON stores v encoded as JSON.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b), ttl)
}

// GetJSON decodes the JSON value at key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return nil
}

// GetDelJSON decodes the JSON value at key into v and removes the key.
func GetDelJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.GetDel(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return nil
}
