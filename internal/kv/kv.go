// Package kv is the persistent key-value layer behind the identity and history
// stores. Every backend stores opaque byte values under plain identifier keys
// and offers an atomic read-modify-write.
package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound   = errors.New("kv: key not found")
	ErrConflict   = errors.New("kv: concurrent modification")
	ErrInvalidKey = errors.New("kv: invalid key")
)

// UpdateFunc receives the current value (nil when the key is absent) and
// returns the value to store. Returning an error aborts the update.
type UpdateFunc func(current []byte) ([]byte, error)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
