// Package kvstore provides a concurrency-safe key/value mapping with
// per-entry expiry and atomic conditional updates.
//
// Values are opaque bytes. Conditional operations compare the full stored
// value, so callers can implement read-modify-write loops without holding a
// lock across their own work.
package kvstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or expired.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrCapacity is returned when a bounded mapping cannot take a new key.
	ErrCapacity = errors.New("kvstore: capacity reached")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("kvstore: mapping is closed")
)

// Mapping is a concurrency-safe table of byte values.
//
// A ttl of zero or less means the entry does not expire on its own.
type Mapping interface {
	io.Closer

	// Get returns the value stored at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores val at key, replacing any previous value.
	Put(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// CompareAndRemove deletes key only while it still holds expected. It
	// reports false when the value differs and ErrNotFound when the key is
	// gone.
	CompareAndRemove(ctx context.Context, key string, expected []byte) (bool, error)

	// CompareAndSwap replaces the value at key with val only while it still
	// holds expected, resetting the ttl. It reports false when the value
	// differs and ErrNotFound when the key is gone.
	CompareAndSwap(ctx context.Context, key string, expected, val []byte, ttl time.Duration) (bool, error)
}
