// Package storage is the keyed document store behind the fakes.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// Storage holds values of T by string key. Implementations are safe for
// concurrent use.
type Storage[T any] interface {
	// Get returns ErrNotFound when there is no value for key
	Get(ctx context.Context, key string) (T, error)
	Set(ctx context.Context, key string, value T) error
	// Remove reports whether there was a value to remove
	Remove(ctx context.Context, key string) (bool, error)
	// KeySet lists the keys starting with prefix, sorted
	KeySet(ctx context.Context, prefix string) ([]string, error)
	// Update replaces the value for key with the result of fn atomically. fn
	// gets the zero value and false when the key is absent.
	Update(ctx context.Context, key string, fn func(current T, exists bool) (T, error)) (T, error)
}
