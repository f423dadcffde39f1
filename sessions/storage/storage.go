package storage

import (
	"context"
	"errors"
)

// Keys under which the session tokens are persisted.
const (
	AccessTokenKey  = "sc_access"
	RefreshTokenKey = "sc_refresh"
)

// ErrNotFound is returned by Get when a key has never been set or was removed.
var ErrNotFound = errors.New("key not found")

// Storage persists session strings across process runs.
type Storage interface {
	// Get returns the value stored at key, or ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set overwrites the value at key
	Set(ctx context.Context, key, value string) error

	// Remove deletes key; removing a missing key is not an error
	Remove(ctx context.Context, key string) error

	// Close releases the backend's resources
	Close() error
}
