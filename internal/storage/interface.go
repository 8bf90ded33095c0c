// Package storage provides the pluggable object store behind the dashboard
// cache and result exports. Keys are slash-separated paths; the backend is
// selected by configuration.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// Client is the minimal object-store surface the service needs.
type Client interface {
	// Store writes an object, replacing any previous content under the key.
	Store(ctx context.Context, key string, data []byte) error

	// Get reads an object. Missing keys return ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether an object is present under the key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys under the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
