// Package storage abstracts the object store holding booking-detail
// media. Keys are path-like; every booking's files live under one
// prefix so cleanup is a single delete-by-prefix call.
package storage

import (
	"context"
	"io"
	"time"
)

// Store is the narrow object-storage surface used for attachments.
type Store interface {
	// Upload stores the bytes under the given key and returns the key
	// as persisted by the backend.
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
	// URL returns a time-limited download URL for a stored key.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
	// DeleteByPrefix removes every object whose key starts with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error
}
