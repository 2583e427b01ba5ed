package session

import (
	"context"
	"time"
)

// Store defines the interface for cached session values.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists data under key until expiresAt.
	// If key already exists, it is overwritten.
	Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error

	// Load retrieves data by key.
	// Returns (nil, nil) if the key doesn't exist or has expired.
	Load(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
type ErrStoreClosed struct{}

func (e ErrStoreClosed) Error() string {
	return "session store is closed"
}

// NoExpiry is used for values that live as long as the store.
var NoExpiry = time.Time{}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && now.After(expiresAt)
}
