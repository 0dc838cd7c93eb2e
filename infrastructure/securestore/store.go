// Package securestore is the durable key-value store for session material.
// Values are sealed at rest; the session store owns the fixed keys it
// writes ("user", "credentials", "biometricEnabled").
package securestore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists under the key.
var ErrNotFound = errors.New("securestore: item not found")

// Store is a scoped secure key-value store. Implementations acquire their
// underlying resource per call rather than holding it open.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the value under key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) error
}
