package core

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// The core defines the interface and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes keys from the cache and reports how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// UnlockFunc releases a lock obtained from JobLocker.
type UnlockFunc func(ctx context.Context) error

// JobLocker serializes mutations of a single job across requests and processes.
type JobLocker interface {
	// Lock acquires the lock for jobID or fails with data.ErrJobLocked when another holder owns it.
	Lock(ctx context.Context, jobID string) (UnlockFunc, error)
}

// NoopLocker is used when no lock backend is configured; concurrent updates of one job may interleave.
type NoopLocker struct{}

// Lock always succeeds.
func (NoopLocker) Lock(context.Context, string) (UnlockFunc, error) {
	return func(context.Context) error { return nil }, nil
}
