package repository

import (
	"context"
	"time"
)

// LeaseRepository grants exclusive, expiring claims keyed by order id.
type LeaseRepository interface {
	// Acquire atomically claims key for holder. Re-acquiring a key already
	// held by holder renews it. It returns false when another holder owns it.
	Acquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	// Release drops the claim only if holder still owns it.
	Release(ctx context.Context, key, holder string) error
	// Holder returns the current owner, or "" when unclaimed.
	Holder(ctx context.Context, key string) (string, error)
}
