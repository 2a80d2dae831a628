package providers

import (
	"context"
)

// CacheProvider is the byte cache behind read-through lookups such as restaurant names.
// Get reports a miss as an error; callers treat any error as a miss.
type CacheProvider interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for ttlSeconds; zero keeps it until deleted
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error

	Delete(ctx context.Context, key string) error
}
