package providers

import (
	"context"
	"time"
)

// SweepLock guards a sweep tick so that only one instance runs it at a time.
// It also records one-off side effects that must not repeat across ticks.
type SweepLock interface {
	// TryAcquire takes the lock for ttl; it returns false without error when another holder has it
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)

	// Release gives the lock up if this instance still holds it
	Release(ctx context.Context) error

	// Claim marks key as done for ttl. It returns false when the key was already claimed,
	// by this instance or another one. Claims are never released.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
