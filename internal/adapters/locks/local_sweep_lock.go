package locks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
)

// LocalSweepLock guards sweeps within one process. The ttl is ignored:
// the holder always releases when its tick ends.
type LocalSweepLock struct {
	held atomic.Bool

	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

// NewLocalSweepLock creates an unheld lock
func NewLocalSweepLock() *LocalSweepLock {
	return &LocalSweepLock{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

var _ providers.SweepLock = (*LocalSweepLock)(nil)

// TryAcquire takes the lock if nobody holds it
func (l *LocalSweepLock) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.held.CompareAndSwap(false, true), nil
}

// Release frees the lock
func (l *LocalSweepLock) Release(ctx context.Context) error {
	l.held.Store(false)
	return nil
}

// Claim records key until ttl passes
func (l *LocalSweepLock) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, expiresAt := range l.claims {
		if !now.Before(expiresAt) {
			delete(l.claims, k)
		}
	}
	if _, taken := l.claims[key]; taken {
		return false, nil
	}
	l.claims[key] = now.Add(ttl)
	return true, nil
}
