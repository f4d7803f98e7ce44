package service

import (
	"context"
	"fmt"
	"time"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// marketLockTTL bounds how long a single mutating operation may hold a
// market's lock before it expires on its own.
const marketLockTTL = 10 * time.Second

// withMarketLock serializes fn against all other mutating operations on the
// same market. Operations on different markets proceed concurrently.
func withMarketLock(ctx context.Context, locks domain.LockManager, marketID string, fn func(ctx context.Context) error) error {
	unlock, err := locks.Acquire(ctx, "market:"+marketID, marketLockTTL)
	if err != nil {
		return fmt.Errorf("service: lock market %s: %w", marketID, err)
	}
	defer unlock()
	return fn(ctx)
}

// inTx runs fn inside a single storage transaction so the vault transfer and
// the record writes of one operation commit or roll back together. A nil
// atomic runs fn directly, for hosts without transactional storage.
func inTx(ctx context.Context, atomic domain.Atomic, fn func(ctx context.Context) error) error {
	if atomic == nil {
		return fn(ctx)
	}
	return atomic.InTx(ctx, fn)
}
