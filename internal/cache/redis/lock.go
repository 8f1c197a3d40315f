package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cardarb/internal/domain"
)

// unlockLua deletes a lock key only if its value matches the caller's unique
// token, so one holder can never release another holder's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// ScanLocker implements domain.ScanLocker using Redis SETNX with a TTL and a
// Lua-based conditional unlock. It serializes card scans across processes.
type ScanLocker struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

// NewScanLocker creates a ScanLocker backed by the given Client.
func NewScanLocker(c *Client) *ScanLocker {
	return &ScanLocker{
		rdb:      c.Underlying(),
		unlockSc: redis.NewScript(unlockLua),
	}
}

func scanLockKey(key string) string {
	return "scanlock:" + key
}

// Acquire attempts to obtain the lock for the given key with the specified
// TTL. On success it returns a release function that is safe to call more
// than once. It returns domain.ErrLockHeld when another scan owns the key.
func (sl *ScanLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lk := scanLockKey(key)

	ok, err := sl.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire scan lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// Release with a background context so the lock clears even when the
		// caller's context is already cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = sl.unlockSc.Run(unlockCtx, sl.rdb, []string{lk}, token).Err()
	}

	return release, nil
}

// Compile-time interface check.
var _ domain.ScanLocker = (*ScanLocker)(nil)
