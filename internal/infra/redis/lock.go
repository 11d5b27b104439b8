package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned when another instance is claiming for the same player.
var ErrLockHeld = errors.New("claim already in progress on another instance")

// releaseScript deletes the lock only if this holder still owns it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// ClaimLocker serialises claims for one player across bridge instances that share a
// backend account.
type ClaimLocker struct {
	client *Client
	ttl    time.Duration
}

// NewClaimLocker creates a locker whose locks expire after ttl.
func NewClaimLocker(client *Client, ttl time.Duration) *ClaimLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ClaimLocker{client: client, ttl: ttl}
}

// Lock acquires the player's claim lock. The returned func releases it.
func (l *ClaimLocker) Lock(ctx context.Context, player string) (func(), error) {
	key := claimLockKey(player)
	token := uuid.NewString()
	ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("setnx failed: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.client.rdb.Eval(ctx, releaseScript, []string{key}, token).Err()
	}, nil
}
