package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix = "roomres:lock:room:"

	// Lock TTL bounds how long a crashed holder can wedge a room.
	defaultLockTTL = 10 * time.Second

	defaultRetryInterval = 25 * time.Millisecond
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a Locker backed by Redis SET NX, for deployments with more
// than one instance sharing the store.
type Redis struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
}

// NewRedis creates a Redis-backed locker.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		client:        client,
		ttl:           defaultLockTTL,
		retryInterval: defaultRetryInterval,
	}
}

// Acquire implements Locker. It polls SET NX until the lock is granted
// or ctx is done.
func (r *Redis) Acquire(ctx context.Context, roomID int64) (func(), error) {
	key := fmt.Sprintf("%s%d", lockKeyPrefix, roomID)
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			release := func() {
				// Best effort: the TTL reclaims the lock if the
				// release itself fails.
				ctxRel, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(ctxRel, r.client, []string{key}, token).Err()
			}
			return release, nil
		}

		select {
		case <-time.After(r.retryInterval):
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		}
	}
}
