package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const slotKeyFormat = "entitlements:inflight:%s" // Format: entitlements:inflight:<user_id>

// SlotReserver tracks in-flight generations per user so two concurrent
// requests cannot both pass the free-quota gate at quota-1. Reservations
// expire on their own in case a request dies without releasing.
type SlotReserver interface {
	// Reserve registers one in-flight generation and returns the total
	// number of reservations currently held for the user (including this one).
	Reserve(ctx context.Context, userID string) (int, error)
	Release(ctx context.Context, userID string) error
}

type redisSlots struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSlots(client *redis.Client) SlotReserver {
	return &redisSlots{client: client, ttl: 5 * time.Minute}
}

func (r *redisSlots) Reserve(ctx context.Context, userID string) (int, error) {
	key := fmt.Sprintf(slotKeyFormat, userID)
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if n == 1 {
		// Fresh key; bound its lifetime so crashed requests cannot pin a slot.
		_ = r.client.Expire(ctx, key, r.ttl).Err()
	}
	return int(n), nil
}

func (r *redisSlots) Release(ctx context.Context, userID string) error {
	key := fmt.Sprintf(slotKeyFormat, userID)
	n, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		_ = r.client.Del(ctx, key).Err()
	}
	return nil
}
