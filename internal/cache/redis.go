package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/podmatch/internal/config"
)

// swipedSetTTL bounds staleness if an invalidation is ever missed; the set
// is rebuilt from the swipe table on the next miss.
const swipedSetTTL = time.Hour

// completeMarker flags a fully backfilled set. AddSwiped may create the key
// before any backfill ran; without the marker the set is partial and reads
// treat it as a miss. A set holding only the marker means "known empty".
const completeMarker = "__complete__"

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// KeyForSwipedSet generates the Redis key for a user's swiped-target set.
func (c *RedisCache) KeyForSwipedSet(userID string) string {
	return fmt.Sprintf("swiped:%s", userID)
}

// AddSwiped records a new swipe target in the user's cached set. Safe to
// call whether or not a backfill has run: an entry written into a not yet
// complete set simply waits for the next backfill to add the marker.
func (c *RedisCache) AddSwiped(ctx context.Context, userID, targetID string) error {
	key := c.KeyForSwipedSet(userID)
	pipe := c.Client.TxPipeline()
	pipe.SAdd(ctx, key, targetID)
	pipe.Expire(ctx, key, swipedSetTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// SwipedSet returns the cached swiped-target set for a user. The second
// return value is false on a miss, which includes a set AddSwiped started
// but no backfill has completed.
func (c *RedisCache) SwipedSet(ctx context.Context, userID string) (map[string]struct{}, bool, error) {
	key := c.KeyForSwipedSet(userID)
	members, err := c.Client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, false, err
	}

	set := make(map[string]struct{}, len(members))
	complete := false
	for _, m := range members {
		if m == completeMarker {
			complete = true
			continue
		}
		set[m] = struct{}{}
	}
	if !complete {
		return nil, false, nil
	}
	_ = c.Client.Expire(ctx, key, swipedSetTTL).Err()
	return set, true, nil
}

// FillSwipedSet merges the authoritative target list into the cached set and
// marks it complete. Merge, not replace: a target recorded by AddSwiped
// while the backfill was reading the swipe table is not in targetIDs, and a
// delete here would bury it until the TTL expired.
func (c *RedisCache) FillSwipedSet(ctx context.Context, userID string, targetIDs []string) error {
	key := c.KeyForSwipedSet(userID)
	members := make([]interface{}, 0, len(targetIDs)+1)
	members = append(members, completeMarker)
	for _, id := range targetIDs {
		members = append(members, id)
	}

	pipe := c.Client.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, swipedSetTTL)
	_, err := pipe.Exec(ctx)
	return err
}
