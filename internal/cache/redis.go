package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travelhub/internal/model"
)

// setIfVersion writes ARGV[2] to KEYS[2] with a PX of ARGV[3] only when
// KEYS[1] (missing counts as 0) equals ARGV[1]. Returns 1 when written.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

// NewRedisCache returns a Redis-backed CartCache. A nil client yields Nop
// so callers do not need to branch on Redis availability.
func NewRedisCache(client *redis.Client, ttl time.Duration) CartCache {
	if client == nil {
		return Nop{}
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{client: client, baseTTL: ttl}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*model.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var cart model.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Version(ctx context.Context, userID string) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

// SetIfVersion stores cart with the base TTL plus up to a minute of jitter
// so entries written together do not expire together.
func (r *RedisCache) SetIfVersion(ctx context.Context, userID string, version int64, cart *model.Cart) (bool, error) {
	data, err := json.Marshal(cart)
	if err != nil {
		return false, fmt.Errorf("marshal cart failed: %w", err)
	}
	ttl := r.baseTTL + time.Duration(rand.Int63n(int64(time.Minute)))
	keys := []string{versionKey(userID), cacheKey(userID)}
	n, err := setIfVersion.Run(ctx, r.client, keys, strconv.FormatInt(version, 10), data, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis set failed: %w", err)
	}
	return n == 1, nil
}

// Invalidate increments the version and deletes the snapshot in one
// MULTI. The version key outlives any snapshot written under it.
func (r *RedisCache) Invalidate(ctx context.Context, userID string) error {
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, versionKey(userID))
	pipe.Expire(ctx, versionKey(userID), 2*(r.baseTTL+time.Minute))
	pipe.Del(ctx, cacheKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

// KeyPrefix namespaces cart snapshots; every key is "cart:<userID>".
// Version counters live under "cart_version:" so purging "cart:*" leaves
// them intact.
const KeyPrefix = "cart"

func cacheKey(userID string) string {
	return KeyPrefix + ":" + userID
}

func versionKey(userID string) string {
	return KeyPrefix + "_version:" + userID
}
