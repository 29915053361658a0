package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig describes how to reach Redis
type RedisConfig struct {
	Addrs      []string
	Password   string
	DB         int
	UseCluster bool
	Prefix     string
}

// RedisCache implements Store and AttemptLog on Redis.
// Attempt windows are sorted sets scored by unix nanoseconds.
type RedisCache struct {
	client redis.UniversalClient // works with both single and cluster
	prefix string
}

// NewRedisCache connects to a single node or a cluster depending on cfg
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis address is required")
	}

	var rdb redis.UniversalClient
	if cfg.UseCluster && len(cfg.Addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Addrs[0],
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	return NewRedisCacheFromClient(rdb, cfg.Prefix), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "2fa"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Ping checks connectivity
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(namespace, key string) string {
	return c.prefix + ":" + namespace + ":" + key
}

func (c *RedisCache) Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(namespace, key), value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, namespace, key string) (string, error) {
	val, err := c.client.Get(ctx, c.key(namespace, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (c *RedisCache) Delete(ctx context.Context, namespace, key string) error {
	return c.client.Del(ctx, c.key(namespace, key)).Err()
}

func (c *RedisCache) SetNX(ctx context.Context, namespace, key, value string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.key(namespace, key), value, ttl).Result()
}

// compareAndDelete deletes KEYS[1] only when it still holds ARGV[1]
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (c *RedisCache) CompareAndDelete(ctx context.Context, namespace, key, expected string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, c.client, []string{c.key(namespace, key)}, expected).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume cache entry: %w", err)
	}
	return n == 1, nil
}

func (c *RedisCache) windowKey(key string) string {
	return c.key("attempts", key)
}

func (c *RedisCache) Add(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	k := c.windowKey(key)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(at.UnixNano()), Member: uuid.NewString()})
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

func (c *RedisCache) Window(ctx context.Context, key string, since time.Time) (int, time.Time, error) {
	k := c.windowKey(key)

	var (
		card   *redis.IntCmd
		oldest *redis.ZSliceCmd
	)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", "("+strconv.FormatInt(since.UnixNano(), 10))
		card = pipe.ZCard(ctx, k)
		oldest = pipe.ZRangeWithScores(ctx, k, 0, 0)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read attempt window: %w", err)
	}

	count := int(card.Val())
	if count == 0 || len(oldest.Val()) == 0 {
		return count, time.Time{}, nil
	}
	return count, time.Unix(0, int64(oldest.Val()[0].Score)), nil
}

func (c *RedisCache) Clear(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.windowKey(key)).Err()
}
