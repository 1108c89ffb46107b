package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPopTimeout = 5 * time.Second

// RedisDriver queues payloads on a Redis list with LPUSH and BRPOP.
type RedisDriver struct {
	rdb *redis.Client
	key string
}

// NewRedisDriver connects to url (redis://host:port/db) and pings it.
func NewRedisDriver(ctx context.Context, url, key string) (*RedisDriver, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("outbox/redis: parse url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("outbox/redis: ping: %w", err)
	}
	return NewRedisDriverFromClient(rdb, key), nil
}

func NewRedisDriverFromClient(rdb *redis.Client, key string) *RedisDriver {
	if key == "" {
		key = "storefront:notifications"
	}
	return &RedisDriver{rdb: rdb, key: key}
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, d.key, payload).Err(); err != nil {
		return fmt.Errorf("outbox/redis: push: %w", err)
	}
	return nil
}

// Pop waits up to five seconds; a timeout returns nil, nil.
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	result, err := d.rdb.BRPop(ctx, redisPopTimeout, d.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, redis.ErrClosed) {
			return nil, ErrDriverClosed
		}
		return nil, fmt.Errorf("outbox/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

func (d *RedisDriver) Close() error {
	return d.rdb.Close()
}
