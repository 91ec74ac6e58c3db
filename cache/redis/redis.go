// Package redis provides a Redis-backed cache.Store.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatkitd/chatkitd/cache"
)

const connectionTimeout = 5 * time.Second

func init() {
	cache.Register("redis", New)
	cache.Register("rediss", New)
}

// Client is a Redis-backed cache implementation.
type Client struct {
	client *redis.Client
}

// New connects to the Redis instance named by the DSN and verifies the
// connection before returning.
func New(opts cache.Options) (cache.Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.DSN.Host,
		Password: opts.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Client{client: client}, nil
}

func (rc *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (rc *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

func (rc *Client) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

func (rc *Client) Exists(ctx context.Context, key string) (bool, error) {
	count, err := rc.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (rc *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return rc.client.Persist(ctx, key).Err()
	}
	return rc.client.Expire(ctx, key, ttl).Err()
}

// Increment atomically increments a counter.
func (rc *Client) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return rc.client.IncrBy(ctx, key, delta).Result()
}

func (rc *Client) SupportsPerKeyTTL() bool {
	return true
}

func (rc *Client) Close() error {
	return rc.client.Close()
}
