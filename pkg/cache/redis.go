package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the shared tier backed by Redis.
type RedisCache struct {
	client *redis.Client
	prefix string

	mu        sync.RWMutex
	onConnect []func()
}

// NewRedisCache creates a Redis cache client. It does not dial eagerly: an
// unreachable server only marks the tier unavailable once the store uses it.
func NewRedisCache(opts ...RedisOption) *RedisCache {
	cfg := &RedisConfig{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		PoolTimeout:  5 * time.Second,
		MinIdleConns: 0,
		DialTimeout:  2 * time.Second,
		OpTimeout:    time.Second,
		Prefix:       "tokenpull",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	c := &RedisCache{prefix: cfg.Prefix}
	c.client = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
		OnConnect: func(context.Context, *redis.Conn) error {
			c.notifyConnect()
			return nil
		},
	})

	return c
}

// Client returns underlying redis client.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// OnConnect registers fn to run whenever a new connection is established.
func (c *RedisCache) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.mu.Unlock()
}

func (c *RedisCache) notifyConnect() {
	c.mu.RLock()
	fns := c.onConnect
	c.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return c.client.Set(ctx, c.wrapKey(key), value, expiration).Err()
}

func (c *RedisCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Unlink(ctx, c.wrapKeys(keys...)...).Err()
}

func (c *RedisCache) wrapKey(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

func (c *RedisCache) wrapKeys(keys ...string) []string {
	wrapped := make([]string, len(keys))
	for i, key := range keys {
		wrapped[i] = c.wrapKey(key)
	}
	return wrapped
}

var (
	_ Remote          = (*RedisCache)(nil)
	_ ConnectNotifier = (*RedisCache)(nil)
)
