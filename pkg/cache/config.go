package cache

import (
	"time"

	applogger "TokenPull/pkg/logger"
)

// RedisOption configures Redis cache.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	DialTimeout  time.Duration
	OpTimeout    time.Duration
	Prefix       string
}

// WithRedisHost sets Redis host.
func WithRedisHost(host string) RedisOption {
	return func(c *RedisConfig) {
		c.Host = host
	}
}

// WithRedisPort sets Redis port.
func WithRedisPort(port int) RedisOption {
	return func(c *RedisConfig) {
		c.Port = port
	}
}

// WithRedisPassword sets Redis password.
func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
	}
}

// WithRedisDB sets Redis database number.
func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) {
		c.DB = db
	}
}

// WithRedisPool sets connection pool settings.
func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisTimeouts sets dial and per-operation timeouts. Short timeouts keep
// a dead Redis from stalling requests before the store falls back.
func WithRedisTimeouts(dial, op time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if op > 0 {
			c.OpTimeout = op
		}
	}
}

// WithRedisPrefix sets key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// MemoryOption configures Memory cache.
type MemoryOption func(*MemoryConfig)

// MemoryConfig holds memory cache configuration.
type MemoryConfig struct {
	MaxSize int
}

// WithMemoryMaxSize sets max cache size.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		if size > 0 {
			c.MaxSize = size
		}
	}
}

// StoreOption configures Store.
type StoreOption func(*StoreConfig)

// StoreConfig holds two-tier store configuration.
type StoreConfig struct {
	Remote              Remote
	MemoryMaxSize       int
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
	Logger              *applogger.Logger
	Observer            Observer
}

// WithRemote sets the shared tier. Without it the store runs memory-only.
func WithRemote(r Remote) StoreOption {
	return func(c *StoreConfig) {
		c.Remote = r
	}
}

// WithStoreMemorySize sets the local tier size.
func WithStoreMemorySize(size int) StoreOption {
	return func(c *StoreConfig) {
		if size > 0 {
			c.MemoryMaxSize = size
		}
	}
}

// WithHealthCheckInterval sets how often an unavailable remote is pinged.
func WithHealthCheckInterval(d time.Duration) StoreOption {
	return func(c *StoreConfig) {
		if d > 0 {
			c.HealthCheckInterval = d
		}
	}
}

// WithStoreLogger sets the store logger.
func WithStoreLogger(l *applogger.Logger) StoreOption {
	return func(c *StoreConfig) {
		c.Logger = l
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) StoreOption {
	return func(c *StoreConfig) {
		if o != nil {
			c.Observer = o
		}
	}
}
