package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
	RateLimit struct {
		Enabled      bool    `yaml:"enabled"`
		Capacity     float64 `yaml:"capacity"`
		RefillPerSec float64 `yaml:"refill_per_sec"`
	} `yaml:"ratelimit"`
	Cache struct {
		TTL                 time.Duration `yaml:"ttl"`
		MemoryMaxSize       int           `yaml:"memory_max_size"`
		HealthCheckInterval time.Duration `yaml:"health_check_interval"`
		Redis               struct {
			Enabled      bool          `yaml:"enabled"`
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db"`
			PoolSize     int           `yaml:"pool_size"`
			MinIdleConns int           `yaml:"min_idle_conns"`
			PoolTimeout  time.Duration `yaml:"pool_timeout"`
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			OpTimeout    time.Duration `yaml:"op_timeout"`
			Prefix       string        `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Aggregation struct {
		MaxRecords  int `yaml:"max_records"`
		SearchLimit int `yaml:"search_limit"`
		Retry       struct {
			MaxAttempts int           `yaml:"max_attempts"`
			BaseDelay   time.Duration `yaml:"base_delay"`
			MaxDelay    time.Duration `yaml:"max_delay"`
		} `yaml:"retry"`
	} `yaml:"aggregation"`
	Broadcast struct {
		Interval   time.Duration `yaml:"interval"`
		BufferSize int           `yaml:"buffer_size"`
		PageLimit  int           `yaml:"page_limit"`
	} `yaml:"broadcast"`
	WebSocket struct {
		PingInterval time.Duration `yaml:"ping_interval"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		ReadLimit    int64         `yaml:"read_limit"`
	} `yaml:"websocket"`
	Providers struct {
		DexScreener struct {
			Enabled    bool          `yaml:"enabled"`
			BaseURL    string        `yaml:"base_url"`
			ChainID    string        `yaml:"chain_id"`
			Queries    []string      `yaml:"queries"`
			QueryDelay time.Duration `yaml:"query_delay"`
			Timeout    time.Duration `yaml:"timeout"`
		} `yaml:"dexscreener"`
		GeckoTerminal struct {
			Enabled    bool          `yaml:"enabled"`
			BaseURL    string        `yaml:"base_url"`
			Network    string        `yaml:"network"`
			Pages      int           `yaml:"pages"`
			QueryDelay time.Duration `yaml:"query_delay"`
			Timeout    time.Duration `yaml:"timeout"`
		} `yaml:"geckoterminal"`
		KafkaFeed struct {
			Enabled bool          `yaml:"enabled"`
			Topic   string        `yaml:"topic"`
			MaxAge  time.Duration `yaml:"max_age"`
		} `yaml:"kafka_feed"`
	} `yaml:"providers"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		SnapshotTopic string   `yaml:"snapshot_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id"`
			OffsetReset string        `yaml:"offset_reset"`
			Workers     int           `yaml:"workers"`
			BufferSize  int           `yaml:"buffer_size"`
			RetryMax    int           `yaml:"retry_max"`
			BackoffMin  time.Duration `yaml:"backoff_min"`
			BackoffMax  time.Duration `yaml:"backoff_max"`
			DLQTopic    string        `yaml:"dlq_topic"`
			MinBytes    int           `yaml:"min_bytes"`
			MaxBytes    int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.ApplyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("BROADCAST_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BROADCAST_INTERVAL: %w", err)
		}
		c.Broadcast.Interval = d
	}
	return nil
}

// ApplyDefaults fills zero values with the service defaults.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	setInt(&c.Server.Port, 8080)
	setDur(&c.Server.ReadTimeout, 10*time.Second)
	setDur(&c.Server.WriteTimeout, 10*time.Second)
	setDur(&c.Server.ShutdownTimeout, 10*time.Second)
	setDur(&c.Server.SlowThreshold, time.Second)
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	setStr(&c.Log.Level, "info")
	setStr(&c.Log.Format, "console")
	setStr(&c.Log.Output, "stdout")

	if c.RateLimit.Capacity <= 0 {
		c.RateLimit.Capacity = 50
	}
	if c.RateLimit.RefillPerSec <= 0 {
		c.RateLimit.RefillPerSec = 10
	}

	setDur(&c.Cache.TTL, 30*time.Second)
	setInt(&c.Cache.MemoryMaxSize, 1000)
	setDur(&c.Cache.HealthCheckInterval, 5*time.Second)
	setStr(&c.Cache.Redis.Host, "localhost")
	setInt(&c.Cache.Redis.Port, 6379)
	setInt(&c.Cache.Redis.PoolSize, 10)
	setDur(&c.Cache.Redis.PoolTimeout, 5*time.Second)
	setDur(&c.Cache.Redis.DialTimeout, 2*time.Second)
	setDur(&c.Cache.Redis.OpTimeout, time.Second)
	setStr(&c.Cache.Redis.Prefix, "tokenpull")

	setInt(&c.Aggregation.MaxRecords, 200)
	setInt(&c.Aggregation.SearchLimit, 20)
	setInt(&c.Aggregation.Retry.MaxAttempts, 4)
	setDur(&c.Aggregation.Retry.BaseDelay, 500*time.Millisecond)
	setDur(&c.Aggregation.Retry.MaxDelay, 10*time.Second)

	setDur(&c.Broadcast.Interval, 5*time.Second)
	setInt(&c.Broadcast.BufferSize, 16)
	setInt(&c.Broadcast.PageLimit, 25)

	setDur(&c.WebSocket.PingInterval, 30*time.Second)
	setDur(&c.WebSocket.WriteTimeout, 10*time.Second)
	if c.WebSocket.ReadLimit <= 0 {
		c.WebSocket.ReadLimit = 64 << 10
	}

	dx := &c.Providers.DexScreener
	setStr(&dx.BaseURL, "https://api.dexscreener.com")
	setStr(&dx.ChainID, "solana")
	setDur(&dx.QueryDelay, 250*time.Millisecond)
	setDur(&dx.Timeout, 10*time.Second)
	if len(dx.Queries) == 0 {
		dx.Queries = []string{"solana"}
	}

	gt := &c.Providers.GeckoTerminal
	setStr(&gt.BaseURL, "https://api.geckoterminal.com/api/v2")
	setStr(&gt.Network, "solana")
	setInt(&gt.Pages, 1)
	setDur(&gt.QueryDelay, 500*time.Millisecond)
	setDur(&gt.Timeout, 10*time.Second)

	setStr(&c.Providers.KafkaFeed.Topic, "tokens.raw")
	setDur(&c.Providers.KafkaFeed.MaxAge, 2*time.Minute)

	setStr(&c.Kafka.SnapshotTopic, "tokens.snapshot")
	setStr(&c.Kafka.Compression, "gzip")
	setInt(&c.Kafka.Producer.MaxAttempts, 3)
	setInt(&c.Kafka.Producer.BatchSize, 100)
	setInt(&c.Kafka.Producer.BatchBytes, 1<<20)
	setDur(&c.Kafka.Producer.Linger, 50*time.Millisecond)
	setDur(&c.Kafka.Producer.WriteTimeout, 10*time.Second)
	setDur(&c.Kafka.Producer.ReadTimeout, 10*time.Second)

	cs := &c.Kafka.Consumer
	setStr(&cs.GroupID, "tokenpull")
	setStr(&cs.OffsetReset, "latest")
	setInt(&cs.Workers, 1)
	setInt(&cs.BufferSize, 256)
	setInt(&cs.RetryMax, 3)
	setDur(&cs.BackoffMin, 100*time.Millisecond)
	setDur(&cs.BackoffMax, 2*time.Second)
	setInt(&cs.MinBytes, 1)
	setInt(&cs.MaxBytes, 10<<20)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Aggregation.MaxRecords <= 0 {
		return fmt.Errorf("aggregation.max_records must be positive")
	}
	if c.Aggregation.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("aggregation.retry.max_attempts must be positive")
	}
	if c.Broadcast.Interval <= 0 {
		return fmt.Errorf("broadcast.interval must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	p := c.Providers
	if !p.DexScreener.Enabled && !p.GeckoTerminal.Enabled && !p.KafkaFeed.Enabled {
		return fmt.Errorf("at least one provider must be enabled")
	}
	needKafka := c.Kafka.Enabled || p.KafkaFeed.Enabled
	if needKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka or kafka_feed is enabled")
	}
	return nil
}

func setInt(dst *int, def int) {
	if *dst <= 0 {
		*dst = def
	}
}

func setDur(dst *time.Duration, def time.Duration) {
	if *dst <= 0 {
		*dst = def
	}
}

func setStr(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}
