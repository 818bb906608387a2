package di

import (
	"fmt"

	"TokenPull/internal/domain/repository"
	"TokenPull/internal/handler/api"
	"TokenPull/internal/handler/ws"
	internalrepo "TokenPull/internal/repository"
	"TokenPull/internal/service/dexscreener"
	"TokenPull/internal/service/geckoterminal"
	"TokenPull/internal/service/kafkafeed"
	"TokenPull/internal/service/ratelimit"
	"TokenPull/internal/services/merge"
	"TokenPull/internal/usecase"
	pkgcache "TokenPull/pkg/cache"
	"TokenPull/pkg/config"
	xhttp "TokenPull/pkg/http"
	"TokenPull/pkg/http/middleware"
	pkgkafka "TokenPull/pkg/kafka"
	applogger "TokenPull/pkg/logger"
	"TokenPull/pkg/metrics"
	"TokenPull/pkg/retry"
	"TokenPull/pkg/server"
)

const userAgent = "TokenPull/1.0"

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideRedisCache returns nil when the remote tier is disabled.
func ProvideRedisCache(cfg *config.Config) *pkgcache.RedisCache {
	r := cfg.Cache.Redis
	if !r.Enabled {
		return nil
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(r.Host),
		pkgcache.WithRedisPort(r.Port),
		pkgcache.WithRedisPassword(r.Password),
		pkgcache.WithRedisDB(r.DB),
		pkgcache.WithRedisPool(r.PoolSize, r.MinIdleConns, r.PoolTimeout),
		pkgcache.WithRedisTimeouts(r.DialTimeout, r.OpTimeout),
		pkgcache.WithRedisPrefix(r.Prefix),
	)
}

// ProvideCacheStore creates the two-tier store.
func ProvideCacheStore(cfg *config.Config, redis *pkgcache.RedisCache, rec *metrics.Recorder, l *applogger.Logger) *pkgcache.Store {
	opts := []pkgcache.StoreOption{
		pkgcache.WithStoreMemorySize(cfg.Cache.MemoryMaxSize),
		pkgcache.WithHealthCheckInterval(cfg.Cache.HealthCheckInterval),
		pkgcache.WithStoreLogger(l),
		pkgcache.WithObserver(rec),
	}
	if redis != nil {
		opts = append(opts, pkgcache.WithRemote(redis))
	}
	return pkgcache.NewStore(opts...)
}

// ProvideKafkaProducer returns nil when snapshot publishing is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSnapshotPublisher returns nil without a producer.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.SnapshotTopic)
}

// ProvideKafkaFeed returns nil when the feed provider is disabled.
func ProvideKafkaFeed(cfg *config.Config, rec *metrics.Recorder) *kafkafeed.Feed {
	f := cfg.Providers.KafkaFeed
	if !f.Enabled {
		return nil
	}
	return kafkafeed.New(f.Topic, f.MaxAge, rec)
}

// ProvideKafkaConsumer creates a consumer for the feed topic, or nil.
func ProvideKafkaConsumer(cfg *config.Config, feed *kafkafeed.Feed, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if feed == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.OffsetReset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(feed)
	return consumer, nil
}

// ProvideTokenProviders builds the enabled providers in a fixed order.
func ProvideTokenProviders(cfg *config.Config, feed *kafkafeed.Feed, l *applogger.Logger) []repository.TokenProvider {
	var out []repository.TokenProvider

	if d := cfg.Providers.DexScreener; d.Enabled {
		out = append(out, dexscreener.New(
			dexscreener.WithBaseURL(d.BaseURL),
			dexscreener.WithChainID(d.ChainID),
			dexscreener.WithQueries(d.Queries),
			dexscreener.WithQueryDelay(d.QueryDelay),
			dexscreener.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(d.Timeout), xhttp.WithUserAgent(userAgent))),
			dexscreener.WithLogger(l.With(applogger.String("provider", dexscreener.Name))),
		))
	}
	if g := cfg.Providers.GeckoTerminal; g.Enabled {
		out = append(out, geckoterminal.New(
			geckoterminal.WithBaseURL(g.BaseURL),
			geckoterminal.WithNetwork(g.Network),
			geckoterminal.WithPages(g.Pages),
			geckoterminal.WithPageDelay(g.QueryDelay),
			geckoterminal.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(g.Timeout), xhttp.WithUserAgent(userAgent))),
			geckoterminal.WithLogger(l.With(applogger.String("provider", geckoterminal.Name))),
		))
	}
	if feed != nil {
		out = append(out, feed)
	}
	return out
}

func ProvideFetchOrchestrator(cfg *config.Config, providers []repository.TokenProvider, l *applogger.Logger, rec *metrics.Recorder) *usecase.FetchOrchestrator {
	r := cfg.Aggregation.Retry
	return usecase.NewFetchOrchestrator(providers, l, rec,
		retry.WithMaxAttempts(r.MaxAttempts),
		retry.WithBackoff(r.BaseDelay, r.MaxDelay),
	)
}

func ProvideMergeEngine(cfg *config.Config) *merge.Engine {
	return merge.New(merge.WithCap(cfg.Aggregation.MaxRecords))
}

func ProvideTokenAggregator(
	cfg *config.Config,
	fetcher *usecase.FetchOrchestrator,
	merger *merge.Engine,
	store *pkgcache.Store,
	pub repository.SnapshotPublisher,
	l *applogger.Logger,
	rec *metrics.Recorder,
) *usecase.TokenAggregator {
	return usecase.NewTokenAggregator(fetcher, merger, store,
		usecase.WithSnapshotTTL(cfg.Cache.TTL),
		usecase.WithSearchLimit(cfg.Aggregation.SearchLimit),
		usecase.WithPublisher(pub),
		usecase.WithAggregatorLogger(l),
		usecase.WithAggregatorMetrics(rec),
	)
}

func ProvideSubscriptionRegistry() *usecase.SubscriptionRegistry {
	return usecase.NewSubscriptionRegistry()
}

func ProvideBroadcaster(cfg *config.Config, reg *usecase.SubscriptionRegistry, agg *usecase.TokenAggregator, l *applogger.Logger, rec *metrics.Recorder) *usecase.Broadcaster {
	return usecase.NewBroadcaster(reg, agg,
		usecase.WithInterval(cfg.Broadcast.Interval),
		usecase.WithBroadcasterLogger(l),
		usecase.WithBroadcasterMetrics(rec),
	)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

func ProvideTokensHandler(l *applogger.Logger, agg *usecase.TokenAggregator, store *pkgcache.Store, bc *usecase.Broadcaster, limiter *ratelimit.Limiter) *api.TokensEchoHandler {
	var allow middleware.Allower
	if limiter != nil {
		allow = limiter
	}
	return api.NewTokensEchoHandler(l, agg, store, bc, allow)
}

func ProvideWSHandler(cfg *config.Config, bc *usecase.Broadcaster, l *applogger.Logger) *ws.TokensWSHandler {
	return ws.NewTokensWSHandler(bc,
		ws.WithPingInterval(cfg.WebSocket.PingInterval),
		ws.WithWriteTimeout(cfg.WebSocket.WriteTimeout),
		ws.WithReadLimit(cfg.WebSocket.ReadLimit),
		ws.WithBufferSize(cfg.Broadcast.BufferSize),
		ws.WithDefaultLimit(cfg.Broadcast.PageLimit),
		ws.WithLogger(l),
	)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, tokens *api.TokensEchoHandler, wsh *ws.TokensWSHandler) *xhttp.Server {
	return xhttp.NewServer([]xhttp.Handler{tokens, wsh},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(cfg.Metrics.Enabled),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	bc *usecase.Broadcaster,
	store *pkgcache.Store,
	consumer *pkgkafka.Consumer,
	pub repository.SnapshotPublisher,
) *server.App {
	return server.New(cfg, l, srv, bc, store,
		server.WithConsumer(consumer),
		server.WithPublisher(pub),
	)
}
