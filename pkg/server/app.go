package server

import (
	"context"
	"fmt"
	"time"

	"TokenPull/internal/domain/repository"
	"TokenPull/internal/usecase"
	pkgcache "TokenPull/pkg/cache"
	"TokenPull/pkg/config"
	xhttp "TokenPull/pkg/http"
	pkgkafka "TokenPull/pkg/kafka"
	applogger "TokenPull/pkg/logger"

	"golang.org/x/sync/errgroup"
)

type Option func(*App)

// WithConsumer attaches the feed consumer. Nil is ignored.
func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) {
		a.consumer = c
	}
}

// WithPublisher attaches the snapshot publisher so it is closed on shutdown.
func WithPublisher(p repository.SnapshotPublisher) Option {
	return func(a *App) {
		a.publisher = p
	}
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	httpServer  *xhttp.Server
	broadcaster *usecase.Broadcaster
	store       *pkgcache.Store
	consumer    *pkgkafka.Consumer
	publisher   repository.SnapshotPublisher
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	httpServer *xhttp.Server,
	broadcaster *usecase.Broadcaster,
	store *pkgcache.Store,
	opts ...Option,
) *App {
	a := &App{
		cfg:         cfg,
		logger:      logger,
		httpServer:  httpServer,
		broadcaster: broadcaster,
		store:       store,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = applogger.Nop()
	}
	return a
}

// Run starts every component and blocks until ctx is cancelled or one of the
// long-running components fails. Resources are released before returning.
func (a *App) Run(ctx context.Context) error {
	a.store.Start(ctx)

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.httpServer.Run(gctx) })
	g.Go(func() error { return a.broadcaster.Run(gctx) })

	a.logger.Info("app: started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Bool("redis", a.cfg.Cache.Redis.Enabled),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	err := g.Wait()
	if err != nil {
		a.logger.Error("app: component failed", applogger.Error(err))
	}
	a.shutdown()
	return err
}

// shutdown releases what the run group does not own: the HTTP server and
// broadcaster have already stopped.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("app: kafka consumer stop", applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("app: snapshot publisher close", applogger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("app: cache close", applogger.Error(err))
	}
	a.logger.Info("app: shutdown complete")
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg != nil && a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
