//go:build wireinject
// +build wireinject

package di

import (
	"TokenPull/pkg/config"
	"TokenPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCacheStore,
		ProvideKafkaProducer,
		ProvideKafkaFeed,
		ProvideKafkaConsumer,

		// Repositories and providers
		ProvideSnapshotPublisher,
		ProvideTokenProviders,

		// Use cases
		ProvideFetchOrchestrator,
		ProvideMergeEngine,
		ProvideTokenAggregator,
		ProvideSubscriptionRegistry,
		ProvideBroadcaster,

		// Transport
		ProvideRateLimiter,
		ProvideTokensHandler,
		ProvideWSHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
