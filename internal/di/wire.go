//go:build wireinject
// +build wireinject

package di

import (
	"MarketLens/pkg/config"
	"MarketLens/pkg/server"

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
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideStore,
		ProvidePublisher,
		ProvideLatestCache,

		// Domain services
		ProvideValidator,
		ProvideEngine,
		ProvideAdapters,

		// Use cases
		ProvideIngestor,
		ProvideCoordinator,
		ProvideEvaluator,
		ProvideMaintainer,
		ProvideQueryUseCase,
		ProvideCollectUseCase,
		ProvideStreamCollector,

		// HTTP
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
