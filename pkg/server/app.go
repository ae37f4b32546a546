package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketLens/internal/domain/repository"
	"MarketLens/internal/scheduler"
	"MarketLens/internal/usecase"
	pkgch "MarketLens/pkg/clickhouse"
	"MarketLens/pkg/config"
	xhttp "MarketLens/pkg/http"
	pkgkafka "MarketLens/pkg/kafka"
	applogger "MarketLens/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	coord      *scheduler.Coordinator
	stream     *usecase.StreamCollector
	evaluator  *usecase.Evaluator
	maintainer *usecase.Maintainer
	publisher  repository.Publisher
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer

	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	coord *scheduler.Coordinator,
	evaluator *usecase.Evaluator,
	maintainer *usecase.Maintainer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		coord:      coord,
		evaluator:  evaluator,
		maintainer: maintainer,
		chClient:   chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetStreamCollector attaches the optional WebSocket trade collector.
func (a *App) SetStreamCollector(c *usecase.StreamCollector) { a.stream = c }

// SetPublisher attaches the firehose publisher for lifecycle management.
func (a *App) SetPublisher(p repository.Publisher) { a.publisher = p }

// SetProducer attaches the raw Kafka producer for log aggregation wiring.
func (a *App) SetProducer(p *pkgkafka.Producer) { a.producer = p }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ship aggregated error logs to Kafka when the firehose is on.
	if a.producer != nil && a.cfg.Kafka.Enabled {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Kafka.Topic + ".logs",
			Publisher:      kafkaLogPublisher{p: a.producer},
		})
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	a.coord.Start(ctx)
	a.log.Info("collector started",
		applogger.Strings("symbols", a.cfg.Collector.Symbols),
		applogger.Int("venues", len(a.coord.Health())))

	if a.stream != nil {
		if err := a.stream.Start(ctx); err != nil {
			a.log.Error("stream collector start error", applogger.Error(err))
		} else {
			a.log.Info("stream collector started")
		}
	}

	go a.evaluator.Run(ctx)
	go a.maintainer.Run(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.coord.Stop()

	if a.stream != nil {
		if err := a.stream.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("stream collector stop error", applogger.Error(err))
		}
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

// kafkaLogPublisher adapts the Kafka producer to the log collector's
// publisher interface.
type kafkaLogPublisher struct {
	p *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.p.Publish(ctx, topic, nil, payload)
}
