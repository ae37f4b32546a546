package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"MarketLens/internal/analytics"
	"MarketLens/internal/domain/models"
	"MarketLens/internal/domain/repository"
	"MarketLens/internal/handler/api"
	internalrepo "MarketLens/internal/repository"
	"MarketLens/internal/scheduler"
	"MarketLens/internal/usecase"
	"MarketLens/internal/validator"
	"MarketLens/internal/venue"
	"MarketLens/internal/venue/binanceperps"
	"MarketLens/internal/venue/binancespot"
	"MarketLens/internal/venue/bitget"
	"MarketLens/internal/venue/gate"
	"MarketLens/internal/venue/kucoin"
	"MarketLens/pkg/cache"
	pkgch "MarketLens/pkg/clickhouse"
	"MarketLens/pkg/config"
	xhttp "MarketLens/pkg/http"
	pkgkafka "MarketLens/pkg/kafka"
	applogger "MarketLens/pkg/logger"
	"MarketLens/pkg/metrics"
	"MarketLens/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideStore creates the ClickHouse record store and its schema.
func ProvideStore(chClient *pkgch.Client, cfg *config.Config, log *applogger.Logger) (repository.Store, error) {
	store := internalrepo.NewCHStore(chClient)
	store.SetLogger(log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx, cfg.ClickHouse.Database); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the record firehose publisher, or nil when
// Kafka is disabled.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideLatestCache fronts latest-snapshot reads with Redis when
// enabled, otherwise an in-process cache.
func ProvideLatestCache(cfg *config.Config) (repository.LatestCache, error) {
	if cfg.Redis.Enabled {
		host := cfg.Redis.Addr
		port := 6379
		if h, p, err := net.SplitHostPort(cfg.Redis.Addr); err == nil {
			host = h
			if n, perr := strconv.Atoi(p); perr == nil {
				port = n
			}
		}
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(host),
			cache.WithRedisPort(port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix("marketlens"),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return internalrepo.NewCacheLatest(cache.NewLayeredCache(rc), cfg.Redis.TTL), nil
	}
	return internalrepo.NewCacheLatest(cache.NewMemoryCache(), cfg.Redis.TTL), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEngine creates the derived-metrics engine.
func ProvideEngine(cfg *config.Config, m repository.Metrics) *analytics.Engine {
	ec := analytics.Config{
		Lookback:              cfg.Engine.Lookback,
		DepthBands:            cfg.Engine.DepthBands,
		RoundIncrements:       cfg.Engine.RoundIncrements,
		LargeFlowThreshold:    cfg.Engine.LargeFlowThreshold,
		ExpectedQuoteInterval: cfg.Engine.ExpectedQuoteInterval,
	}
	w := cfg.Engine.Weights
	if w.Symmetric+w.Round+w.SpreadConsistency+w.QuoteFrequency > 0 {
		ec.Weights = analytics.Weights{
			Symmetric:         w.Symmetric,
			RoundNumber:       w.Round,
			SpreadConsistency: w.SpreadConsistency,
			QuoteFrequency:    w.QuoteFrequency,
		}
	}
	return analytics.NewEngine(ec, m)
}

// ProvideValidator creates the record validator.
func ProvideValidator() *validator.Validator {
	return validator.New()
}

// ProvideIngestor creates the ingest pipeline.
func ProvideIngestor(
	val *validator.Validator,
	store repository.Store,
	engine *analytics.Engine,
	pub repository.Publisher,
	lc repository.LatestCache,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.Ingestor {
	return usecase.NewIngestor(val, store, engine, pub, lc, m, log)
}

// ProvideAdapters builds the enabled venue adapters.
func ProvideAdapters(cfg *config.Config) []venue.Adapter {
	symbols := cfg.Collector.Symbols
	var ads []venue.Adapter
	if v := cfg.Venues.BinancePerps; v.Enabled {
		ads = append(ads, binanceperps.New(binanceperps.Config{
			BaseURL: v.BaseURL, Symbols: symbols, Timeout: v.Timeout,
		}))
	}
	if v := cfg.Venues.BinanceSpot; v.Enabled {
		ads = append(ads, binancespot.New(binancespot.Config{
			BaseURL: v.BaseURL, Symbols: symbols, Timeout: v.Timeout,
		}))
	}
	if v := cfg.Venues.Gate; v.Enabled {
		ads = append(ads, gate.New(gate.Config{
			BaseURL: v.BaseURL, Symbols: symbols, Timeout: v.Timeout,
		}))
	}
	if v := cfg.Venues.Kucoin; v.Enabled {
		ads = append(ads, kucoin.New(kucoin.Config{
			BaseURL: v.BaseURL, Symbols: symbols, Timeout: v.Timeout,
		}))
	}
	if v := cfg.Venues.Bitget; v.Enabled {
		ads = append(ads, bitget.New(bitget.Config{
			BaseURL: v.BaseURL, Symbols: symbols, Timeout: v.Timeout,
			LargeFlowWindow: v.LargeFlowWindow,
		}))
	}
	return ads
}

func rateLimits(cfg *config.Config) map[string]scheduler.RateLimit {
	out := make(map[string]scheduler.RateLimit)
	add := func(name string, v config.VenueConfig) {
		if v.RateLimit.Capacity > 0 {
			out[name] = scheduler.RateLimit{
				Capacity:     float64(v.RateLimit.Capacity),
				RefillPerSec: v.RateLimit.RefillPerSec,
			}
		}
	}
	add("binance_perps", cfg.Venues.BinancePerps)
	add("binance_spot", cfg.Venues.BinanceSpot.VenueConfig)
	add("gate", cfg.Venues.Gate)
	add("kucoin", cfg.Venues.Kucoin)
	add("bitget", cfg.Venues.Bitget.VenueConfig)
	return out
}

// ProvideCoordinator builds the polling scheduler over the adapters.
func ProvideCoordinator(
	adapters []venue.Adapter,
	ingestor *usecase.Ingestor,
	cfg *config.Config,
	m repository.Metrics,
	log *applogger.Logger,
) *scheduler.Coordinator {
	cad := cfg.Collector.Cadences
	bo := cfg.Collector.Backoff
	opts := scheduler.Options{
		Symbols: cfg.Collector.Symbols,
		Cadences: scheduler.Cadences{
			Quote:       cad.Quote,
			OrderBook:   cad.OrderBook,
			Trade:       cad.Trade,
			Derivatives: cad.Derivatives,
			Positioning: cad.Positioning,
			LargeFlow:   cad.LargeFlow,
		},
		Backoff: scheduler.BackoffConfig{
			Base:        bo.Base,
			Cap:         bo.Cap,
			MaxAttempts: bo.MaxAttempts,
			Cooldown:    bo.Cooldown,
		},
		RateLimits:     rateLimits(cfg),
		OrderBookDepth: cfg.Collector.OrderBookDepth,
		TradeBatch:     cfg.Collector.TradeBatch,
	}
	return scheduler.NewCoordinator(adapters, ingestor, opts, m, log)
}

// ProvideEvaluator creates the periodic metrics evaluation job.
func ProvideEvaluator(engine *analytics.Engine, store repository.Store, cfg *config.Config, log *applogger.Logger) *usecase.Evaluator {
	return usecase.NewEvaluator(engine, store, cfg.Engine.EvalInterval, log)
}

func retentionPolicy(cfg *config.Config) usecase.RetentionPolicy {
	r := cfg.Retention
	p := usecase.DefaultRetention()
	set := func(k models.Kind, d time.Duration) {
		if d > 0 {
			p[k] = d
		}
	}
	set(models.KindQuote, r.Quote)
	set(models.KindOrderBook, r.OrderBook)
	set(models.KindTrade, r.Trade)
	set(models.KindDerivatives, r.Derivatives)
	set(models.KindPositioning, r.Positioning)
	set(models.KindLargeFlow, r.LargeFlow)
	set(models.KindMetric, r.Metric)
	set(models.KindRollup, r.Rollup)
	return p
}

func venueNames(adapters []venue.Adapter) []string {
	names := make([]string, 0, len(adapters))
	for _, ad := range adapters {
		names = append(names, ad.Name())
	}
	return names
}

// ProvideMaintainer creates the rollup and retention jobs.
func ProvideMaintainer(store repository.Store, adapters []venue.Adapter, cfg *config.Config, log *applogger.Logger) *usecase.Maintainer {
	return usecase.NewMaintainer(store, usecase.MaintainerConfig{
		Venues:            venueNames(adapters),
		Symbols:           cfg.Collector.Symbols,
		RollupBucket:      cfg.Rollup.Bucket,
		RollupWindow:      cfg.Rollup.Window,
		RollupInterval:    cfg.Rollup.Interval,
		Retention:         retentionPolicy(cfg),
		RetentionInterval: cfg.Retention.Interval,
	}, log)
}

// ProvideQueryUseCase creates the read-side use case.
func ProvideQueryUseCase(store repository.Store, lc repository.LatestCache) *usecase.QueryUseCase {
	return usecase.NewQueryUseCase(store, lc)
}

// ProvideCollectUseCase creates the force-collect use case.
func ProvideCollectUseCase(coord *scheduler.Coordinator) *usecase.CollectUseCase {
	return usecase.NewCollectUseCase(coord)
}

// ProvideHTTPHandler assembles the API route registrar.
func ProvideHTTPHandler(
	log *applogger.Logger,
	query *usecase.QueryUseCase,
	collect *usecase.CollectUseCase,
	store repository.Store,
) xhttp.Handler {
	market := api.NewMarketHandler(log, query, collect)
	health := api.NewHealthHandler(log, store, collect)
	return api.NewRouter(market, health)
}

// ProvideStreamCollector creates the Binance spot WebSocket collector,
// or nil when the stream is disabled.
func ProvideStreamCollector(cfg *config.Config, ingestor *usecase.Ingestor, m repository.Metrics, log *applogger.Logger) *usecase.StreamCollector {
	sc := cfg.Venues.BinanceSpot
	if !sc.Enabled || !sc.Stream.Enabled {
		return nil
	}
	stream := binancespot.NewStream(binancespot.StreamConfig{
		BaseURL:        sc.Stream.URL,
		Symbols:        cfg.Collector.Symbols,
		ReconnectDelay: sc.Stream.ReconnectDelay,
		PingInterval:   sc.Stream.PingInterval,
	})
	return usecase.NewStreamCollector(binancespot.Name, stream, ingestor, m, log)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	coord *scheduler.Coordinator,
	evaluator *usecase.Evaluator,
	maintainer *usecase.Maintainer,
	chClient *pkgch.Client,
	handler xhttp.Handler,
	stream *usecase.StreamCollector,
	pub repository.Publisher,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(cfg, log, coord, evaluator, maintainer, chClient)
	app.SetHTTPHandler(handler)
	if stream != nil {
		app.SetStreamCollector(stream)
	}
	if pub != nil {
		app.SetPublisher(pub)
	}
	if producer != nil {
		app.SetProducer(producer)
	}
	return app
}
