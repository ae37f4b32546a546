package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketLens/internal/analytics"
	"MarketLens/internal/domain/models"
	drepo "MarketLens/internal/domain/repository"
	"MarketLens/internal/validator"
	applogger "MarketLens/pkg/logger"
)

// Ingestor is the sink behind every polling task: records pass the
// validator, then fan out to the store, the metrics engine and the
// optional Kafka firehose. Store writes get a bounded retry; the
// publisher and cache are best effort.
type Ingestor struct {
	val     *validator.Validator
	store   drepo.Store
	engine  *analytics.Engine
	pub     drepo.Publisher
	cache   drepo.LatestCache
	metrics drepo.Metrics
	log     *applogger.Logger

	storeRetries int
	retryDelay   time.Duration
}

func NewIngestor(val *validator.Validator, store drepo.Store, engine *analytics.Engine,
	pub drepo.Publisher, cache drepo.LatestCache, metrics drepo.Metrics, log *applogger.Logger) *Ingestor {
	return &Ingestor{
		val:          val,
		store:        store,
		engine:       engine,
		pub:          pub,
		cache:        cache,
		metrics:      metrics,
		log:          log,
		storeRetries: 2,
		retryDelay:   200 * time.Millisecond,
	}
}

// withRetry retries a store write a bounded number of times before
// surfacing the error to the scheduler, whose backoff takes over.
func (i *Ingestor) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= i.storeRetries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(i.retryDelay):
		}
	}
	i.log.Error("store write failed after retries",
		applogger.String("op", op), applogger.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func (i *Ingestor) publish(ctx context.Context, rec models.Record) {
	if i.pub == nil {
		return
	}
	if err := i.pub.PublishRecord(ctx, rec); err != nil {
		i.log.Warn("firehose publish failed", applogger.Error(err))
	}
}

func (i *Ingestor) IngestQuote(ctx context.Context, q *models.QuoteSnapshot) error {
	switch i.val.Quote(q) {
	case validator.Rejected:
		i.metrics.RecordValidationDrop(q.Venue, models.KindQuote, "structural")
		return nil
	case validator.Duplicate:
		return nil
	}
	if err := i.withRetry(ctx, "insert quote", func(ctx context.Context) error {
		return i.store.InsertQuote(ctx, q)
	}); err != nil {
		return err
	}
	i.metrics.RecordRecordsStored(q.Venue, models.KindQuote, 1)
	i.engine.AddQuote(q)
	if i.cache != nil {
		i.cache.SetQuote(ctx, q)
	}
	i.publish(ctx, q)
	return nil
}

func (i *Ingestor) IngestOrderBook(ctx context.Context, b *models.OrderBookSnapshot) error {
	switch i.val.OrderBook(b) {
	case validator.Rejected:
		i.metrics.RecordValidationDrop(b.Venue, models.KindOrderBook, "structural")
		return nil
	case validator.Duplicate:
		return nil
	}
	if err := i.withRetry(ctx, "insert orderbook", func(ctx context.Context) error {
		return i.store.InsertOrderBook(ctx, b)
	}); err != nil {
		return err
	}
	i.metrics.RecordRecordsStored(b.Venue, models.KindOrderBook, 1)
	i.engine.AddOrderBook(b)
	if i.cache != nil {
		i.cache.SetOrderBook(ctx, b)
	}
	i.publish(ctx, b)
	return nil
}

func (i *Ingestor) IngestTrades(ctx context.Context, trades []models.TradeRecord) error {
	accepted, dropped := i.val.Trades(trades)
	if dropped > 0 && len(trades) > 0 {
		i.metrics.RecordValidationDrop(trades[0].Venue, models.KindTrade, "sanity")
	}
	if len(accepted) == 0 {
		return nil
	}
	if err := i.withRetry(ctx, "insert trades", func(ctx context.Context) error {
		return i.store.InsertTrades(ctx, accepted)
	}); err != nil {
		return err
	}
	i.metrics.RecordRecordsStored(accepted[0].Venue, models.KindTrade, len(accepted))
	i.engine.AddTrades(accepted)
	for idx := range accepted {
		i.publish(ctx, &accepted[idx])
	}
	return nil
}

func (i *Ingestor) IngestDerivatives(ctx context.Context, d *models.DerivativesSnapshot) error {
	switch i.val.Derivatives(d) {
	case validator.Rejected:
		i.metrics.RecordValidationDrop(d.Venue, models.KindDerivatives, "structural")
		return nil
	case validator.Duplicate:
		return nil
	}
	if err := i.withRetry(ctx, "insert derivatives", func(ctx context.Context) error {
		return i.store.InsertDerivatives(ctx, d)
	}); err != nil {
		return err
	}
	i.metrics.RecordRecordsStored(d.Venue, models.KindDerivatives, 1)
	i.publish(ctx, d)
	return nil
}

func (i *Ingestor) IngestPositioning(ctx context.Context, p *models.PositioningSnapshot) error {
	switch i.val.Positioning(p) {
	case validator.Rejected:
		i.metrics.RecordValidationDrop(p.Venue, models.KindPositioning, "structural")
		return nil
	case validator.Duplicate:
		return nil
	}
	if err := i.withRetry(ctx, "insert positioning", func(ctx context.Context) error {
		return i.store.InsertPositioning(ctx, p)
	}); err != nil {
		return err
	}
	i.metrics.RecordRecordsStored(p.Venue, models.KindPositioning, 1)
	i.publish(ctx, p)
	return nil
}

func (i *Ingestor) IngestLargeFlow(ctx context.Context, f *models.LargeFlowSnapshot) error {
	switch i.val.LargeFlow(f) {
	case validator.Rejected:
		i.metrics.RecordValidationDrop(f.Venue, models.KindLargeFlow, "structural")
		return nil
	case validator.Duplicate:
		return nil
	}
	if err := i.withRetry(ctx, "insert largeflow", func(ctx context.Context) error {
		return i.store.InsertLargeFlow(ctx, f)
	}); err != nil {
		return err
	}
	i.metrics.RecordRecordsStored(f.Venue, models.KindLargeFlow, 1)
	i.engine.AddLargeFlow(f)
	i.publish(ctx, f)
	return nil
}
