package usecase

import (
	"context"
	"time"

	"MarketLens/internal/domain/models"
	drepo "MarketLens/internal/domain/repository"
	applogger "MarketLens/pkg/logger"
)

// MarketStream is the WebSocket trade feed surface the collector needs.
type MarketStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.TradeRecord, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// TradeSink receives batches of streamed trades.
type TradeSink interface {
	IngestTrades(ctx context.Context, trades []models.TradeRecord) error
}

// StreamCollector bridges a venue WebSocket stream into the ingest
// pipeline. Trades are batched so a busy stream does not turn into one
// store write per trade.
type StreamCollector struct {
	venue   string
	stream  MarketStream
	sink    TradeSink
	metrics drepo.Metrics
	log     *applogger.Logger

	batchSize  int
	flushEvery time.Duration
}

func NewStreamCollector(venueName string, stream MarketStream, sink TradeSink, metrics drepo.Metrics, log *applogger.Logger) *StreamCollector {
	return &StreamCollector{
		venue:      venueName,
		stream:     stream,
		sink:       sink,
		metrics:    metrics,
		log:        log,
		batchSize:  100,
		flushEvery: time.Second,
	}
}

// IsConnected returns true if the market stream is connected.
func (c *StreamCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *StreamCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	trCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, trCh, errCh)
	return nil
}

func (c *StreamCollector) consume(ctx context.Context, trCh <-chan models.TradeRecord, errCh <-chan error) {
	batch := make([]models.TradeRecord, 0, c.batchSize)
	flush := time.NewTicker(c.flushEvery)
	defer flush.Stop()

	drain := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.sink.IngestTrades(ctx, batch); err != nil {
			c.log.Warn("stream batch ingest failed", applogger.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			drain()
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordPollError(c.venue, models.KindTrade, "stream")
				c.log.Warn("stream error, reconnecting", applogger.Error(err))
				drain()
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.log.Error("stream reconnect failed", applogger.Error(rerr))
					return
				}
				trCh, errCh = c.stream.Read(ctx)
			}
		case t, ok := <-trCh:
			if !ok {
				drain()
				return
			}
			batch = append(batch, t)
			if len(batch) >= c.batchSize {
				drain()
			}
		case <-flush.C:
			drain()
		}
	}
}

// Shutdown closes the stream.
func (c *StreamCollector) Shutdown(context.Context) error {
	return c.stream.Close()
}
