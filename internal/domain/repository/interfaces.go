package repository

import (
	"context"
	"time"

	"MarketLens/internal/domain/models"
)

// Store is the append-only time-series store. Inserts are idempotent on the
// record's (venue, symbol, kind, timestamp) key: writing an already-present
// key is silently ignored so retries are safe.
type Store interface {
	InsertQuote(ctx context.Context, q *models.QuoteSnapshot) error
	InsertOrderBook(ctx context.Context, b *models.OrderBookSnapshot) error
	InsertTrades(ctx context.Context, trades []models.TradeRecord) error
	InsertDerivatives(ctx context.Context, d *models.DerivativesSnapshot) error
	InsertPositioning(ctx context.Context, p *models.PositioningSnapshot) error
	InsertLargeFlow(ctx context.Context, f *models.LargeFlowSnapshot) error
	InsertMetrics(ctx context.Context, ms []models.MetricRecord) error

	// UpsertRollups replaces bucket rows by (venue, symbol, bucket_start);
	// re-running a rollup over the same range must not duplicate rows.
	UpsertRollups(ctx context.Context, rs []models.RollupRecord) error

	// Range queries return the newest rows first within [from, to]; a limit
	// of zero or below means unbounded.
	LatestQuote(ctx context.Context, venue, symbol string) (*models.QuoteSnapshot, error)
	LatestOrderBook(ctx context.Context, venue, symbol string) (*models.OrderBookSnapshot, error)
	QuotesRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.QuoteSnapshot, error)
	TradesRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.TradeRecord, error)
	DerivativesRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.DerivativesSnapshot, error)
	PositioningRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.PositioningSnapshot, error)
	LargeFlowRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.LargeFlowSnapshot, error)
	MetricsRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.MetricRecord, error)
	RollupsRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.RollupRecord, error)

	// Purge deletes records of one kind older than the cutoff and returns
	// the number of rows removed (best effort for backends that cannot count).
	Purge(ctx context.Context, kind models.Kind, olderThan time.Time) (int64, error)

	Health(ctx context.Context) error
	Close() error
}

// Publisher fans validated records out to downstream consumers (Kafka).
type Publisher interface {
	PublishRecord(ctx context.Context, rec models.Record) error
	Close() error
}

// LatestCache fronts the store for latest-snapshot lookups.
type LatestCache interface {
	GetQuote(ctx context.Context, venue, symbol string) (*models.QuoteSnapshot, bool)
	SetQuote(ctx context.Context, q *models.QuoteSnapshot)
	GetOrderBook(ctx context.Context, venue, symbol string) (*models.OrderBookSnapshot, bool)
	SetOrderBook(ctx context.Context, b *models.OrderBookSnapshot)
}

// Metrics records operational counters; implemented with Prometheus.
type Metrics interface {
	RecordPoll(venue string, kind models.Kind)
	RecordPollError(venue string, kind models.Kind, errKind string)
	RecordRecordsStored(venue string, kind models.Kind, n int)
	RecordValidationDrop(venue string, kind models.Kind, reason string)
	RecordLastSuccess(venue string, kind models.Kind, ts time.Time)
	RecordLatency(op string, seconds float64)
	RecordBufferSize(venue, symbol string, n int)
}
