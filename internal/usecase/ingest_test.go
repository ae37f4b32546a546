package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"MarketLens/internal/analytics"
	"MarketLens/internal/domain/models"
	"MarketLens/internal/repository"
	"MarketLens/internal/validator"
	applogger "MarketLens/pkg/logger"
)

type noopMetrics struct{}

func (noopMetrics) RecordPoll(string, models.Kind)                   {}
func (noopMetrics) RecordPollError(string, models.Kind, string)      {}
func (noopMetrics) RecordRecordsStored(string, models.Kind, int)     {}
func (noopMetrics) RecordValidationDrop(string, models.Kind, string) {}
func (noopMetrics) RecordLastSuccess(string, models.Kind, time.Time) {}
func (noopMetrics) RecordLatency(string, float64)                    {}
func (noopMetrics) RecordBufferSize(string, string, int)             {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newIngestor(t *testing.T, store *repository.MemoryStore) *Ingestor {
	t.Helper()
	engine := analytics.NewEngine(analytics.Config{}, noopMetrics{})
	return NewIngestor(validator.New(), store, engine, nil, nil, noopMetrics{}, testLogger(t))
}

func quoteAt(ts time.Time, bid, ask string) *models.QuoteSnapshot {
	return &models.QuoteSnapshot{
		Venue:     "binance_spot",
		Symbol:    "BTCUSDT",
		Timestamp: ts,
		Bid:       dec(bid),
		Ask:       dec(ask),
		BidSize:   dec("1"),
		AskSize:   dec("1"),
	}
}

func TestIngestQuoteStored(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newIngestor(t, store)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := ing.IngestQuote(ctx, quoteAt(ts, "100", "101")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	got, err := store.LatestQuote(ctx, "binance_spot", "BTCUSDT")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || !got.Bid.Equal(dec("100")) {
		t.Fatalf("stored quote missing or wrong: %+v", got)
	}
	if got.Invalid {
		t.Fatalf("valid quote flagged invalid")
	}
}

func TestIngestCrossedQuoteStoredFlagged(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newIngestor(t, store)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := ing.IngestQuote(ctx, quoteAt(ts, "102", "101")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	got, err := store.LatestQuote(ctx, "binance_spot", "BTCUSDT")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil {
		t.Fatalf("crossed quote was dropped, want stored with flag")
	}
	if !got.Invalid {
		t.Fatalf("crossed quote not flagged invalid")
	}
}

func TestIngestDuplicateQuoteSkipped(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newIngestor(t, store)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := ing.IngestQuote(ctx, quoteAt(ts, "100", "101")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	// Re-poll returns the same snapshot timestamp.
	if err := ing.IngestQuote(ctx, quoteAt(ts, "200", "201")); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	got, _ := store.LatestQuote(ctx, "binance_spot", "BTCUSDT")
	if got == nil || !got.Bid.Equal(dec("100")) {
		t.Fatalf("duplicate overwrote original: %+v", got)
	}
}

func TestIngestTradesFiltered(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newIngestor(t, store)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	trades := []models.TradeRecord{
		{Venue: "gate", Symbol: "BTCUSDT", Timestamp: ts, Price: dec("100"), Quantity: dec("1"), Side: models.SideBuy, TradeID: "1"},
		{Venue: "gate", Symbol: "BTCUSDT", Timestamp: ts.Add(time.Second), Price: dec("0"), Quantity: dec("1"), Side: models.SideBuy, TradeID: "2"},
		{Venue: "gate", Symbol: "BTCUSDT", Timestamp: ts.Add(2 * time.Second), Price: dec("101"), Quantity: dec("2"), Side: models.SideSell, TradeID: "3"},
	}
	if err := ing.IngestTrades(ctx, trades); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	got, err := store.TradesRange(ctx, "gate", "BTCUSDT", ts.Add(-time.Minute), ts.Add(time.Minute), 0)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("stored trades = %d, want 2", len(got))
	}
}

func TestComplianceSummary(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	spread := func(v float64) *float64 { return &v }
	ms := []models.MetricRecord{
		{Venue: "kucoin", Symbol: "BTCUSDT", WindowEnd: base, SpreadBps: spread(5), UptimePct: 100},
		{Venue: "kucoin", Symbol: "BTCUSDT", WindowEnd: base.Add(time.Minute), SpreadBps: spread(15), UptimePct: 80},
		{Venue: "kucoin", Symbol: "BTCUSDT", WindowEnd: base.Add(2 * time.Minute), SpreadBps: nil, UptimePct: 60},
		{Venue: "kucoin", Symbol: "BTCUSDT", WindowEnd: base.Add(3 * time.Minute), SpreadBps: spread(10), UptimePct: 100},
	}
	if err := store.InsertMetrics(ctx, ms); err != nil {
		t.Fatalf("seed metrics: %v", err)
	}

	q := NewQueryUseCase(store, nil)
	sum, err := q.Compliance(ctx, "kucoin", "BTCUSDT", base.Add(-time.Minute), base.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if sum.Samples != 4 {
		t.Fatalf("samples = %d, want 4", sum.Samples)
	}
	// 5 and 10 are at or under the 10bps threshold, over 4 samples.
	if sum.UnderThresholdPct != 50 {
		t.Fatalf("under threshold = %v, want 50", sum.UnderThresholdPct)
	}
	if sum.AvgSpreadBps == nil || *sum.AvgSpreadBps != 10 {
		t.Fatalf("avg spread = %v, want 10", sum.AvgSpreadBps)
	}
	if sum.MinSpreadBps == nil || *sum.MinSpreadBps != 5 {
		t.Fatalf("min spread = %v, want 5", sum.MinSpreadBps)
	}
	if sum.MaxSpreadBps == nil || *sum.MaxSpreadBps != 15 {
		t.Fatalf("max spread = %v, want 15", sum.MaxSpreadBps)
	}
	if sum.AvgUptimePct == nil || *sum.AvgUptimePct != 85 {
		t.Fatalf("avg uptime = %v, want 85", sum.AvgUptimePct)
	}
}

func TestComplianceEmptyWindow(t *testing.T) {
	store := repository.NewMemoryStore()
	q := NewQueryUseCase(store, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sum, err := q.Compliance(context.Background(), "kucoin", "BTCUSDT", base, base.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("compliance: %v", err)
	}
	if sum.Samples != 0 || sum.AvgSpreadBps != nil || sum.UnderThresholdPct != 0 {
		t.Fatalf("empty window not zero-valued: %+v", sum)
	}
}

func TestMaintainerRollupAndRetention(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	spread := func(v float64) *float64 { return &v }
	ms := []models.MetricRecord{
		{Venue: "bitget", Symbol: "BTCUSDT", WindowEnd: now.Add(-4 * time.Minute), SpreadBps: spread(10), UptimePct: 100},
		{Venue: "bitget", Symbol: "BTCUSDT", WindowEnd: now.Add(-3 * time.Minute), SpreadBps: spread(20), UptimePct: 50},
	}
	if err := store.InsertMetrics(ctx, ms); err != nil {
		t.Fatalf("seed metrics: %v", err)
	}

	m := NewMaintainer(store, MaintainerConfig{
		Venues:  []string{"bitget"},
		Symbols: []string{"BTCUSDT"},
	}, testLogger(t))

	if err := m.RunRollup(ctx, now); err != nil {
		t.Fatalf("rollup: %v", err)
	}
	// Re-run must not duplicate buckets.
	if err := m.RunRollup(ctx, now); err != nil {
		t.Fatalf("rollup rerun: %v", err)
	}
	rs, err := store.RollupsRange(ctx, "bitget", "BTCUSDT", now.Add(-time.Hour), now, 0)
	if err != nil {
		t.Fatalf("rollups range: %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("rollup buckets = %d, want 1", len(rs))
	}
	if rs[0].AvgSpreadBps == nil || *rs[0].AvgSpreadBps != 15 {
		t.Fatalf("avg spread = %v, want 15", rs[0].AvgSpreadBps)
	}

	// Retention removes the stale metrics but keeps the rollup.
	m.retention = RetentionPolicy{models.KindMetric: time.Minute}
	m.RunRetention(ctx, now)
	left, _ := store.MetricsRange(ctx, "bitget", "BTCUSDT", now.Add(-time.Hour), now, 0)
	if len(left) != 0 {
		t.Fatalf("stale metrics survived retention: %d", len(left))
	}
	rs, _ = store.RollupsRange(ctx, "bitget", "BTCUSDT", now.Add(-time.Hour), now, 0)
	if len(rs) != 1 {
		t.Fatalf("rollup purged unexpectedly")
	}
}

func TestEvaluatorPersistsMetrics(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	engine := analytics.NewEngine(analytics.Config{}, noopMetrics{})
	engine.AddQuote(quoteAt(now.Add(-time.Second), "100", "101"))

	ev := NewEvaluator(engine, store, time.Minute, testLogger(t))
	if err := ev.Tick(ctx, now); err != nil {
		t.Fatalf("tick: %v", err)
	}
	ms, err := store.MetricsRange(ctx, "binance_spot", "BTCUSDT", now.Add(-time.Minute), now.Add(time.Minute), 0)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(ms) != 1 {
		t.Fatalf("metrics stored = %d, want 1", len(ms))
	}
	if ms[0].SpreadBps == nil {
		t.Fatalf("spread not derived")
	}
}
