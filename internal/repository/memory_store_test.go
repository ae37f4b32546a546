package repository

import (
	"context"
	"testing"
	"time"

	"MarketLens/internal/domain/models"

	"github.com/shopspring/decimal"
)

func TestMemoryStoreIdempotentInsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	q := &models.QuoteSnapshot{
		Venue: "gate", Symbol: "BTCUSDT", Timestamp: ts,
		Bid: decimal.NewFromInt(100), Ask: decimal.NewFromInt(101),
	}
	if err := s.InsertQuote(ctx, q); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// a retried write for the same key is silently ignored
	dup := *q
	dup.Bid = decimal.NewFromInt(999)
	if err := s.InsertQuote(ctx, &dup); err != nil {
		t.Fatalf("retry insert: %v", err)
	}

	got, err := s.QuotesRange(ctx, "gate", "BTCUSDT", ts.Add(-time.Minute), ts.Add(time.Minute), 0)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row after retry, got %d", len(got))
	}
	if !got[0].Bid.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("retry overwrote original row: %v", got[0].Bid)
	}
}

func TestMemoryStoreLatestQuote(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		q := &models.QuoteSnapshot{
			Venue: "gate", Symbol: "BTCUSDT", Timestamp: base.Add(time.Duration(i) * time.Minute),
			LastPrice: decimal.NewFromInt(int64(100 + i)),
		}
		if err := s.InsertQuote(ctx, q); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := s.LatestQuote(ctx, "gate", "BTCUSDT")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || !got.LastPrice.Equal(decimal.NewFromInt(102)) {
		t.Fatalf("unexpected latest %+v", got)
	}

	none, err := s.LatestQuote(ctx, "kucoin", "BTCUSDT")
	if err != nil || none != nil {
		t.Fatalf("expected no row for other venue, got %+v err=%v", none, err)
	}
}

func TestMemoryStoreRangeOrderAndLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		tr := []models.TradeRecord{{
			Venue: "gate", Symbol: "BTCUSDT",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Price:     decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1),
			Side: models.SideBuy, TradeID: string(rune('a' + i)),
		}}
		if err := s.InsertTrades(ctx, tr); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := s.TradesRange(ctx, "gate", "BTCUSDT", base, base.Add(time.Minute), 3)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected limit 3, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatalf("expected newest-first ordering")
		}
	}
}

func TestMemoryStorePurge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	old := &models.QuoteSnapshot{Venue: "gate", Symbol: "BTCUSDT", Timestamp: cutoff.Add(-time.Hour)}
	fresh := &models.QuoteSnapshot{Venue: "gate", Symbol: "BTCUSDT", Timestamp: cutoff.Add(time.Hour)}
	_ = s.InsertQuote(ctx, old)
	_ = s.InsertQuote(ctx, fresh)

	n, err := s.Purge(ctx, models.KindQuote, cutoff)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	got, _ := s.QuotesRange(ctx, "gate", "BTCUSDT", cutoff.Add(-24*time.Hour), cutoff.Add(24*time.Hour), 0)
	if len(got) != 1 || !got[0].Timestamp.Equal(fresh.Timestamp) {
		t.Fatalf("wrong rows survived purge: %+v", got)
	}
}

func TestMemoryStoreRollupUpsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	bucket := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	v1 := 10.0
	r := models.RollupRecord{Venue: "gate", Symbol: "BTCUSDT", BucketStart: bucket, AvgSpreadBps: &v1, SampleCount: 4}
	if err := s.UpsertRollups(ctx, []models.RollupRecord{r}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// re-running the job over the same range replaces, never duplicates
	v2 := 12.0
	r.AvgSpreadBps = &v2
	r.SampleCount = 5
	if err := s.UpsertRollups(ctx, []models.RollupRecord{r}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	got, err := s.RollupsRange(ctx, "gate", "BTCUSDT", bucket.Add(-time.Hour), bucket.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 bucket row, got %d", len(got))
	}
	if *got[0].AvgSpreadBps != 12 || got[0].SampleCount != 5 {
		t.Fatalf("expected replacement, got %+v", got[0])
	}
}
