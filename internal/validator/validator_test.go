package validator

import (
	"testing"
	"time"

	"MarketLens/internal/domain/models"

	"github.com/shopspring/decimal"
)

func quoteAt(ts time.Time, bid, ask string) *models.QuoteSnapshot {
	return &models.QuoteSnapshot{
		Venue:     "binance_perps",
		Symbol:    "BTCUSDT",
		Timestamp: ts,
		Bid:       decimal.RequireFromString(bid),
		Ask:       decimal.RequireFromString(ask),
	}
}

func TestQuoteCrossedFlaggedNotDropped(t *testing.T) {
	v := New()
	q := quoteAt(time.Now(), "101", "100")
	if got := v.Quote(q); got != Accepted {
		t.Fatalf("expected accepted, got %v", got)
	}
	if !q.Invalid {
		t.Fatalf("expected crossed quote flagged invalid")
	}
}

func TestQuoteValidNotFlagged(t *testing.T) {
	v := New()
	q := quoteAt(time.Now(), "100", "101")
	if got := v.Quote(q); got != Accepted {
		t.Fatalf("expected accepted, got %v", got)
	}
	if q.Invalid {
		t.Fatalf("did not expect invalid flag")
	}
}

func TestQuoteMissingFieldsRejected(t *testing.T) {
	v := New()
	q := quoteAt(time.Now(), "100", "101")
	q.Symbol = ""
	if got := v.Quote(q); got != Rejected {
		t.Fatalf("expected rejected, got %v", got)
	}
}

func TestMonotonicTimestampPerStream(t *testing.T) {
	v := New()
	t0 := time.Now()

	if got := v.Quote(quoteAt(t0, "100", "101")); got != Accepted {
		t.Fatalf("first quote: %v", got)
	}
	if got := v.Quote(quoteAt(t0, "100", "101")); got != Duplicate {
		t.Fatalf("equal timestamp should be duplicate, got %v", got)
	}
	if got := v.Quote(quoteAt(t0.Add(-time.Second), "100", "101")); got != Duplicate {
		t.Fatalf("older timestamp should be duplicate, got %v", got)
	}
	if got := v.Quote(quoteAt(t0.Add(time.Second), "100", "101")); got != Accepted {
		t.Fatalf("newer timestamp should pass, got %v", got)
	}

	// other kinds and venues keep independent high-water marks
	ob := &models.OrderBookSnapshot{
		Venue: "binance_perps", Symbol: "BTCUSDT", Timestamp: t0,
		Bids: []models.BookLevel{{Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1)}},
	}
	if got := v.OrderBook(ob); got != Accepted {
		t.Fatalf("orderbook stream should be independent, got %v", got)
	}
	q2 := quoteAt(t0, "100", "101")
	q2.Venue = "gate"
	if got := v.Quote(q2); got != Accepted {
		t.Fatalf("other venue should be independent, got %v", got)
	}
}

func TestOrderBookMisSortedFlagged(t *testing.T) {
	v := New()
	ob := &models.OrderBookSnapshot{
		Venue: "gate", Symbol: "BTCUSDT", Timestamp: time.Now(),
		Bids: []models.BookLevel{
			{Price: decimal.NewFromInt(99), Size: decimal.NewFromInt(1)},
			{Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1)},
		},
		Asks: []models.BookLevel{
			{Price: decimal.NewFromInt(101), Size: decimal.NewFromInt(1)},
		},
	}
	if got := v.OrderBook(ob); got != Accepted {
		t.Fatalf("expected accepted, got %v", got)
	}
	if !ob.Invalid {
		t.Fatalf("expected mis-sorted bids flagged invalid")
	}
}

func TestOrderBookEmptyRejected(t *testing.T) {
	v := New()
	ob := &models.OrderBookSnapshot{Venue: "gate", Symbol: "BTCUSDT", Timestamp: time.Now()}
	if got := v.OrderBook(ob); got != Rejected {
		t.Fatalf("expected rejected, got %v", got)
	}
}

func TestTradesFilter(t *testing.T) {
	v := New()
	t0 := time.Now()
	trades := []models.TradeRecord{
		{Venue: "gate", Symbol: "BTCUSDT", Timestamp: t0, Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), Side: models.SideBuy, TradeID: "1"},
		{Venue: "gate", Symbol: "BTCUSDT", Timestamp: t0.Add(time.Second), Price: decimal.Zero, Quantity: decimal.NewFromInt(1), Side: models.SideBuy, TradeID: "2"},
		{Venue: "gate", Symbol: "BTCUSDT", Timestamp: t0.Add(2 * time.Second), Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), Side: "weird", TradeID: "3"},
		{Venue: "gate", Symbol: "BTCUSDT", Timestamp: t0.Add(3 * time.Second), Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(2), Side: models.SideSell, TradeID: "4"},
	}
	accepted, dropped := v.Trades(trades)
	if len(accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d", len(accepted))
	}
	if dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", dropped)
	}
	if accepted[0].TradeID != "1" || accepted[1].TradeID != "4" {
		t.Fatalf("unexpected accepted ids %s/%s", accepted[0].TradeID, accepted[1].TradeID)
	}

	// re-polling the same batch yields nothing new and no drop counts for
	// the already-seen entries filtered by timestamp
	again, _ := v.Trades(trades[:1])
	if len(again) != 0 {
		t.Fatalf("expected duplicate poll filtered, got %d", len(again))
	}
}
