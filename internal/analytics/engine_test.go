package analytics

import (
	"testing"
	"time"

	"MarketLens/internal/domain/models"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quote(ts time.Time, bid, ask string) *models.QuoteSnapshot {
	return &models.QuoteSnapshot{
		Venue: "binance_perps", Symbol: "BTCUSDT", Timestamp: ts,
		Bid: dec(bid), Ask: dec(ask),
	}
}

func book(ts time.Time, bids, asks [][2]string) *models.OrderBookSnapshot {
	ob := &models.OrderBookSnapshot{Venue: "binance_perps", Symbol: "BTCUSDT", Timestamp: ts}
	for _, l := range bids {
		ob.Bids = append(ob.Bids, models.BookLevel{Price: dec(l[0]), Size: dec(l[1])})
	}
	for _, l := range asks {
		ob.Asks = append(ob.Asks, models.BookLevel{Price: dec(l[0]), Size: dec(l[1])})
	}
	return ob
}

func TestSpreadBps(t *testing.T) {
	e := NewEngine(Config{}, nil)
	now := time.Now()
	e.AddQuote(quote(now, "100", "101"))

	ms := e.Evaluate(now)
	if len(ms) != 1 {
		t.Fatalf("expected 1 metric record, got %d", len(ms))
	}
	if ms[0].SpreadBps == nil {
		t.Fatalf("expected spread")
	}
	// (101-100)/100*10000 = 100 bps
	if got := *ms[0].SpreadBps; got < 99.99 || got > 100.01 {
		t.Fatalf("unexpected spread %v", got)
	}
}

func TestSpreadNullWhenOneSided(t *testing.T) {
	e := NewEngine(Config{}, nil)
	now := time.Now()
	e.AddQuote(quote(now, "100", "0"))

	ms := e.Evaluate(now)
	if len(ms) != 1 {
		t.Fatalf("expected 1 metric record, got %d", len(ms))
	}
	if ms[0].SpreadBps != nil {
		t.Fatalf("expected null spread for one-sided quote")
	}
}

func TestInvalidQuoteExcluded(t *testing.T) {
	e := NewEngine(Config{}, nil)
	now := time.Now()
	q := quote(now, "102", "100")
	q.Invalid = true
	e.AddQuote(q)

	ms := e.Evaluate(now)
	if ms[0].SpreadBps != nil {
		t.Fatalf("invalid quote must not produce a spread")
	}
	if ms[0].UptimePct != 0 {
		t.Fatalf("invalid quote must not count toward uptime, got %v", ms[0].UptimePct)
	}
}

func TestLookbackEviction(t *testing.T) {
	e := NewEngine(Config{Lookback: 15 * time.Minute}, nil)
	now := time.Now()
	e.AddQuote(quote(now.Add(-20*time.Minute), "100", "101"))
	e.AddQuote(quote(now.Add(-5*time.Minute), "200", "201"))

	ms := e.Evaluate(now)
	if len(ms) != 1 {
		t.Fatalf("expected 1 metric record, got %d", len(ms))
	}
	if ms[0].QuoteCount != 1 {
		t.Fatalf("expected stale quote evicted, count %d", ms[0].QuoteCount)
	}
	// (201-200)/200*10000 = 50 bps, the surviving quote
	if got := *ms[0].SpreadBps; got < 49.99 || got > 50.01 {
		t.Fatalf("unexpected spread %v", got)
	}
}

func TestDepthBandsAndImbalance(t *testing.T) {
	e := NewEngine(Config{DepthBands: []float64{0.01, 0.08}}, nil)
	now := time.Now()
	// mid = 100; 1% band covers [99,101], 8% covers [92,108]
	e.AddOrderBook(book(now,
		[][2]string{{"99.5", "2"}, {"95", "4"}},
		[][2]string{{"100.5", "1"}, {"107", "3"}},
	))

	ms := e.Evaluate(now)
	if len(ms) != 1 || len(ms[0].Depth) != 2 {
		t.Fatalf("unexpected metrics %+v", ms)
	}
	d1 := ms[0].Depth[0]
	if *d1.Bid != 2 || *d1.Ask != 1 {
		t.Fatalf("1%% band: got bid %v ask %v", *d1.Bid, *d1.Ask)
	}
	d8 := ms[0].Depth[1]
	if *d8.Bid != 6 || *d8.Ask != 4 {
		t.Fatalf("8%% band: got bid %v ask %v", *d8.Bid, *d8.Ask)
	}
	// full-book imbalance: (6-4)/(6+4) = 0.2
	if imb := *ms[0].Imbalance; imb < 0.199 || imb > 0.201 {
		t.Fatalf("unexpected imbalance %v", imb)
	}
}

func TestSpreadBpsTightQuote(t *testing.T) {
	e := NewEngine(Config{}, nil)
	now := time.Now()
	e.AddQuote(quote(now, "64999", "65001"))

	ms := e.Evaluate(now)
	if len(ms) != 1 || ms[0].SpreadBps == nil {
		t.Fatalf("expected spread, got %+v", ms)
	}
	// (65001-64999)/64999*10000 = 0.30770 bps
	if got := *ms[0].SpreadBps; got < 0.3076 || got > 0.3078 {
		t.Fatalf("unexpected spread %v", got)
	}
}

func TestDepthBandBalancedBook(t *testing.T) {
	e := NewEngine(Config{DepthBands: []float64{0.01}}, nil)
	now := time.Now()
	// mid = 100.5; 1% band covers [99.495, 101.505]
	e.AddOrderBook(book(now,
		[][2]string{{"100", "2"}, {"99", "5"}},
		[][2]string{{"101", "3"}, {"102", "4"}},
	))

	ms := e.Evaluate(now)
	if len(ms) != 1 || len(ms[0].Depth) != 1 {
		t.Fatalf("unexpected metrics %+v", ms)
	}
	d := ms[0].Depth[0]
	if *d.Bid != 2 || *d.Ask != 3 {
		t.Fatalf("1%% band: got bid %v ask %v", *d.Bid, *d.Ask)
	}
	// Imbalance spans the whole book, not the band: (7-7)/(7+7) = 0.
	// A band-limited reading of this book would give (2-3)/(2+3) = -0.2.
	if imb := *ms[0].Imbalance; imb < -0.001 || imb > 0.001 {
		t.Fatalf("unexpected imbalance %v", imb)
	}
}

func TestMMScoreBounds(t *testing.T) {
	e := NewEngine(Config{ExpectedQuoteInterval: 30 * time.Second}, nil)
	now := time.Now()
	for i := 0; i < 10; i++ {
		e.AddQuote(quote(now.Add(time.Duration(-i)*time.Minute), "100", "100.1"))
	}
	e.AddOrderBook(book(now,
		[][2]string{{"100", "5"}, {"90", "5"}},
		[][2]string{{"100.1", "5"}, {"110", "5"}},
	))

	ms := e.Evaluate(now)
	if ms[0].MMScore == nil {
		t.Fatalf("expected a score with quotes and a book present")
	}
	if s := *ms[0].MMScore; s < 0 || s > 100 {
		t.Fatalf("score out of range: %v", s)
	}
}

func TestMMScoreNullWithoutBook(t *testing.T) {
	e := NewEngine(Config{}, nil)
	now := time.Now()
	e.AddQuote(quote(now, "100", "101"))

	ms := e.Evaluate(now)
	if ms[0].MMScore != nil {
		t.Fatalf("expected null score without an order book")
	}
}

func TestLargeFlowFromTrades(t *testing.T) {
	e := NewEngine(Config{LargeFlowThreshold: 1000}, nil)
	now := time.Now()
	e.AddTrades([]models.TradeRecord{
		// notional 5000 buy, above threshold
		{Venue: "binance_perps", Symbol: "BTCUSDT", Timestamp: now, Price: dec("100"), Quantity: dec("50"), Side: models.SideBuy},
		// notional 2000 sell, above threshold
		{Venue: "binance_perps", Symbol: "BTCUSDT", Timestamp: now, Price: dec("100"), Quantity: dec("20"), Side: models.SideSell},
		// notional 500, below threshold, ignored
		{Venue: "binance_perps", Symbol: "BTCUSDT", Timestamp: now, Price: dec("100"), Quantity: dec("5"), Side: models.SideSell},
	})

	ms := e.Evaluate(now)
	if ms[0].LargeFlowNet == nil {
		t.Fatalf("expected a net flow")
	}
	if net := *ms[0].LargeFlowNet; net != 3000 {
		t.Fatalf("unexpected net flow %v", net)
	}
}

func TestLargeFlowPrefersVenueSnapshot(t *testing.T) {
	e := NewEngine(Config{}, nil)
	now := time.Now()
	e.AddLargeFlow(&models.LargeFlowSnapshot{
		Venue: "bitget", Symbol: "BTCUSDT", Timestamp: now, NetFlow: dec("-1234.5"),
	})

	ms := e.Evaluate(now)
	if ms[0].LargeFlowNet == nil || *ms[0].LargeFlowNet != -1234.5 {
		t.Fatalf("unexpected net flow %+v", ms[0].LargeFlowNet)
	}
}

func TestRoundNumberScore(t *testing.T) {
	books := []models.OrderBookSnapshot{*book(time.Now(),
		[][2]string{{"100", "1"}, {"99.5", "1"}},
		[][2]string{{"110", "1"}, {"100.7", "1"}},
	)}
	// 100 and 110 are round at increment 10 → 2 of 4 levels
	got := roundNumberScore(books, []float64{10, 100})
	if got < 0.499 || got > 0.501 {
		t.Fatalf("unexpected round score %v", got)
	}
}
