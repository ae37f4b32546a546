package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/venue"
	"MarketLens/pkg/logger"

	"github.com/shopspring/decimal"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// fakeAdapter serves quotes or fails on demand.
type fakeAdapter struct {
	venue.Unsupported
	name  string
	fail  atomic.Bool
	polls atomic.Int64
}

func newFakeAdapter(name string) *fakeAdapter {
	return &fakeAdapter{Unsupported: venue.Unsupported{VenueName: name}, name: name}
}

func (f *fakeAdapter) Name() string                { return f.name }
func (f *fakeAdapter) Capabilities() []models.Kind { return []models.Kind{models.KindQuote} }
func (f *fakeAdapter) Supports(symbol string) bool { return symbol == "BTCUSDT" }

func (f *fakeAdapter) FetchQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	f.polls.Add(1)
	if f.fail.Load() {
		return nil, venue.NewError(venue.ErrNetwork, f.name, "quote", errors.New("unreachable"))
	}
	return &models.QuoteSnapshot{
		Venue: f.name, Symbol: symbol, Timestamp: time.Now().UTC(),
		Bid: decimal.NewFromInt(100), Ask: decimal.NewFromInt(101),
	}, nil
}

// countingSink counts ingested quotes per venue.
type countingSink struct {
	mu     sync.Mutex
	quotes map[string]int
}

func newCountingSink() *countingSink { return &countingSink{quotes: make(map[string]int)} }

func (s *countingSink) count(venueName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quotes[venueName]
}

func (s *countingSink) IngestQuote(_ context.Context, q *models.QuoteSnapshot) error {
	s.mu.Lock()
	s.quotes[q.Venue]++
	s.mu.Unlock()
	return nil
}
func (s *countingSink) IngestOrderBook(context.Context, *models.OrderBookSnapshot) error { return nil }
func (s *countingSink) IngestTrades(context.Context, []models.TradeRecord) error         { return nil }
func (s *countingSink) IngestDerivatives(context.Context, *models.DerivativesSnapshot) error {
	return nil
}
func (s *countingSink) IngestPositioning(context.Context, *models.PositioningSnapshot) error {
	return nil
}
func (s *countingSink) IngestLargeFlow(context.Context, *models.LargeFlowSnapshot) error { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordPoll(string, models.Kind)                   {}
func (noopMetrics) RecordPollError(string, models.Kind, string)      {}
func (noopMetrics) RecordRecordsStored(string, models.Kind, int)     {}
func (noopMetrics) RecordValidationDrop(string, models.Kind, string) {}
func (noopMetrics) RecordLastSuccess(string, models.Kind, time.Time) {}
func (noopMetrics) RecordLatency(string, float64)                    {}
func (noopMetrics) RecordBufferSize(string, string, int)             {}

func testOptions() Options {
	return Options{
		Symbols: []string{"BTCUSDT"},
		Cadences: Cadences{
			Quote: 10 * time.Millisecond, OrderBook: time.Hour, Trade: time.Hour,
			Derivatives: time.Hour, Positioning: time.Hour, LargeFlow: time.Hour,
		},
		Backoff:          BackoffConfig{Base: time.Millisecond, Cap: 5 * time.Millisecond, MaxAttempts: 3, Cooldown: time.Hour},
		DefaultRateLimit: RateLimit{Capacity: 10000, RefillPerSec: 10000},
	}
}

func TestFailureIsolation(t *testing.T) {
	healthy := newFakeAdapter("binance_perps")
	broken := newFakeAdapter("gate")
	broken.fail.Store(true)

	sink := newCountingSink()
	c := NewCoordinator([]venue.Adapter{healthy, broken}, sink, testOptions(), noopMetrics{}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	time.Sleep(300 * time.Millisecond)
	cancel()
	c.Stop()

	if got := sink.count("binance_perps"); got < 5 {
		t.Fatalf("healthy venue starved: only %d quotes ingested", got)
	}
	if got := sink.count("gate"); got != 0 {
		t.Fatalf("broken venue should not have ingested, got %d", got)
	}
}

func TestDegradedVenueReported(t *testing.T) {
	broken := newFakeAdapter("gate")
	broken.fail.Store(true)

	sink := newCountingSink()
	c := NewCoordinator([]venue.Adapter{broken}, sink, testOptions(), noopMetrics{}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	var status models.VenueStatus
	for time.Now().Before(deadline) {
		hs := c.Health()
		if len(hs) == 1 {
			status = hs[0].Status
			if status == models.VenueDegraded {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	c.Stop()

	if status != models.VenueDegraded {
		t.Fatalf("expected degraded, got %v", status)
	}
}

func TestHealthUnknownBeforeFirstSuccess(t *testing.T) {
	ad := newFakeAdapter("kucoin")
	c := NewCoordinator([]venue.Adapter{ad}, newCountingSink(), testOptions(), noopMetrics{}, testLogger(t))

	hs := c.Health()
	if len(hs) != 1 || hs[0].Status != models.VenueUnknown {
		t.Fatalf("expected unknown before first poll, got %+v", hs)
	}
}

func TestForceCollect(t *testing.T) {
	ad := newFakeAdapter("binance_perps")
	sink := newCountingSink()
	opts := testOptions()
	opts.Cadences.Quote = time.Hour // scheduled timer never fires in this test

	c := NewCoordinator([]venue.Adapter{ad}, sink, opts, noopMetrics{}, testLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	n, err := c.Force("")
	if err != nil || n != 1 {
		t.Fatalf("force: n=%d err=%v", n, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.count("binance_perps") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	c.Stop()

	if sink.count("binance_perps") == 0 {
		t.Fatalf("forced poll never ran")
	}
}

func TestForceUnknownVenue(t *testing.T) {
	ad := newFakeAdapter("binance_perps")
	c := NewCoordinator([]venue.Adapter{ad}, newCountingSink(), testOptions(), noopMetrics{}, testLogger(t))
	if _, err := c.Force("nope"); err == nil {
		t.Fatalf("expected error for unknown venue")
	}
}

func TestBackoffDelayBounds(t *testing.T) {
	b := BackoffConfig{Base: 2 * time.Second, Cap: 60 * time.Second, MaxAttempts: 5, Cooldown: time.Minute}
	for attempt := 1; attempt <= 10; attempt++ {
		d := b.delay(attempt)
		if d < time.Second || d > 90*time.Second {
			t.Fatalf("attempt %d: delay %v outside jitter bounds", attempt, d)
		}
	}
	// attempt 1 is centered on the base, not the cap
	if d := b.delay(1); d > 3*time.Second {
		t.Fatalf("attempt 1 delay %v too large", d)
	}
}

func TestLimiter(t *testing.T) {
	l := NewLimiter()
	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow("gate", 3, 0) {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("expected 3 allowed, got %d", allowed)
	}
	// other venues hold independent budgets
	if !l.Allow("kucoin", 3, 0) {
		t.Fatalf("expected independent bucket for other venue")
	}
}
