package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/domain/repository"
	"MarketLens/internal/venue"
	"MarketLens/pkg/logger"
)

// Sink receives polled records; the ingest usecase implements it with
// the Validator → Store/Engine/Firehose pipeline behind it.
type Sink interface {
	IngestQuote(ctx context.Context, q *models.QuoteSnapshot) error
	IngestOrderBook(ctx context.Context, b *models.OrderBookSnapshot) error
	IngestTrades(ctx context.Context, trades []models.TradeRecord) error
	IngestDerivatives(ctx context.Context, d *models.DerivativesSnapshot) error
	IngestPositioning(ctx context.Context, p *models.PositioningSnapshot) error
	IngestLargeFlow(ctx context.Context, f *models.LargeFlowSnapshot) error
}

// Cadences holds one polling interval per data kind. A zero interval
// disables that kind entirely.
type Cadences struct {
	Quote       time.Duration `yaml:"quote"`
	OrderBook   time.Duration `yaml:"orderbook"`
	Trade       time.Duration `yaml:"trade"`
	Derivatives time.Duration `yaml:"derivatives"`
	Positioning time.Duration `yaml:"positioning"`
	LargeFlow   time.Duration `yaml:"largeflow"`
}

func (c *Cadences) applyDefaults() {
	if c.Quote <= 0 {
		c.Quote = 30 * time.Second
	}
	if c.OrderBook <= 0 {
		c.OrderBook = 60 * time.Second
	}
	if c.Trade <= 0 {
		c.Trade = 60 * time.Second
	}
	if c.Derivatives <= 0 {
		c.Derivatives = 60 * time.Second
	}
	if c.Positioning <= 0 {
		c.Positioning = 15 * time.Minute
	}
	if c.LargeFlow <= 0 {
		c.LargeFlow = 2 * time.Minute
	}
}

func (c Cadences) forKind(kind models.Kind) time.Duration {
	switch kind {
	case models.KindQuote:
		return c.Quote
	case models.KindOrderBook:
		return c.OrderBook
	case models.KindTrade:
		return c.Trade
	case models.KindDerivatives:
		return c.Derivatives
	case models.KindPositioning:
		return c.Positioning
	case models.KindLargeFlow:
		return c.LargeFlow
	default:
		return 0
	}
}

// RateLimit is one venue's token-bucket budget.
type RateLimit struct {
	Capacity     float64 `yaml:"capacity"`
	RefillPerSec float64 `yaml:"refill_per_sec"`
}

// Options configures the coordinator.
type Options struct {
	Symbols          []string
	Cadences         Cadences
	Backoff          BackoffConfig
	RateLimits       map[string]RateLimit
	DefaultRateLimit RateLimit
	OrderBookDepth   int
	TradeBatch       int
}

func (o *Options) applyDefaults() {
	o.Cadences.applyDefaults()
	o.Backoff.applyDefaults()
	if o.DefaultRateLimit.Capacity <= 0 {
		o.DefaultRateLimit = RateLimit{Capacity: 10, RefillPerSec: 2}
	}
	if o.OrderBookDepth <= 0 {
		o.OrderBookDepth = 100
	}
	if o.TradeBatch <= 0 {
		o.TradeBatch = 100
	}
}

// Coordinator runs one independent polling task per (venue, kind) pair.
// Tasks advance their own timers; a venue being unreachable never delays
// any other venue's schedule.
type Coordinator struct {
	opts    Options
	sink    Sink
	limiter *Limiter
	metrics repository.Metrics
	log     *logger.Logger

	tasks   []*task
	byVenue map[string][]*task

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCoordinator(adapters []venue.Adapter, sink Sink, opts Options, metrics repository.Metrics, log *logger.Logger) *Coordinator {
	opts.applyDefaults()
	c := &Coordinator{
		opts:    opts,
		sink:    sink,
		limiter: NewLimiter(),
		metrics: metrics,
		log:     log,
		byVenue: make(map[string][]*task),
	}
	for _, ad := range adapters {
		for _, kind := range ad.Capabilities() {
			interval := opts.Cadences.forKind(kind)
			if interval <= 0 {
				continue
			}
			t := newTask(ad.Name(), kind, interval, opts.Backoff, log, c.pollFunc(ad, kind))
			c.tasks = append(c.tasks, t)
			c.byVenue[ad.Name()] = append(c.byVenue[ad.Name()], t)
		}
	}
	return c
}

// Start launches every task goroutine. Stop (or ctx cancellation) ends
// them.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	for _, t := range c.tasks {
		c.wg.Add(1)
		go func(t *task) {
			defer c.wg.Done()
			t.run(ctx)
		}(t)
	}
	c.log.Info("coordinator started", logger.Int("tasks", len(c.tasks)))
}

func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// Force enqueues one immediate poll cycle for every task in scope
// without altering scheduled timers. An empty venue means all venues.
// It returns the number of tasks triggered.
func (c *Coordinator) Force(venueName string) (int, error) {
	if venueName == "" {
		for _, t := range c.tasks {
			t.requestForce()
		}
		return len(c.tasks), nil
	}
	ts, ok := c.byVenue[venueName]
	if !ok {
		return 0, fmt.Errorf("unknown venue %q", venueName)
	}
	for _, t := range ts {
		t.requestForce()
	}
	return len(ts), nil
}

// Health reports per-venue adapter status: Degraded if any task of the
// venue is degraded, Unknown before the first successful poll, Healthy
// otherwise.
func (c *Coordinator) Health() []models.VenueHealth {
	names := make([]string, 0, len(c.byVenue))
	for name := range c.byVenue {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.VenueHealth, 0, len(names))
	for _, name := range names {
		h := models.VenueHealth{Venue: name, Status: models.VenueUnknown}
		degraded := false
		for _, t := range c.byVenue[name] {
			state, last, failures := t.snapshot()
			if state == StateDegraded {
				degraded = true
			}
			if last.After(h.LastSuccess) {
				h.LastSuccess = last
			}
			h.FailureCount += failures
		}
		switch {
		case degraded:
			h.Status = models.VenueDegraded
		case !h.LastSuccess.IsZero():
			h.Status = models.VenueHealthy
		}
		out = append(out, h)
	}
	return out
}

func (c *Coordinator) rateFor(venueName string) RateLimit {
	if rl, ok := c.opts.RateLimits[venueName]; ok && rl.Capacity > 0 {
		return rl
	}
	return c.opts.DefaultRateLimit
}

// allow consumes one token of the venue's budget; a denied call skips
// the symbol until the next tick rather than erroring.
func (c *Coordinator) allow(venueName string) bool {
	rl := c.rateFor(venueName)
	return c.limiter.Allow(venueName, rl.Capacity, rl.RefillPerSec)
}

func (c *Coordinator) pollFunc(ad venue.Adapter, kind models.Kind) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var firstErr error
		for _, sym := range c.opts.Symbols {
			if !ad.Supports(sym) {
				continue
			}
			if !c.allow(ad.Name()) {
				c.log.Debug("rate budget exhausted, skipping",
					logger.String("venue", ad.Name()),
					logger.String("kind", string(kind)))
				continue
			}
			if err := c.pollOne(ctx, ad, kind, sym); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
}

func (c *Coordinator) pollOne(ctx context.Context, ad venue.Adapter, kind models.Kind, symbol string) error {
	c.metrics.RecordPoll(ad.Name(), kind)
	start := time.Now()

	var err error
	switch kind {
	case models.KindQuote:
		var q *models.QuoteSnapshot
		if q, err = ad.FetchQuote(ctx, symbol); err == nil {
			err = c.sink.IngestQuote(ctx, q)
		}
	case models.KindOrderBook:
		var b *models.OrderBookSnapshot
		if b, err = ad.FetchOrderBook(ctx, symbol, c.opts.OrderBookDepth); err == nil {
			err = c.sink.IngestOrderBook(ctx, b)
		}
	case models.KindTrade:
		var trades []models.TradeRecord
		if trades, err = ad.FetchTrades(ctx, symbol, c.opts.TradeBatch); err == nil {
			err = c.sink.IngestTrades(ctx, trades)
		}
	case models.KindDerivatives:
		var d *models.DerivativesSnapshot
		if d, err = ad.FetchDerivatives(ctx, symbol); err == nil {
			err = c.sink.IngestDerivatives(ctx, d)
		}
	case models.KindPositioning:
		var p *models.PositioningSnapshot
		if p, err = ad.FetchPositioning(ctx, symbol); err == nil {
			err = c.sink.IngestPositioning(ctx, p)
		}
	case models.KindLargeFlow:
		var f *models.LargeFlowSnapshot
		if f, err = ad.FetchLargeFlow(ctx, symbol); err == nil {
			err = c.sink.IngestLargeFlow(ctx, f)
		}
	}
	c.metrics.RecordLatency(string(kind), time.Since(start).Seconds())

	if err != nil {
		c.metrics.RecordPollError(ad.Name(), kind, string(venue.KindOf(err)))
		return err
	}
	c.metrics.RecordLastSuccess(ad.Name(), kind, time.Now().UTC())
	return nil
}
