package analytics

import (
	"sort"
	"sync"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/domain/repository"
)

// Config carries the tunables of the metrics engine. Weights and round
// increments are configuration rather than constants; sources disagree
// on the exact values.
type Config struct {
	Lookback              time.Duration
	DepthBands            []float64
	Weights               Weights
	RoundIncrements       []float64
	LargeFlowThreshold    float64
	ExpectedQuoteInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.Lookback <= 0 {
		c.Lookback = 15 * time.Minute
	}
	if len(c.DepthBands) == 0 {
		c.DepthBands = []float64{0.01, 0.02, 0.04, 0.08}
	}
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights
	}
	if len(c.RoundIncrements) == 0 {
		c.RoundIncrements = []float64{10, 100}
	}
	if c.ExpectedQuoteInterval <= 0 {
		c.ExpectedQuoteInterval = 30 * time.Second
	}
}

// Engine owns one rolling buffer per (venue, symbol) and derives one
// metric record per buffer per evaluation tick. Missing inputs yield
// null metric fields, never an error.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	buffers map[bufKey]*buffer

	metrics repository.Metrics
}

func NewEngine(cfg Config, metrics repository.Metrics) *Engine {
	cfg.applyDefaults()
	return &Engine{cfg: cfg, buffers: make(map[bufKey]*buffer), metrics: metrics}
}

func (e *Engine) buf(venue, symbol string) *buffer {
	k := bufKey{venue, symbol}
	b, ok := e.buffers[k]
	if !ok {
		b = &buffer{}
		e.buffers[k] = b
	}
	return b
}

func (e *Engine) AddQuote(q *models.QuoteSnapshot) {
	e.mu.Lock()
	b := e.buf(q.Venue, q.Symbol)
	b.quotes = append(b.quotes, *q)
	n := b.size()
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.RecordBufferSize(q.Venue, q.Symbol, n)
	}
}

func (e *Engine) AddOrderBook(s *models.OrderBookSnapshot) {
	e.mu.Lock()
	b := e.buf(s.Venue, s.Symbol)
	b.books = append(b.books, *s)
	n := b.size()
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.RecordBufferSize(s.Venue, s.Symbol, n)
	}
}

func (e *Engine) AddTrades(trades []models.TradeRecord) {
	if len(trades) == 0 {
		return
	}
	e.mu.Lock()
	for _, t := range trades {
		b := e.buf(t.Venue, t.Symbol)
		b.trades = append(b.trades, t)
	}
	e.mu.Unlock()
}

func (e *Engine) AddLargeFlow(f *models.LargeFlowSnapshot) {
	e.mu.Lock()
	b := e.buf(f.Venue, f.Symbol)
	b.flows = append(b.flows, *f)
	e.mu.Unlock()
}

// Evaluate evicts entries older than the lookback and emits one metric
// record per populated buffer, stamped with the tick time.
func (e *Engine) Evaluate(now time.Time) []models.MetricRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := now.Add(-e.cfg.Lookback)
	keys := make([]bufKey, 0, len(e.buffers))
	for k := range e.buffers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].venue != keys[j].venue {
			return keys[i].venue < keys[j].venue
		}
		return keys[i].symbol < keys[j].symbol
	})

	out := make([]models.MetricRecord, 0, len(keys))
	for _, k := range keys {
		b := e.buffers[k]
		b.evict(cutoff)
		if b.size() == 0 {
			continue
		}
		out = append(out, e.compute(k, b, now))
	}
	return out
}

func (e *Engine) compute(k bufKey, b *buffer, now time.Time) models.MetricRecord {
	m := models.MetricRecord{Venue: k.venue, Symbol: k.symbol, WindowEnd: now.UTC()}

	spreads := validSpreads(b.quotes)
	if len(spreads) > 0 {
		last := spreads[len(spreads)-1]
		m.SpreadBps = &last
	}

	if book := latestValidBook(b.books); book != nil {
		m.Depth = bandDepths(book, e.cfg.DepthBands)
		if imb, ok := bookImbalance(book); ok {
			m.Imbalance = &imb
		}
	}

	m.QuoteCount = len(b.quotes)
	expected := expectedTicks(e.cfg.Lookback, e.cfg.ExpectedQuoteInterval)
	m.UptimePct = uptimePct(b.quotes, expected)

	if score, ok := e.mmScore(b, spreads, expected); ok {
		m.MMScore = &score
	}

	if net, ok := largeFlowNet(b, e.cfg.LargeFlowThreshold); ok {
		m.LargeFlowNet = &net
	}
	return m
}

// validSpreads lists spreads in bps for two-sided, non-flagged quotes,
// in buffer order.
func validSpreads(quotes []models.QuoteSnapshot) []float64 {
	out := make([]float64, 0, len(quotes))
	for _, q := range quotes {
		if q.Invalid || !q.TwoSided() {
			continue
		}
		bid := q.Bid.InexactFloat64()
		ask := q.Ask.InexactFloat64()
		if bid <= 0 {
			continue
		}
		out = append(out, (ask-bid)/bid*10000)
	}
	return out
}

func latestValidBook(books []models.OrderBookSnapshot) *models.OrderBookSnapshot {
	for i := len(books) - 1; i >= 0; i-- {
		if !books[i].Invalid {
			return &books[i]
		}
	}
	return nil
}

// bandDepths computes cumulative size per side within each percentage
// band around the mid price. Bands with no computable mid yield nil
// depths.
func bandDepths(book *models.OrderBookSnapshot, bands []float64) []models.BandDepth {
	out := make([]models.BandDepth, 0, len(bands))
	mid, ok := midPrice(book)
	for _, p := range bands {
		bd := models.BandDepth{Pct: p}
		if ok {
			bid := 0.0
			for _, l := range book.Bids {
				if l.Price.InexactFloat64() >= mid*(1-p) {
					bid += l.Size.InexactFloat64()
				}
			}
			ask := 0.0
			for _, l := range book.Asks {
				if l.Price.InexactFloat64() <= mid*(1+p) {
					ask += l.Size.InexactFloat64()
				}
			}
			bd.Bid = &bid
			bd.Ask = &ask
		}
		out = append(out, bd)
	}
	return out
}

func midPrice(book *models.OrderBookSnapshot) (float64, bool) {
	bb, okB := book.BestBid()
	ba, okA := book.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	bid := bb.Price.InexactFloat64()
	ask := ba.Price.InexactFloat64()
	if bid <= 0 || ask <= 0 {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// bookImbalance is (bidDepth-askDepth)/(bidDepth+askDepth) over all
// levels of the snapshot, in [-1, 1].
func bookImbalance(book *models.OrderBookSnapshot) (float64, bool) {
	bid, ask := 0.0, 0.0
	for _, l := range book.Bids {
		bid += l.Size.InexactFloat64()
	}
	for _, l := range book.Asks {
		ask += l.Size.InexactFloat64()
	}
	if bid+ask == 0 {
		return 0, false
	}
	return (bid - ask) / (bid + ask), true
}

func expectedTicks(lookback, interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	n := int(lookback / interval)
	if n < 1 {
		n = 1
	}
	return n
}

// uptimePct is the fraction of expected polling ticks covered by a valid
// two-sided quote, capped at 100.
func uptimePct(quotes []models.QuoteSnapshot, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	observed := 0
	for _, q := range quotes {
		if !q.Invalid && q.TwoSided() {
			observed++
		}
	}
	pct := float64(observed) / float64(expected) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// largeFlowNet prefers a venue-reported flow snapshot; otherwise it sums
// trade notionals above the threshold, buys minus sells.
func largeFlowNet(b *buffer, threshold float64) (float64, bool) {
	if n := len(b.flows); n > 0 {
		return b.flows[n-1].NetFlow.InexactFloat64(), true
	}
	if len(b.trades) == 0 {
		return 0, false
	}
	net := 0.0
	seen := false
	for _, t := range b.trades {
		notional := t.Price.InexactFloat64() * t.Quantity.InexactFloat64()
		if notional <= threshold {
			continue
		}
		seen = true
		if t.Side == models.SideBuy {
			net += notional
		} else {
			net -= notional
		}
	}
	if !seen {
		return 0, false
	}
	return net, true
}
