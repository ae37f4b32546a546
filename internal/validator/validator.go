package validator

import (
	"sync"
	"time"

	"MarketLens/internal/domain/models"
)

// Result is the validation outcome for a single record.
type Result int

const (
	// Accepted records proceed to storage and the metrics engine.
	Accepted Result = iota
	// Duplicate records (timestamp not strictly greater than the last
	// accepted one for the same stream) are silently skipped.
	Duplicate
	// Rejected records are structurally unusable and are dropped.
	Rejected
)

type streamKey struct {
	venue  string
	symbol string
	kind   models.Kind
}

// Validator applies structural and numeric checks and enforces strictly
// increasing timestamps per (venue, symbol, kind) stream. Quote and order
// book records that fail only numeric sanity are flagged invalid rather
// than dropped, so they remain available for audit.
type Validator struct {
	mu   sync.Mutex
	last map[streamKey]time.Time
}

func New() *Validator {
	return &Validator{last: make(map[streamKey]time.Time)}
}

// admit checks the monotonic-timestamp rule and records the new high-water
// mark when the record is accepted.
func (v *Validator) admit(key streamKey, ts time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if prev, ok := v.last[key]; ok && !ts.After(prev) {
		return false
	}
	v.last[key] = ts
	return true
}

// Quote validates a quote snapshot in place. A bid above the ask, or a
// negative price or size, flags the record invalid; it is still stored but
// excluded from spread and MM calculations downstream.
func (v *Validator) Quote(q *models.QuoteSnapshot) Result {
	if q == nil || q.Venue == "" || q.Symbol == "" || q.Timestamp.IsZero() {
		return Rejected
	}
	if q.Bid.IsNegative() || q.Ask.IsNegative() || q.BidSize.IsNegative() || q.AskSize.IsNegative() {
		q.Invalid = true
	}
	if q.Bid.IsPositive() && q.Ask.IsPositive() && q.Bid.GreaterThan(q.Ask) {
		q.Invalid = true
	}
	if !v.admit(streamKey{q.Venue, q.Symbol, models.KindQuote}, q.Timestamp) {
		return Duplicate
	}
	return Accepted
}

// OrderBook validates level ordering and sizes. Mis-sorted levels or
// negative sizes flag the snapshot invalid; an empty book is rejected.
func (v *Validator) OrderBook(b *models.OrderBookSnapshot) Result {
	if b == nil || b.Venue == "" || b.Symbol == "" || b.Timestamp.IsZero() {
		return Rejected
	}
	if len(b.Bids) == 0 && len(b.Asks) == 0 {
		return Rejected
	}
	if !levelsSorted(b.Bids, true) || !levelsSorted(b.Asks, false) {
		b.Invalid = true
	}
	if bb, ok := b.BestBid(); ok {
		if ba, ok := b.BestAsk(); ok && bb.Price.GreaterThan(ba.Price) {
			b.Invalid = true
		}
	}
	if !v.admit(streamKey{b.Venue, b.Symbol, models.KindOrderBook}, b.Timestamp) {
		return Duplicate
	}
	return Accepted
}

func levelsSorted(levels []models.BookLevel, descending bool) bool {
	for i, l := range levels {
		if !l.Price.IsPositive() || l.Size.IsNegative() {
			return false
		}
		if i == 0 {
			continue
		}
		if descending && !levels[i-1].Price.GreaterThan(l.Price) {
			return false
		}
		if !descending && !levels[i-1].Price.LessThan(l.Price) {
			return false
		}
	}
	return true
}

// Trades filters a polled batch: trades with non-positive price or
// quantity or an unknown side are dropped, and the monotonic rule skips
// entries already seen in a previous poll of the same stream. The
// returned slice preserves input order.
func (v *Validator) Trades(trades []models.TradeRecord) (accepted []models.TradeRecord, dropped int) {
	accepted = make([]models.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.Venue == "" || t.Symbol == "" || t.Timestamp.IsZero() {
			dropped++
			continue
		}
		if !t.Price.IsPositive() || !t.Quantity.IsPositive() {
			dropped++
			continue
		}
		if t.Side != models.SideBuy && t.Side != models.SideSell {
			dropped++
			continue
		}
		if !v.admit(streamKey{t.Venue, t.Symbol, models.KindTrade}, t.Timestamp) {
			continue
		}
		accepted = append(accepted, t)
	}
	return accepted, dropped
}

// Derivatives checks required fields and the monotonic rule.
func (v *Validator) Derivatives(d *models.DerivativesSnapshot) Result {
	if d == nil || d.Venue == "" || d.Symbol == "" || d.Timestamp.IsZero() {
		return Rejected
	}
	if d.MarkPrice.IsNegative() || d.OpenInterest.IsNegative() {
		return Rejected
	}
	if !v.admit(streamKey{d.Venue, d.Symbol, models.KindDerivatives}, d.Timestamp) {
		return Duplicate
	}
	return Accepted
}

// Positioning checks required fields and the monotonic rule.
func (v *Validator) Positioning(p *models.PositioningSnapshot) Result {
	if p == nil || p.Venue == "" || p.Symbol == "" || p.Timestamp.IsZero() {
		return Rejected
	}
	if p.LongShortRatio.IsNegative() {
		return Rejected
	}
	if !v.admit(streamKey{p.Venue, p.Symbol, models.KindPositioning}, p.Timestamp) {
		return Duplicate
	}
	return Accepted
}

// LargeFlow checks required fields and the monotonic rule. Buy and sell
// volumes must be non-negative; net flow may be either sign.
func (v *Validator) LargeFlow(f *models.LargeFlowSnapshot) Result {
	if f == nil || f.Venue == "" || f.Symbol == "" || f.Timestamp.IsZero() {
		return Rejected
	}
	if f.BuyVolume.IsNegative() || f.SellVolume.IsNegative() {
		return Rejected
	}
	if !v.admit(streamKey{f.Venue, f.Symbol, models.KindLargeFlow}, f.Timestamp) {
		return Duplicate
	}
	return Accepted
}
