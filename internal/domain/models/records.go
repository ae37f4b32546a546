package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies a record stream. Every persisted table maps to one Kind.
type Kind string

const (
	KindQuote       Kind = "quote"
	KindOrderBook   Kind = "orderbook"
	KindTrade       Kind = "trade"
	KindDerivatives Kind = "derivatives"
	KindPositioning Kind = "positioning"
	KindLargeFlow   Kind = "largeflow"
	KindMetric      Kind = "metric"
	KindRollup      Kind = "rollup"
)

// Side is the aggressor side of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// RecordKey is the uniqueness tuple for every persisted record.
type RecordKey struct {
	Venue     string
	Symbol    string
	Kind      Kind
	Timestamp time.Time
}

// Record is implemented by every canonical market-data record.
type Record interface {
	RecordKey() RecordKey
}

// QuoteSnapshot is one normalized best bid/ask observation plus 24h stats.
// A zero decimal means the venue did not report the field.
type QuoteSnapshot struct {
	Venue        string          `json:"venue"`
	Symbol       string          `json:"symbol"`
	Timestamp    time.Time       `json:"timestamp"`
	Bid          decimal.Decimal `json:"bid"`
	Ask          decimal.Decimal `json:"ask"`
	BidSize      decimal.Decimal `json:"bid_size"`
	AskSize      decimal.Decimal `json:"ask_size"`
	LastPrice    decimal.Decimal `json:"last_price"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
	High24h      decimal.Decimal `json:"high_24h"`
	Low24h       decimal.Decimal `json:"low_24h"`
	ChangePct24h decimal.Decimal `json:"change_pct_24h"`
	// Invalid marks records that failed numeric sanity (e.g. bid > ask).
	// They are kept for audit but excluded from derived metrics.
	Invalid bool `json:"invalid,omitempty"`
}

func (q *QuoteSnapshot) RecordKey() RecordKey {
	return RecordKey{Venue: q.Venue, Symbol: q.Symbol, Kind: KindQuote, Timestamp: q.Timestamp}
}

// TwoSided reports whether both best bid and best ask are present and positive.
func (q *QuoteSnapshot) TwoSided() bool {
	return q.Bid.IsPositive() && q.Ask.IsPositive()
}

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBookSnapshot holds the top N levels per side. Bids are expected
// strictly descending by price, asks strictly ascending.
type OrderBookSnapshot struct {
	Venue     string      `json:"venue"`
	Symbol    string      `json:"symbol"`
	Timestamp time.Time   `json:"timestamp"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Invalid   bool        `json:"invalid,omitempty"`
}

func (b *OrderBookSnapshot) RecordKey() RecordKey {
	return RecordKey{Venue: b.Venue, Symbol: b.Symbol, Kind: KindOrderBook, Timestamp: b.Timestamp}
}

// BestBid returns the top bid level, if any.
func (b *OrderBookSnapshot) BestBid() (BookLevel, bool) {
	if len(b.Bids) == 0 {
		return BookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top ask level, if any.
func (b *OrderBookSnapshot) BestAsk() (BookLevel, bool) {
	if len(b.Asks) == 0 {
		return BookLevel{}, false
	}
	return b.Asks[0], true
}

// TradeRecord is one executed trade. Immutable once written.
type TradeRecord struct {
	Venue     string          `json:"venue"`
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Side      Side            `json:"side"`
	TradeID   string          `json:"trade_id"`
	Maker     bool            `json:"maker"`
}

func (t *TradeRecord) RecordKey() RecordKey {
	return RecordKey{Venue: t.Venue, Symbol: t.Symbol, Kind: KindTrade, Timestamp: t.Timestamp}
}

// DerivativesSnapshot carries perpetual/futures venue metrics.
type DerivativesSnapshot struct {
	Venue           string          `json:"venue"`
	Symbol          string          `json:"symbol"`
	Timestamp       time.Time       `json:"timestamp"`
	MarkPrice       decimal.Decimal `json:"mark_price"`
	IndexPrice      decimal.Decimal `json:"index_price"`
	FundingRate     decimal.Decimal `json:"funding_rate"`
	OpenInterest    decimal.Decimal `json:"open_interest"`
	NextFundingTime time.Time       `json:"next_funding_time"`
}

func (d *DerivativesSnapshot) RecordKey() RecordKey {
	return RecordKey{Venue: d.Venue, Symbol: d.Symbol, Kind: KindDerivatives, Timestamp: d.Timestamp}
}

// PositioningSnapshot carries long/short account and position ratios.
type PositioningSnapshot struct {
	Venue               string          `json:"venue"`
	Symbol              string          `json:"symbol"`
	Timestamp           time.Time       `json:"timestamp"`
	LongShortRatio      decimal.Decimal `json:"long_short_ratio"`
	LongAccountRatio    decimal.Decimal `json:"long_account_ratio"`
	ShortAccountRatio   decimal.Decimal `json:"short_account_ratio"`
	TopTraderLongRatio  decimal.Decimal `json:"top_trader_long_ratio"`
	TopTraderShortRatio decimal.Decimal `json:"top_trader_short_ratio"`
}

func (p *PositioningSnapshot) RecordKey() RecordKey {
	return RecordKey{Venue: p.Venue, Symbol: p.Symbol, Kind: KindPositioning, Timestamp: p.Timestamp}
}

// LargeFlowSnapshot aggregates trade volume above a size threshold over
// one evaluation window ("whale flow").
type LargeFlowSnapshot struct {
	Venue      string          `json:"venue"`
	Symbol     string          `json:"symbol"`
	Timestamp  time.Time       `json:"timestamp"`
	BuyVolume  decimal.Decimal `json:"buy_volume"`
	SellVolume decimal.Decimal `json:"sell_volume"`
	NetFlow    decimal.Decimal `json:"net_flow"`
	Threshold  decimal.Decimal `json:"threshold"`
	Window     time.Duration   `json:"window"`
}

func (f *LargeFlowSnapshot) RecordKey() RecordKey {
	return RecordKey{Venue: f.Venue, Symbol: f.Symbol, Kind: KindLargeFlow, Timestamp: f.Timestamp}
}
