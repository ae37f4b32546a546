package venue

import (
	"context"
	"time"

	"MarketLens/internal/domain/models"

	"github.com/shopspring/decimal"
)

// Adapter is a stateless per-venue client. Each fetch performs one outbound
// call and returns a normalized record or a classified *Error; adapters hold
// no cross-call state beyond connection reuse.
type Adapter interface {
	Name() string
	// Capabilities lists the data kinds this venue can serve.
	Capabilities() []models.Kind
	// Supports reports whether the canonical symbol is in the venue's
	// supported set. Checked before any fetch is issued.
	Supports(symbol string) bool

	FetchQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error)
	FetchOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBookSnapshot, error)
	FetchTrades(ctx context.Context, symbol string, limit int) ([]models.TradeRecord, error)
	FetchDerivatives(ctx context.Context, symbol string) (*models.DerivativesSnapshot, error)
	FetchPositioning(ctx context.Context, symbol string) (*models.PositioningSnapshot, error)
	FetchLargeFlow(ctx context.Context, symbol string) (*models.LargeFlowSnapshot, error)
}

// Unsupported is embedded by adapters to stub out kinds a venue cannot serve.
type Unsupported struct{ VenueName string }

func (u Unsupported) FetchQuote(context.Context, string) (*models.QuoteSnapshot, error) {
	return nil, NewError(ErrUnsupportedSymbol, u.VenueName, "quote", nil)
}

func (u Unsupported) FetchOrderBook(context.Context, string, int) (*models.OrderBookSnapshot, error) {
	return nil, NewError(ErrUnsupportedSymbol, u.VenueName, "orderbook", nil)
}

func (u Unsupported) FetchTrades(context.Context, string, int) ([]models.TradeRecord, error) {
	return nil, NewError(ErrUnsupportedSymbol, u.VenueName, "trades", nil)
}

func (u Unsupported) FetchDerivatives(context.Context, string) (*models.DerivativesSnapshot, error) {
	return nil, NewError(ErrUnsupportedSymbol, u.VenueName, "derivatives", nil)
}

func (u Unsupported) FetchPositioning(context.Context, string) (*models.PositioningSnapshot, error) {
	return nil, NewError(ErrUnsupportedSymbol, u.VenueName, "positioning", nil)
}

func (u Unsupported) FetchLargeFlow(context.Context, string) (*models.LargeFlowSnapshot, error) {
	return nil, NewError(ErrUnsupportedSymbol, u.VenueName, "largeflow", nil)
}

// SymbolSet validates canonical symbols and maps them to the venue's format.
type SymbolSet struct {
	order   []string
	mapped  map[string]string
	reverse map[string]string
}

// NewSymbolSet builds a set from canonical symbols and a venue mapping
// function (identity when mapFn is nil).
func NewSymbolSet(symbols []string, mapFn func(string) string) SymbolSet {
	m := make(map[string]string, len(symbols))
	r := make(map[string]string, len(symbols))
	order := make([]string, 0, len(symbols))
	for _, s := range symbols {
		vs := s
		if mapFn != nil {
			vs = mapFn(s)
		}
		m[s] = vs
		r[vs] = s
		order = append(order, s)
	}
	return SymbolSet{order: order, mapped: m, reverse: r}
}

// Symbols lists the canonical symbols in configuration order.
func (s SymbolSet) Symbols() []string { return s.order }

// Canonical maps a venue-native symbol back to its canonical spelling.
func (s SymbolSet) Canonical(venueSymbol string) (string, bool) {
	c, ok := s.reverse[venueSymbol]
	return c, ok
}

// Contains reports membership of the canonical symbol.
func (s SymbolSet) Contains(symbol string) bool {
	_, ok := s.mapped[symbol]
	return ok
}

// Venue returns the venue-native spelling of the canonical symbol.
func (s SymbolSet) Venue(symbol string) (string, bool) {
	v, ok := s.mapped[symbol]
	return v, ok
}

// ParseDecimal parses a price/size field as a fixed-point decimal, returning
// a classified malformed-response error on failure. Empty strings parse to
// zero, which the canonical model treats as "not reported".
func ParseDecimal(venueName, op, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, NewError(ErrMalformed, venueName, op, err)
	}
	return d, nil
}

// UnixMilliUTC converts a venue millisecond timestamp to UTC.
func UnixMilliUTC(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ParseLevels converts raw [price, size] string pairs, the wire format most
// venues share, into a typed order book snapshot.
func ParseLevels(venueName, symbol string, bids, asks [][2]string) (*models.OrderBookSnapshot, error) {
	ob := &models.OrderBookSnapshot{
		Venue:     venueName,
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
		Bids:      make([]models.BookLevel, 0, len(bids)),
		Asks:      make([]models.BookLevel, 0, len(asks)),
	}
	for _, lv := range bids {
		price, err := ParseDecimal(venueName, "orderbook", lv[0])
		if err != nil {
			return nil, err
		}
		size, err := ParseDecimal(venueName, "orderbook", lv[1])
		if err != nil {
			return nil, err
		}
		ob.Bids = append(ob.Bids, models.BookLevel{Price: price, Size: size})
	}
	for _, lv := range asks {
		price, err := ParseDecimal(venueName, "orderbook", lv[0])
		if err != nil {
			return nil, err
		}
		size, err := ParseDecimal(venueName, "orderbook", lv[1])
		if err != nil {
			return nil, err
		}
		ob.Asks = append(ob.Asks, models.BookLevel{Price: price, Size: size})
	}
	return ob, nil
}
