package kucoin

import (
	"context"
	"strings"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/venue"

	"github.com/shopspring/decimal"
)

const Name = "kucoin"

// okCode is the success code KuCoin wraps every payload with.
const okCode = "200000"

// MapSymbol converts canonical symbols to KuCoin's hyphenated pairs
// (BTCUSDT -> BTC-USDT).
func MapSymbol(symbol string) string {
	for _, q := range []string{"USDT", "USDC", "BTC"} {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return symbol[:len(symbol)-len(q)] + "-" + q
		}
	}
	return symbol
}

type Config struct {
	BaseURL string
	Symbols []string
	Timeout time.Duration
}

// Client is the KuCoin spot adapter.
type Client struct {
	venue.Unsupported
	rest    *venue.RESTClient
	symbols venue.SymbolSet
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.kucoin.com"
	}
	return &Client{
		Unsupported: venue.Unsupported{VenueName: Name},
		rest:        venue.NewRESTClient(Name, base, cfg.Timeout),
		symbols:     venue.NewSymbolSet(cfg.Symbols, MapSymbol),
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Capabilities() []models.Kind {
	return []models.Kind{models.KindQuote, models.KindOrderBook}
}

func (c *Client) Supports(symbol string) bool { return c.symbols.Contains(symbol) }

type envelope[T any] struct {
	Code string `json:"code"`
	Data T      `json:"data"`
}

var hundred = decimal.NewFromInt(100)

type level1Ticker struct {
	Price       string `json:"price"`
	BestBid     string `json:"bestBid"`
	BestBidSize string `json:"bestBidSize"`
	BestAsk     string `json:"bestAsk"`
	BestAskSize string `json:"bestAskSize"`
	Time        int64  `json:"time"`
}

type dayStats struct {
	Vol        string `json:"vol"`
	VolValue   string `json:"volValue"`
	High       string `json:"high"`
	Low        string `json:"low"`
	ChangeRate string `json:"changeRate"`
}

// FetchQuote combines the level-1 order book ticker with the 24h stats
// endpoint, the two calls KuCoin splits a full quote across.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "quote", nil)
	}
	params := map[string][]string{"symbol": {vs}}

	var tk envelope[level1Ticker]
	if err := c.rest.GetJSON(ctx, "quote", "/api/v1/market/orderbook/level1", params, &tk); err != nil {
		return nil, err
	}
	if tk.Code != okCode {
		return nil, venue.NewError(venue.ErrMalformed, Name, "quote", nil)
	}
	var st envelope[dayStats]
	if err := c.rest.GetJSON(ctx, "quote", "/api/v1/market/stats", params, &st); err != nil {
		return nil, err
	}
	if st.Code != okCode {
		return nil, venue.NewError(venue.ErrMalformed, Name, "quote", nil)
	}

	ts := time.Now().UTC()
	if tk.Data.Time > 0 {
		ts = venue.UnixMilliUTC(tk.Data.Time)
	}
	q := &models.QuoteSnapshot{Venue: Name, Symbol: symbol, Timestamp: ts}
	var err error
	if q.Bid, err = venue.ParseDecimal(Name, "quote", tk.Data.BestBid); err != nil {
		return nil, err
	}
	if q.BidSize, err = venue.ParseDecimal(Name, "quote", tk.Data.BestBidSize); err != nil {
		return nil, err
	}
	if q.Ask, err = venue.ParseDecimal(Name, "quote", tk.Data.BestAsk); err != nil {
		return nil, err
	}
	if q.AskSize, err = venue.ParseDecimal(Name, "quote", tk.Data.BestAskSize); err != nil {
		return nil, err
	}
	if q.LastPrice, err = venue.ParseDecimal(Name, "quote", tk.Data.Price); err != nil {
		return nil, err
	}
	if q.Volume24h, err = venue.ParseDecimal(Name, "quote", st.Data.VolValue); err != nil {
		return nil, err
	}
	if q.High24h, err = venue.ParseDecimal(Name, "quote", st.Data.High); err != nil {
		return nil, err
	}
	if q.Low24h, err = venue.ParseDecimal(Name, "quote", st.Data.Low); err != nil {
		return nil, err
	}
	// changeRate is fractional; the canonical field is a percentage.
	rate, err := venue.ParseDecimal(Name, "quote", st.Data.ChangeRate)
	if err != nil {
		return nil, err
	}
	q.ChangePct24h = rate.Mul(hundred)
	return q, nil
}

type level2Book struct {
	Time int64       `json:"time"`
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

func (c *Client) FetchOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBookSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "orderbook", nil)
	}
	var resp envelope[level2Book]
	if err := c.rest.GetJSON(ctx, "orderbook", "/api/v3/market/orderbook/level2",
		map[string][]string{"symbol": {vs}}, &resp); err != nil {
		return nil, err
	}
	if resp.Code != okCode {
		return nil, venue.NewError(venue.ErrMalformed, Name, "orderbook", nil)
	}
	bids, asks := resp.Data.Bids, resp.Data.Asks
	if depth > 0 {
		if len(bids) > depth {
			bids = bids[:depth]
		}
		if len(asks) > depth {
			asks = asks[:depth]
		}
	}
	ob, err := venue.ParseLevels(Name, symbol, bids, asks)
	if err != nil {
		return nil, err
	}
	if resp.Data.Time > 0 {
		ob.Timestamp = venue.UnixMilliUTC(resp.Data.Time)
	}
	return ob, nil
}
