package bitget

import (
	"context"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/venue"

	"github.com/shopspring/decimal"
)

const Name = "bitget"

// okCode is the success code Bitget wraps every payload with.
const okCode = "00000"

type Config struct {
	BaseURL string
	Symbols []string
	Timeout time.Duration

	// LargeFlowWindow is recorded on emitted flow snapshots; the venue
	// computes the flow server-side, so this only labels the record.
	LargeFlowWindow time.Duration
}

// Client is the Bitget spot adapter. Symbols pass through unchanged;
// Bitget spells spot pairs the canonical way.
type Client struct {
	venue.Unsupported
	rest       *venue.RESTClient
	symbols    venue.SymbolSet
	flowWindow time.Duration
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.bitget.com"
	}
	fw := cfg.LargeFlowWindow
	if fw <= 0 {
		fw = 2 * time.Minute
	}
	return &Client{
		Unsupported: venue.Unsupported{VenueName: Name},
		rest:        venue.NewRESTClient(Name, base, cfg.Timeout),
		symbols:     venue.NewSymbolSet(cfg.Symbols, nil),
		flowWindow:  fw,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Capabilities() []models.Kind {
	return []models.Kind{models.KindQuote, models.KindLargeFlow}
}

func (c *Client) Supports(symbol string) bool { return c.symbols.Contains(symbol) }

type envelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

type bitgetTicker struct {
	Symbol      string `json:"symbol"`
	LastPr      string `json:"lastPr"`
	BidPr       string `json:"bidPr"`
	AskPr       string `json:"askPr"`
	BidSz       string `json:"bidSz"`
	AskSz       string `json:"askSz"`
	QuoteVolume string `json:"quoteVolume"`
	Change24h   string `json:"change24h"`
	High24h     string `json:"high24h"`
	Low24h      string `json:"low24h"`
	Ts          string `json:"ts"`
}

func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "quote", nil)
	}
	var resp envelope[[]bitgetTicker]
	if err := c.rest.GetJSON(ctx, "quote", "/api/v2/spot/market/tickers",
		map[string][]string{"symbol": {vs}}, &resp); err != nil {
		return nil, err
	}
	if resp.Code != okCode || len(resp.Data) == 0 {
		return nil, venue.NewError(venue.ErrMalformed, Name, "quote", nil)
	}
	tk := resp.Data[0]

	q := &models.QuoteSnapshot{Venue: Name, Symbol: symbol, Timestamp: time.Now().UTC()}
	var err error
	if q.Bid, err = venue.ParseDecimal(Name, "quote", tk.BidPr); err != nil {
		return nil, err
	}
	if q.BidSize, err = venue.ParseDecimal(Name, "quote", tk.BidSz); err != nil {
		return nil, err
	}
	if q.Ask, err = venue.ParseDecimal(Name, "quote", tk.AskPr); err != nil {
		return nil, err
	}
	if q.AskSize, err = venue.ParseDecimal(Name, "quote", tk.AskSz); err != nil {
		return nil, err
	}
	if q.LastPrice, err = venue.ParseDecimal(Name, "quote", tk.LastPr); err != nil {
		return nil, err
	}
	if q.Volume24h, err = venue.ParseDecimal(Name, "quote", tk.QuoteVolume); err != nil {
		return nil, err
	}
	if q.High24h, err = venue.ParseDecimal(Name, "quote", tk.High24h); err != nil {
		return nil, err
	}
	if q.Low24h, err = venue.ParseDecimal(Name, "quote", tk.Low24h); err != nil {
		return nil, err
	}
	// change24h is fractional; the canonical field is a percentage.
	chg, err := venue.ParseDecimal(Name, "quote", tk.Change24h)
	if err != nil {
		return nil, err
	}
	q.ChangePct24h = chg.Mul(decimal.NewFromInt(100))
	return q, nil
}

type whaleFlow struct {
	NetFlow    string `json:"netFlow"`
	BuyVolume  string `json:"buyVolume"`
	SellVolume string `json:"sellVolume"`
}

// FetchLargeFlow reads Bitget's server-computed whale net flow, the only
// venue in the set that exposes one directly.
func (c *Client) FetchLargeFlow(ctx context.Context, symbol string) (*models.LargeFlowSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "largeflow", nil)
	}
	var resp envelope[whaleFlow]
	if err := c.rest.GetJSON(ctx, "largeflow", "/api/v2/spot/market/whale-net-flow",
		map[string][]string{"symbol": {vs}}, &resp); err != nil {
		return nil, err
	}
	if resp.Code != okCode {
		return nil, venue.NewError(venue.ErrMalformed, Name, "largeflow", nil)
	}

	f := &models.LargeFlowSnapshot{
		Venue:     Name,
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
		Window:    c.flowWindow,
	}
	var err error
	if f.NetFlow, err = venue.ParseDecimal(Name, "largeflow", resp.Data.NetFlow); err != nil {
		return nil, err
	}
	if f.BuyVolume, err = venue.ParseDecimal(Name, "largeflow", resp.Data.BuyVolume); err != nil {
		return nil, err
	}
	if f.SellVolume, err = venue.ParseDecimal(Name, "largeflow", resp.Data.SellVolume); err != nil {
		return nil, err
	}
	return f, nil
}
