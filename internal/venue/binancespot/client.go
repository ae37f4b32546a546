package binancespot

import (
	"context"
	"strconv"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/venue"
)

const Name = "binance_spot"

type Config struct {
	BaseURL string
	Symbols []string
	Timeout time.Duration
}

// Client is the Binance spot adapter. Quotes and trades only; the spot
// order book is not tracked (the perps book covers the Binance venue).
type Client struct {
	venue.Unsupported
	rest    *venue.RESTClient
	symbols venue.SymbolSet
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.binance.com"
	}
	return &Client{
		Unsupported: venue.Unsupported{VenueName: Name},
		rest:        venue.NewRESTClient(Name, base, cfg.Timeout),
		symbols:     venue.NewSymbolSet(cfg.Symbols, nil),
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Capabilities() []models.Kind {
	return []models.Kind{models.KindQuote, models.KindTrade}
}

func (c *Client) Supports(symbol string) bool { return c.symbols.Contains(symbol) }

type spotTicker struct {
	BidPrice       string `json:"bidPrice"`
	BidQty         string `json:"bidQty"`
	AskPrice       string `json:"askPrice"`
	AskQty         string `json:"askQty"`
	LastPrice      string `json:"lastPrice"`
	QuoteVolume    string `json:"quoteVolume"`
	PriceChangePct string `json:"priceChangePercent"`
	HighPrice      string `json:"highPrice"`
	LowPrice       string `json:"lowPrice"`
}

func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "quote", nil)
	}
	var tk spotTicker
	if err := c.rest.GetJSON(ctx, "quote", "/api/v3/ticker/24hr",
		map[string][]string{"symbol": {vs}}, &tk); err != nil {
		return nil, err
	}

	q := &models.QuoteSnapshot{Venue: Name, Symbol: symbol, Timestamp: time.Now().UTC()}
	var err error
	if q.Bid, err = venue.ParseDecimal(Name, "quote", tk.BidPrice); err != nil {
		return nil, err
	}
	if q.BidSize, err = venue.ParseDecimal(Name, "quote", tk.BidQty); err != nil {
		return nil, err
	}
	if q.Ask, err = venue.ParseDecimal(Name, "quote", tk.AskPrice); err != nil {
		return nil, err
	}
	if q.AskSize, err = venue.ParseDecimal(Name, "quote", tk.AskQty); err != nil {
		return nil, err
	}
	if q.LastPrice, err = venue.ParseDecimal(Name, "quote", tk.LastPrice); err != nil {
		return nil, err
	}
	if q.Volume24h, err = venue.ParseDecimal(Name, "quote", tk.QuoteVolume); err != nil {
		return nil, err
	}
	if q.High24h, err = venue.ParseDecimal(Name, "quote", tk.HighPrice); err != nil {
		return nil, err
	}
	if q.Low24h, err = venue.ParseDecimal(Name, "quote", tk.LowPrice); err != nil {
		return nil, err
	}
	if q.ChangePct24h, err = venue.ParseDecimal(Name, "quote", tk.PriceChangePct); err != nil {
		return nil, err
	}
	return q, nil
}

type aggTrade struct {
	ID           int64  `json:"a"`
	Price        string `json:"p"`
	Qty          string `json:"q"`
	Time         int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

func (c *Client) FetchTrades(ctx context.Context, symbol string, limit int) ([]models.TradeRecord, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "trades", nil)
	}
	var raw []aggTrade
	if err := c.rest.GetJSON(ctx, "trades", "/api/v3/aggTrades",
		map[string][]string{"symbol": {vs}, "limit": {strconv.Itoa(limit)}}, &raw); err != nil {
		return nil, err
	}

	out := make([]models.TradeRecord, 0, len(raw))
	for _, t := range raw {
		price, err := venue.ParseDecimal(Name, "trades", t.Price)
		if err != nil {
			return nil, err
		}
		qty, err := venue.ParseDecimal(Name, "trades", t.Qty)
		if err != nil {
			return nil, err
		}
		side := models.SideBuy
		if t.IsBuyerMaker {
			side = models.SideSell
		}
		out = append(out, models.TradeRecord{
			Venue:     Name,
			Symbol:    symbol,
			Timestamp: venue.UnixMilliUTC(t.Time),
			Price:     price,
			Quantity:  qty,
			Side:      side,
			TradeID:   strconv.FormatInt(t.ID, 10),
			Maker:     t.IsBuyerMaker,
		})
	}
	return out, nil
}
