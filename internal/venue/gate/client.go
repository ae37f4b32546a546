package gate

import (
	"context"
	"strconv"
	"strings"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/venue"
)

const Name = "gate"

// MapSymbol converts canonical symbols to Gate's underscore pairs
// (BTCUSDT -> BTC_USDT).
func MapSymbol(symbol string) string {
	for _, q := range []string{"USDT", "USDC", "BTC"} {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return symbol[:len(symbol)-len(q)] + "_" + q
		}
	}
	return symbol
}

type Config struct {
	BaseURL string
	Symbols []string
	Timeout time.Duration
}

// Client is the Gate.io spot adapter.
type Client struct {
	venue.Unsupported
	rest    *venue.RESTClient
	symbols venue.SymbolSet
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.gateio.ws"
	}
	return &Client{
		Unsupported: venue.Unsupported{VenueName: Name},
		rest:        venue.NewRESTClient(Name, base, cfg.Timeout),
		symbols:     venue.NewSymbolSet(cfg.Symbols, MapSymbol),
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Capabilities() []models.Kind {
	return []models.Kind{models.KindQuote, models.KindOrderBook, models.KindTrade}
}

func (c *Client) Supports(symbol string) bool { return c.symbols.Contains(symbol) }

type gateTicker struct {
	CurrencyPair string `json:"currency_pair"`
	Last         string `json:"last"`
	HighestBid   string `json:"highest_bid"`
	LowestAsk    string `json:"lowest_ask"`
	QuoteVolume  string `json:"quote_volume"`
	ChangePct    string `json:"change_percentage"`
	High24h      string `json:"high_24h"`
	Low24h       string `json:"low_24h"`
}

// FetchQuote reads the spot ticker. Gate does not report top-of-book
// sizes on this endpoint, so BidSize/AskSize stay zero (not reported).
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "quote", nil)
	}
	var tickers []gateTicker
	if err := c.rest.GetJSON(ctx, "quote", "/api/v4/spot/tickers",
		map[string][]string{"currency_pair": {vs}}, &tickers); err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, venue.NewError(venue.ErrMalformed, Name, "quote", nil)
	}
	tk := tickers[0]

	q := &models.QuoteSnapshot{Venue: Name, Symbol: symbol, Timestamp: time.Now().UTC()}
	var err error
	if q.Bid, err = venue.ParseDecimal(Name, "quote", tk.HighestBid); err != nil {
		return nil, err
	}
	if q.Ask, err = venue.ParseDecimal(Name, "quote", tk.LowestAsk); err != nil {
		return nil, err
	}
	if q.LastPrice, err = venue.ParseDecimal(Name, "quote", tk.Last); err != nil {
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
	if q.ChangePct24h, err = venue.ParseDecimal(Name, "quote", tk.ChangePct); err != nil {
		return nil, err
	}
	return q, nil
}

type gateDepth struct {
	Current int64       `json:"current"`
	Bids    [][2]string `json:"bids"`
	Asks    [][2]string `json:"asks"`
}

func (c *Client) FetchOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBookSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "orderbook", nil)
	}
	var dp gateDepth
	if err := c.rest.GetJSON(ctx, "orderbook", "/api/v4/spot/order_book",
		map[string][]string{"currency_pair": {vs}, "limit": {strconv.Itoa(depth)}}, &dp); err != nil {
		return nil, err
	}
	ob, err := venue.ParseLevels(Name, symbol, dp.Bids, dp.Asks)
	if err != nil {
		return nil, err
	}
	if dp.Current > 0 {
		ob.Timestamp = venue.UnixMilliUTC(dp.Current)
	}
	return ob, nil
}

type gateTrade struct {
	ID           string `json:"id"`
	CreateTimeMs string `json:"create_time_ms"`
	Side         string `json:"side"`
	Amount       string `json:"amount"`
	Price        string `json:"price"`
	Role         string `json:"role"`
}

func (c *Client) FetchTrades(ctx context.Context, symbol string, limit int) ([]models.TradeRecord, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "trades", nil)
	}
	var raw []gateTrade
	if err := c.rest.GetJSON(ctx, "trades", "/api/v4/spot/trades",
		map[string][]string{"currency_pair": {vs}, "limit": {strconv.Itoa(limit)}}, &raw); err != nil {
		return nil, err
	}

	out := make([]models.TradeRecord, 0, len(raw))
	for _, t := range raw {
		price, err := venue.ParseDecimal(Name, "trades", t.Price)
		if err != nil {
			return nil, err
		}
		qty, err := venue.ParseDecimal(Name, "trades", t.Amount)
		if err != nil {
			return nil, err
		}
		// create_time_ms carries fractional milliseconds; keep the ms part.
		msStr := t.CreateTimeMs
		if i := strings.IndexByte(msStr, '.'); i >= 0 {
			msStr = msStr[:i]
		}
		ms, err := strconv.ParseInt(msStr, 10, 64)
		if err != nil {
			return nil, venue.NewError(venue.ErrMalformed, Name, "trades", err)
		}
		side := models.SideBuy
		if t.Side == "sell" {
			side = models.SideSell
		}
		out = append(out, models.TradeRecord{
			Venue:     Name,
			Symbol:    symbol,
			Timestamp: venue.UnixMilliUTC(ms),
			Price:     price,
			Quantity:  qty,
			Side:      side,
			TradeID:   t.ID,
			Maker:     t.Role == "maker",
		})
	}
	return out, nil
}
