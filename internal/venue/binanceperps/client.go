package binanceperps

import (
	"context"
	"strconv"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/venue"
)

const Name = "binance_perps"

// Config holds the venue endpoint and supported symbol set.
type Config struct {
	BaseURL string
	Symbols []string
	Timeout time.Duration
}

// Client is the Binance USDT-margined perpetuals adapter.
type Client struct {
	rest    *venue.RESTClient
	symbols venue.SymbolSet
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://fapi.binance.com"
	}
	return &Client{
		rest:    venue.NewRESTClient(Name, base, cfg.Timeout),
		symbols: venue.NewSymbolSet(cfg.Symbols, nil),
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Capabilities() []models.Kind {
	return []models.Kind{
		models.KindQuote, models.KindOrderBook, models.KindTrade,
		models.KindDerivatives, models.KindPositioning,
	}
}

func (c *Client) Supports(symbol string) bool { return c.symbols.Contains(symbol) }

type ticker24h struct {
	LastPrice      string `json:"lastPrice"`
	Volume         string `json:"volume"`
	QuoteVolume    string `json:"quoteVolume"`
	PriceChangePct string `json:"priceChangePercent"`
	HighPrice      string `json:"highPrice"`
	LowPrice       string `json:"lowPrice"`
}

type depthResp struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

// FetchQuote combines the 24h ticker with a shallow depth call: the futures
// ticker endpoint does not carry best bid/ask.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "quote", nil)
	}

	var tk ticker24h
	if err := c.rest.GetJSON(ctx, "quote", "/fapi/v1/ticker/24hr",
		map[string][]string{"symbol": {vs}}, &tk); err != nil {
		return nil, err
	}
	var dp depthResp
	if err := c.rest.GetJSON(ctx, "quote", "/fapi/v1/depth",
		map[string][]string{"symbol": {vs}, "limit": {"5"}}, &dp); err != nil {
		return nil, err
	}

	q := &models.QuoteSnapshot{Venue: Name, Symbol: symbol, Timestamp: time.Now().UTC()}
	var err error
	if len(dp.Bids) > 0 {
		if q.Bid, err = venue.ParseDecimal(Name, "quote", dp.Bids[0][0]); err != nil {
			return nil, err
		}
		if q.BidSize, err = venue.ParseDecimal(Name, "quote", dp.Bids[0][1]); err != nil {
			return nil, err
		}
	}
	if len(dp.Asks) > 0 {
		if q.Ask, err = venue.ParseDecimal(Name, "quote", dp.Asks[0][0]); err != nil {
			return nil, err
		}
		if q.AskSize, err = venue.ParseDecimal(Name, "quote", dp.Asks[0][1]); err != nil {
			return nil, err
		}
	}
	if q.LastPrice, err = venue.ParseDecimal(Name, "quote", tk.LastPrice); err != nil {
		return nil, err
	}
	// quote-currency volume
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

func (c *Client) FetchOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBookSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "orderbook", nil)
	}
	var dp depthResp
	if err := c.rest.GetJSON(ctx, "orderbook", "/fapi/v1/depth",
		map[string][]string{"symbol": {vs}, "limit": {strconv.Itoa(depth)}}, &dp); err != nil {
		return nil, err
	}
	return venue.ParseLevels(Name, symbol, dp.Bids, dp.Asks)
}

type perpsTrade struct {
	ID           int64  `json:"id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	Time         int64  `json:"time"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

func (c *Client) FetchTrades(ctx context.Context, symbol string, limit int) ([]models.TradeRecord, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "trades", nil)
	}
	var raw []perpsTrade
	if err := c.rest.GetJSON(ctx, "trades", "/fapi/v1/trades",
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

type premiumIndex struct {
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

type openInterestResp struct {
	OpenInterest string `json:"openInterest"`
}

func (c *Client) FetchDerivatives(ctx context.Context, symbol string) (*models.DerivativesSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "derivatives", nil)
	}
	var pi premiumIndex
	if err := c.rest.GetJSON(ctx, "derivatives", "/fapi/v1/premiumIndex",
		map[string][]string{"symbol": {vs}}, &pi); err != nil {
		return nil, err
	}
	var oi openInterestResp
	if err := c.rest.GetJSON(ctx, "derivatives", "/fapi/v1/openInterest",
		map[string][]string{"symbol": {vs}}, &oi); err != nil {
		return nil, err
	}

	d := &models.DerivativesSnapshot{Venue: Name, Symbol: symbol, Timestamp: time.Now().UTC()}
	var err error
	if d.MarkPrice, err = venue.ParseDecimal(Name, "derivatives", pi.MarkPrice); err != nil {
		return nil, err
	}
	if d.IndexPrice, err = venue.ParseDecimal(Name, "derivatives", pi.IndexPrice); err != nil {
		return nil, err
	}
	if d.FundingRate, err = venue.ParseDecimal(Name, "derivatives", pi.LastFundingRate); err != nil {
		return nil, err
	}
	if d.OpenInterest, err = venue.ParseDecimal(Name, "derivatives", oi.OpenInterest); err != nil {
		return nil, err
	}
	if pi.NextFundingTime > 0 {
		d.NextFundingTime = venue.UnixMilliUTC(pi.NextFundingTime)
	}
	return d, nil
}

type lsRatio struct {
	LongShortRatio string `json:"longShortRatio"`
	LongAccount    string `json:"longAccount"`
	ShortAccount   string `json:"shortAccount"`
}

func (c *Client) FetchPositioning(ctx context.Context, symbol string) (*models.PositioningSnapshot, error) {
	vs, ok := c.symbols.Venue(symbol)
	if !ok {
		return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "positioning", nil)
	}
	params := map[string][]string{"symbol": {vs}, "period": {"5m"}, "limit": {"1"}}

	var global []lsRatio
	if err := c.rest.GetJSON(ctx, "positioning", "/futures/data/globalLongShortAccountRatio", params, &global); err != nil {
		return nil, err
	}
	if len(global) == 0 {
		return nil, venue.NewError(venue.ErrMalformed, Name, "positioning", nil)
	}
	var top []lsRatio
	if err := c.rest.GetJSON(ctx, "positioning", "/futures/data/topLongShortAccountRatio", params, &top); err != nil {
		return nil, err
	}

	p := &models.PositioningSnapshot{Venue: Name, Symbol: symbol, Timestamp: time.Now().UTC()}
	var err error
	if p.LongShortRatio, err = venue.ParseDecimal(Name, "positioning", global[0].LongShortRatio); err != nil {
		return nil, err
	}
	if p.LongAccountRatio, err = venue.ParseDecimal(Name, "positioning", global[0].LongAccount); err != nil {
		return nil, err
	}
	if p.ShortAccountRatio, err = venue.ParseDecimal(Name, "positioning", global[0].ShortAccount); err != nil {
		return nil, err
	}
	if len(top) > 0 {
		if p.TopTraderLongRatio, err = venue.ParseDecimal(Name, "positioning", top[0].LongAccount); err != nil {
			return nil, err
		}
		if p.TopTraderShortRatio, err = venue.ParseDecimal(Name, "positioning", top[0].ShortAccount); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (c *Client) FetchLargeFlow(ctx context.Context, symbol string) (*models.LargeFlowSnapshot, error) {
	return nil, venue.NewError(venue.ErrUnsupportedSymbol, Name, "largeflow", nil)
}
