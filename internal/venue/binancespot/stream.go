package binancespot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/venue"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Stream consumes the Binance spot aggTrade WebSocket feed and exposes
// the trades as a channel. REST trade polls remain the source of record;
// the stream is a lower-latency supplement for the analytics buffers.
type Stream struct {
	baseURL        string
	symbols        venue.SymbolSet
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

type StreamConfig struct {
	BaseURL        string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

func NewStream(cfg StreamConfig) *Stream {
	base := cfg.BaseURL
	if base == "" {
		base = "wss://stream.binance.com:9443"
	}
	rd := cfg.ReconnectDelay
	if rd <= 0 {
		rd = 5 * time.Second
	}
	pi := cfg.PingInterval
	if pi <= 0 {
		pi = 30 * time.Second
	}
	return &Stream{
		baseURL:        base,
		symbols:        venue.NewSymbolSet(cfg.Symbols, nil),
		reconnectDelay: rd,
		pingInterval:   pi,
	}
}

// Connect dials the combined-stream endpoint for all configured symbols.
func (s *Stream) Connect(ctx context.Context) error {
	names := make([]string, 0, len(s.symbols.Symbols()))
	for _, sym := range s.symbols.Symbols() {
		vs, _ := s.symbols.Venue(sym)
		names = append(names, strings.ToLower(vs)+"@aggTrade")
	}
	u := fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(names, "/"))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance stream connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	return nil
}

type wsAggTrade struct {
	Symbol       string `json:"s"`
	ID           int64  `json:"a"`
	Price        string `json:"p"`
	Qty          string `json:"q"`
	Time         int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

type wsFrame struct {
	Stream string     `json:"stream"`
	Data   wsAggTrade `json:"data"`
}

// Read streams trade records and errors. The error channel carries at
// most one terminal error; callers Reconnect and Read again.
func (s *Stream) Read(ctx context.Context) (<-chan models.TradeRecord, <-chan error) {
	trades := make(chan models.TradeRecord, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(trades)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("binance stream conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance stream read: %w", err)
					return
				}
				var f wsFrame
				if err := json.Unmarshal(b, &f); err != nil {
					// ignore non-trade frames
					continue
				}
				if f.Data.Symbol == "" {
					continue
				}
				rec, err := s.toRecord(f.Data)
				if err != nil {
					continue
				}
				select {
				case trades <- rec:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return trades, errs
}

func (s *Stream) toRecord(t wsAggTrade) (models.TradeRecord, error) {
	sym, ok := s.symbols.Canonical(t.Symbol)
	if !ok {
		return models.TradeRecord{}, fmt.Errorf("unknown stream symbol %q", t.Symbol)
	}
	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return models.TradeRecord{}, err
	}
	qty, err := decimal.NewFromString(t.Qty)
	if err != nil {
		return models.TradeRecord{}, err
	}
	side := models.SideBuy
	if t.IsBuyerMaker {
		side = models.SideSell
	}
	return models.TradeRecord{
		Venue:     Name,
		Symbol:    sym,
		Timestamp: venue.UnixMilliUTC(t.Time),
		Price:     price,
		Quantity:  qty,
		Side:      side,
		TradeID:   strconv.FormatInt(t.ID, 10),
		Maker:     t.IsBuyerMaker,
	}, nil
}

// Reconnect closes and reconnects after the configured delay.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	return s.Connect(ctx)
}

func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Stream) IsConnected() bool { return s.connected }
