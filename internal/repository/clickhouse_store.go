package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"MarketLens/internal/domain/models"
	pkgch "MarketLens/pkg/clickhouse"
	applogger "MarketLens/pkg/logger"
)

// CHStore is the ClickHouse-backed time-series store. Every table is a
// ReplacingMergeTree on the record's uniqueness key, so replayed inserts
// are idempotent; reads use FINAL to collapse not-yet-merged duplicates.
type CHStore struct {
	db *sql.DB
	ch *pkgch.Client
	l  *applogger.Logger
}

func NewCHStore(ch *pkgch.Client) *CHStore {
	return &CHStore{db: ch.DB(), ch: ch}
}

// SetLogger injects a structured logger.
func (s *CHStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init creates the tables if missing.
func (s *CHStore) Init(ctx context.Context, database string) error {
	return s.ch.InitSchema(ctx, Schema(database))
}

func (s *CHStore) logErr(msg, venue, symbol string, err error) {
	if s.l != nil {
		s.l.Error(msg,
			applogger.String("venue", venue),
			applogger.String("symbol", symbol),
			applogger.Error(err))
	}
}

func (s *CHStore) InsertQuote(ctx context.Context, q *models.QuoteSnapshot) error {
	const stmt = `INSERT INTO quotes
		(venue, symbol, ts, bid, ask, bid_size, ask_size, last_price,
		 volume_24h, high_24h, low_24h, change_pct_24h, invalid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt,
		q.Venue, q.Symbol, q.Timestamp, q.Bid, q.Ask, q.BidSize, q.AskSize,
		q.LastPrice, q.Volume24h, q.High24h, q.Low24h, q.ChangePct24h, boolByte(q.Invalid))
	if err != nil {
		s.logErr("clickhouse insert quote", q.Venue, q.Symbol, err)
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (s *CHStore) InsertOrderBook(ctx context.Context, b *models.OrderBookSnapshot) error {
	bids, err := json.Marshal(b.Bids)
	if err != nil {
		return fmt.Errorf("marshal bids: %w", err)
	}
	asks, err := json.Marshal(b.Asks)
	if err != nil {
		return fmt.Errorf("marshal asks: %w", err)
	}
	const stmt = `INSERT INTO orderbooks (venue, symbol, ts, bids, asks, invalid)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, stmt,
		b.Venue, b.Symbol, b.Timestamp, string(bids), string(asks), boolByte(b.Invalid)); err != nil {
		s.logErr("clickhouse insert orderbook", b.Venue, b.Symbol, err)
		return fmt.Errorf("insert orderbook: %w", err)
	}
	return nil
}

func (s *CHStore) InsertTrades(ctx context.Context, trades []models.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trades batch: %w", err)
	}
	const stmt = `INSERT INTO trades (venue, symbol, ts, price, quantity, side, trade_id, maker)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	prep, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare trades batch: %w", err)
	}
	for _, t := range trades {
		if _, err := prep.ExecContext(ctx,
			t.Venue, t.Symbol, t.Timestamp, t.Price, t.Quantity,
			string(t.Side), t.TradeID, boolByte(t.Maker)); err != nil {
			_ = tx.Rollback()
			s.logErr("clickhouse insert trades", t.Venue, t.Symbol, err)
			return fmt.Errorf("insert trade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trades batch: %w", err)
	}
	return nil
}

func (s *CHStore) InsertDerivatives(ctx context.Context, d *models.DerivativesSnapshot) error {
	const stmt = `INSERT INTO derivatives
		(venue, symbol, ts, mark_price, index_price, funding_rate, open_interest, next_funding_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, stmt,
		d.Venue, d.Symbol, d.Timestamp, d.MarkPrice, d.IndexPrice,
		d.FundingRate, d.OpenInterest, d.NextFundingTime); err != nil {
		s.logErr("clickhouse insert derivatives", d.Venue, d.Symbol, err)
		return fmt.Errorf("insert derivatives: %w", err)
	}
	return nil
}

func (s *CHStore) InsertPositioning(ctx context.Context, p *models.PositioningSnapshot) error {
	const stmt = `INSERT INTO positioning
		(venue, symbol, ts, long_short_ratio, long_account_ratio, short_account_ratio,
		 top_trader_long_ratio, top_trader_short_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, stmt,
		p.Venue, p.Symbol, p.Timestamp, p.LongShortRatio, p.LongAccountRatio,
		p.ShortAccountRatio, p.TopTraderLongRatio, p.TopTraderShortRatio); err != nil {
		s.logErr("clickhouse insert positioning", p.Venue, p.Symbol, err)
		return fmt.Errorf("insert positioning: %w", err)
	}
	return nil
}

func (s *CHStore) InsertLargeFlow(ctx context.Context, f *models.LargeFlowSnapshot) error {
	const stmt = `INSERT INTO largeflow
		(venue, symbol, ts, buy_volume, sell_volume, net_flow, threshold, window_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, stmt,
		f.Venue, f.Symbol, f.Timestamp, f.BuyVolume, f.SellVolume,
		f.NetFlow, f.Threshold, f.Window.Milliseconds()); err != nil {
		s.logErr("clickhouse insert largeflow", f.Venue, f.Symbol, err)
		return fmt.Errorf("insert largeflow: %w", err)
	}
	return nil
}

func (s *CHStore) InsertMetrics(ctx context.Context, ms []models.MetricRecord) error {
	if len(ms) == 0 {
		return nil
	}
	const stmt = `INSERT INTO metrics
		(venue, symbol, window_end, spread_bps, depth, imbalance, uptime_pct,
		 mm_score, large_flow_net, quote_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, m := range ms {
		depth, err := json.Marshal(m.Depth)
		if err != nil {
			return fmt.Errorf("marshal depth: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, stmt,
			m.Venue, m.Symbol, m.WindowEnd, m.SpreadBps, string(depth), m.Imbalance,
			m.UptimePct, m.MMScore, m.LargeFlowNet, uint32(m.QuoteCount)); err != nil {
			s.logErr("clickhouse insert metrics", m.Venue, m.Symbol, err)
			return fmt.Errorf("insert metric: %w", err)
		}
	}
	return nil
}

func (s *CHStore) UpsertRollups(ctx context.Context, rs []models.RollupRecord) error {
	if len(rs) == 0 {
		return nil
	}
	const stmt = `INSERT INTO rollups
		(venue, symbol, bucket_start, avg_spread_bps, min_spread_bps, max_spread_bps,
		 avg_uptime_pct, avg_mm_score, trade_volume, large_flow_net, sample_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, r := range rs {
		if _, err := s.db.ExecContext(ctx, stmt,
			r.Venue, r.Symbol, r.BucketStart, r.AvgSpreadBps, r.MinSpreadBps,
			r.MaxSpreadBps, r.AvgUptimePct, r.AvgMMScore, r.TradeVolume,
			r.LargeFlowNet, uint32(r.SampleCount)); err != nil {
			s.logErr("clickhouse upsert rollup", r.Venue, r.Symbol, err)
			return fmt.Errorf("upsert rollup: %w", err)
		}
	}
	return nil
}

const quoteCols = `venue, symbol, ts, bid, ask, bid_size, ask_size, last_price,
	volume_24h, high_24h, low_24h, change_pct_24h, invalid`

func scanQuote(rows *sql.Rows) (models.QuoteSnapshot, error) {
	var q models.QuoteSnapshot
	var invalid uint8
	err := rows.Scan(&q.Venue, &q.Symbol, &q.Timestamp, &q.Bid, &q.Ask,
		&q.BidSize, &q.AskSize, &q.LastPrice, &q.Volume24h, &q.High24h,
		&q.Low24h, &q.ChangePct24h, &invalid)
	q.Invalid = invalid != 0
	return q, err
}

func (s *CHStore) LatestQuote(ctx context.Context, venue, symbol string) (*models.QuoteSnapshot, error) {
	q := `SELECT ` + quoteCols + ` FROM quotes FINAL
		WHERE venue = ? AND symbol = ? ORDER BY ts DESC LIMIT 1`
	rows, err := s.db.QueryContext(ctx, q, venue, symbol)
	if err != nil {
		s.logErr("clickhouse latest quote", venue, symbol, err)
		return nil, fmt.Errorf("latest quote: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanQuote(rows)
	if err != nil {
		return nil, fmt.Errorf("scan quote: %w", err)
	}
	return &rec, nil
}

func (s *CHStore) LatestOrderBook(ctx context.Context, venue, symbol string) (*models.OrderBookSnapshot, error) {
	const q = `SELECT venue, symbol, ts, bids, asks, invalid FROM orderbooks FINAL
		WHERE venue = ? AND symbol = ? ORDER BY ts DESC LIMIT 1`
	rows, err := s.db.QueryContext(ctx, q, venue, symbol)
	if err != nil {
		s.logErr("clickhouse latest orderbook", venue, symbol, err)
		return nil, fmt.Errorf("latest orderbook: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanOrderBook(rows)
	if err != nil {
		return nil, fmt.Errorf("scan orderbook: %w", err)
	}
	return &rec, nil
}

func scanOrderBook(rows *sql.Rows) (models.OrderBookSnapshot, error) {
	var b models.OrderBookSnapshot
	var bids, asks string
	var invalid uint8
	if err := rows.Scan(&b.Venue, &b.Symbol, &b.Timestamp, &bids, &asks, &invalid); err != nil {
		return b, err
	}
	b.Invalid = invalid != 0
	if err := json.Unmarshal([]byte(bids), &b.Bids); err != nil {
		return b, fmt.Errorf("unmarshal bids: %w", err)
	}
	if err := json.Unmarshal([]byte(asks), &b.Asks); err != nil {
		return b, fmt.Errorf("unmarshal asks: %w", err)
	}
	return b, nil
}

// rangeLimit renders the LIMIT clause for range queries. A limit of zero or
// below means unbounded; ClickHouse would treat LIMIT 0 as "no rows".
func rangeLimit(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

func (s *CHStore) QuotesRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.QuoteSnapshot, error) {
	q := `SELECT ` + quoteCols + ` FROM quotes FINAL
		WHERE venue = ? AND symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts DESC` + rangeLimit(limit)
	rows, err := s.db.QueryContext(ctx, q, venue, symbol, from, to)
	if err != nil {
		s.logErr("clickhouse quotes range", venue, symbol, err)
		return nil, fmt.Errorf("quotes range: %w", err)
	}
	defer rows.Close()
	out := make([]models.QuoteSnapshot, 0, 256)
	for rows.Next() {
		rec, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *CHStore) TradesRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.TradeRecord, error) {
	q := `SELECT venue, symbol, ts, price, quantity, side, trade_id, maker
		FROM trades FINAL
		WHERE venue = ? AND symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts DESC` + rangeLimit(limit)
	rows, err := s.db.QueryContext(ctx, q, venue, symbol, from, to)
	if err != nil {
		s.logErr("clickhouse trades range", venue, symbol, err)
		return nil, fmt.Errorf("trades range: %w", err)
	}
	defer rows.Close()
	out := make([]models.TradeRecord, 0, 256)
	for rows.Next() {
		var t models.TradeRecord
		var side string
		var maker uint8
		if err := rows.Scan(&t.Venue, &t.Symbol, &t.Timestamp, &t.Price,
			&t.Quantity, &side, &t.TradeID, &maker); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Side = models.Side(side)
		t.Maker = maker != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *CHStore) DerivativesRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.DerivativesSnapshot, error) {
	q := `SELECT venue, symbol, ts, mark_price, index_price, funding_rate,
		open_interest, next_funding_time
		FROM derivatives FINAL
		WHERE venue = ? AND symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts DESC` + rangeLimit(limit)
	rows, err := s.db.QueryContext(ctx, q, venue, symbol, from, to)
	if err != nil {
		s.logErr("clickhouse derivatives range", venue, symbol, err)
		return nil, fmt.Errorf("derivatives range: %w", err)
	}
	defer rows.Close()
	out := make([]models.DerivativesSnapshot, 0, 256)
	for rows.Next() {
		var d models.DerivativesSnapshot
		if err := rows.Scan(&d.Venue, &d.Symbol, &d.Timestamp, &d.MarkPrice,
			&d.IndexPrice, &d.FundingRate, &d.OpenInterest, &d.NextFundingTime); err != nil {
			return nil, fmt.Errorf("scan derivatives: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *CHStore) PositioningRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.PositioningSnapshot, error) {
	q := `SELECT venue, symbol, ts, long_short_ratio, long_account_ratio,
		short_account_ratio, top_trader_long_ratio, top_trader_short_ratio
		FROM positioning FINAL
		WHERE venue = ? AND symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts DESC` + rangeLimit(limit)
	rows, err := s.db.QueryContext(ctx, q, venue, symbol, from, to)
	if err != nil {
		s.logErr("clickhouse positioning range", venue, symbol, err)
		return nil, fmt.Errorf("positioning range: %w", err)
	}
	defer rows.Close()
	out := make([]models.PositioningSnapshot, 0, 64)
	for rows.Next() {
		var p models.PositioningSnapshot
		if err := rows.Scan(&p.Venue, &p.Symbol, &p.Timestamp, &p.LongShortRatio,
			&p.LongAccountRatio, &p.ShortAccountRatio, &p.TopTraderLongRatio,
			&p.TopTraderShortRatio); err != nil {
			return nil, fmt.Errorf("scan positioning: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *CHStore) LargeFlowRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.LargeFlowSnapshot, error) {
	q := `SELECT venue, symbol, ts, buy_volume, sell_volume, net_flow, threshold, window_ms
		FROM largeflow FINAL
		WHERE venue = ? AND symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts DESC` + rangeLimit(limit)
	rows, err := s.db.QueryContext(ctx, q, venue, symbol, from, to)
	if err != nil {
		s.logErr("clickhouse largeflow range", venue, symbol, err)
		return nil, fmt.Errorf("largeflow range: %w", err)
	}
	defer rows.Close()
	out := make([]models.LargeFlowSnapshot, 0, 64)
	for rows.Next() {
		var f models.LargeFlowSnapshot
		var windowMs int64
		if err := rows.Scan(&f.Venue, &f.Symbol, &f.Timestamp, &f.BuyVolume,
			&f.SellVolume, &f.NetFlow, &f.Threshold, &windowMs); err != nil {
			return nil, fmt.Errorf("scan largeflow: %w", err)
		}
		f.Window = time.Duration(windowMs) * time.Millisecond
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *CHStore) MetricsRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.MetricRecord, error) {
	q := `SELECT venue, symbol, window_end, spread_bps, depth, imbalance,
		uptime_pct, mm_score, large_flow_net, quote_count
		FROM metrics FINAL
		WHERE venue = ? AND symbol = ? AND window_end >= ? AND window_end <= ?
		ORDER BY window_end DESC` + rangeLimit(limit)
	rows, err := s.db.QueryContext(ctx, q, venue, symbol, from, to)
	if err != nil {
		s.logErr("clickhouse metrics range", venue, symbol, err)
		return nil, fmt.Errorf("metrics range: %w", err)
	}
	defer rows.Close()
	out := make([]models.MetricRecord, 0, 256)
	for rows.Next() {
		var m models.MetricRecord
		var depth string
		var spread, imb, score, net sql.NullFloat64
		var quoteCount uint32
		if err := rows.Scan(&m.Venue, &m.Symbol, &m.WindowEnd, &spread, &depth,
			&imb, &m.UptimePct, &score, &net, &quoteCount); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		m.SpreadBps = nullableFloat(spread)
		m.Imbalance = nullableFloat(imb)
		m.MMScore = nullableFloat(score)
		m.LargeFlowNet = nullableFloat(net)
		m.QuoteCount = int(quoteCount)
		if depth != "" {
			if err := json.Unmarshal([]byte(depth), &m.Depth); err != nil {
				return nil, fmt.Errorf("unmarshal depth: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *CHStore) RollupsRange(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.RollupRecord, error) {
	q := `SELECT venue, symbol, bucket_start, avg_spread_bps, min_spread_bps,
		max_spread_bps, avg_uptime_pct, avg_mm_score, trade_volume, large_flow_net, sample_count
		FROM rollups FINAL
		WHERE venue = ? AND symbol = ? AND bucket_start >= ? AND bucket_start <= ?
		ORDER BY bucket_start DESC` + rangeLimit(limit)
	rows, err := s.db.QueryContext(ctx, q, venue, symbol, from, to)
	if err != nil {
		s.logErr("clickhouse rollups range", venue, symbol, err)
		return nil, fmt.Errorf("rollups range: %w", err)
	}
	defer rows.Close()
	out := make([]models.RollupRecord, 0, 256)
	for rows.Next() {
		var r models.RollupRecord
		var avg, min, max, uptime, score sql.NullFloat64
		var samples uint32
		if err := rows.Scan(&r.Venue, &r.Symbol, &r.BucketStart, &avg, &min, &max,
			&uptime, &score, &r.TradeVolume, &r.LargeFlowNet, &samples); err != nil {
			return nil, fmt.Errorf("scan rollup: %w", err)
		}
		r.AvgSpreadBps = nullableFloat(avg)
		r.MinSpreadBps = nullableFloat(min)
		r.MaxSpreadBps = nullableFloat(max)
		r.AvgUptimePct = nullableFloat(uptime)
		r.AvgMMScore = nullableFloat(score)
		r.SampleCount = int(samples)
		out = append(out, r)
	}
	return out, rows.Err()
}

// kindTables maps record kinds to their table and time column for purge.
var kindTables = map[models.Kind][2]string{
	models.KindQuote:       {"quotes", "ts"},
	models.KindOrderBook:   {"orderbooks", "ts"},
	models.KindTrade:       {"trades", "ts"},
	models.KindDerivatives: {"derivatives", "ts"},
	models.KindPositioning: {"positioning", "ts"},
	models.KindLargeFlow:   {"largeflow", "ts"},
	models.KindMetric:      {"metrics", "window_end"},
	models.KindRollup:      {"rollups", "bucket_start"},
}

// Purge counts and then deletes rows older than the cutoff. The count is
// taken before the mutation, which is asynchronous on ClickHouse.
func (s *CHStore) Purge(ctx context.Context, kind models.Kind, olderThan time.Time) (int64, error) {
	tc, ok := kindTables[kind]
	if !ok {
		return 0, fmt.Errorf("purge: unknown kind %q", kind)
	}
	table, col := tc[0], tc[1]

	var n int64
	countQ := fmt.Sprintf("SELECT count() FROM %s WHERE %s < ?", table, col)
	if err := s.db.QueryRowContext(ctx, countQ, olderThan).Scan(&n); err != nil {
		return 0, fmt.Errorf("purge count %s: %w", table, err)
	}
	if n == 0 {
		return 0, nil
	}
	delQ := fmt.Sprintf("ALTER TABLE %s DELETE WHERE %s < ?", table, col)
	if _, err := s.db.ExecContext(ctx, delQ, olderThan); err != nil {
		s.logErr("clickhouse purge", table, "", err)
		return 0, fmt.Errorf("purge %s: %w", table, err)
	}
	return n, nil
}

func (s *CHStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *CHStore) Close() error { return s.db.Close() }

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
