package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"MarketLens/internal/domain/models"
	drepo "MarketLens/internal/domain/repository"
)

// MemoryStore is an in-memory Store for tests and the `backend: memory`
// mode. It enforces the same uniqueness key as the ClickHouse backend:
// an insert for an already-present (venue, symbol, kind, timestamp) is a
// silent no-op.
type MemoryStore struct {
	mu sync.RWMutex

	quotes      map[models.RecordKey]models.QuoteSnapshot
	books       map[models.RecordKey]models.OrderBookSnapshot
	trades      map[models.RecordKey]models.TradeRecord
	derivatives map[models.RecordKey]models.DerivativesSnapshot
	positioning map[models.RecordKey]models.PositioningSnapshot
	largeflow   map[models.RecordKey]models.LargeFlowSnapshot
	metrics     map[models.RecordKey]models.MetricRecord
	rollups     map[models.RecordKey]models.RollupRecord
}

var _ drepo.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotes:      make(map[models.RecordKey]models.QuoteSnapshot),
		books:       make(map[models.RecordKey]models.OrderBookSnapshot),
		trades:      make(map[models.RecordKey]models.TradeRecord),
		derivatives: make(map[models.RecordKey]models.DerivativesSnapshot),
		positioning: make(map[models.RecordKey]models.PositioningSnapshot),
		largeflow:   make(map[models.RecordKey]models.LargeFlowSnapshot),
		metrics:     make(map[models.RecordKey]models.MetricRecord),
		rollups:     make(map[models.RecordKey]models.RollupRecord),
	}
}

func (s *MemoryStore) InsertQuote(_ context.Context, q *models.QuoteSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := q.RecordKey()
	if _, exists := s.quotes[k]; !exists {
		s.quotes[k] = *q
	}
	return nil
}

func (s *MemoryStore) InsertOrderBook(_ context.Context, b *models.OrderBookSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := b.RecordKey()
	if _, exists := s.books[k]; !exists {
		s.books[k] = *b
	}
	return nil
}

func (s *MemoryStore) InsertTrades(_ context.Context, trades []models.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range trades {
		k := t.RecordKey()
		if _, exists := s.trades[k]; !exists {
			s.trades[k] = t
		}
	}
	return nil
}

func (s *MemoryStore) InsertDerivatives(_ context.Context, d *models.DerivativesSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := d.RecordKey()
	if _, exists := s.derivatives[k]; !exists {
		s.derivatives[k] = *d
	}
	return nil
}

func (s *MemoryStore) InsertPositioning(_ context.Context, p *models.PositioningSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := p.RecordKey()
	if _, exists := s.positioning[k]; !exists {
		s.positioning[k] = *p
	}
	return nil
}

func (s *MemoryStore) InsertLargeFlow(_ context.Context, f *models.LargeFlowSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := f.RecordKey()
	if _, exists := s.largeflow[k]; !exists {
		s.largeflow[k] = *f
	}
	return nil
}

func (s *MemoryStore) InsertMetrics(_ context.Context, ms []models.MetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range ms {
		k := m.RecordKey()
		if _, exists := s.metrics[k]; !exists {
			s.metrics[k] = m
		}
	}
	return nil
}

// UpsertRollups overwrites by bucket key, matching the ReplacingMergeTree
// behavior of the ClickHouse backend.
func (s *MemoryStore) UpsertRollups(_ context.Context, rs []models.RollupRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		s.rollups[r.RecordKey()] = r
	}
	return nil
}

func (s *MemoryStore) LatestQuote(_ context.Context, venue, symbol string) (*models.QuoteSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.QuoteSnapshot
	for k, q := range s.quotes {
		if k.Venue != venue || k.Symbol != symbol {
			continue
		}
		if best == nil || q.Timestamp.After(best.Timestamp) {
			q := q
			best = &q
		}
	}
	return best, nil
}

func (s *MemoryStore) LatestOrderBook(_ context.Context, venue, symbol string) (*models.OrderBookSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.OrderBookSnapshot
	for k, b := range s.books {
		if k.Venue != venue || k.Symbol != symbol {
			continue
		}
		if best == nil || b.Timestamp.After(best.Timestamp) {
			b := b
			best = &b
		}
	}
	return best, nil
}

func inRange(k models.RecordKey, venue, symbol string, from, to time.Time) bool {
	if k.Venue != venue || k.Symbol != symbol {
		return false
	}
	return !k.Timestamp.Before(from) && !k.Timestamp.After(to)
}

func (s *MemoryStore) QuotesRange(_ context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.QuoteSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.QuoteSnapshot, 0)
	for k, q := range s.quotes {
		if inRange(k, venue, symbol, from, to) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return capLimit(out, limit), nil
}

func (s *MemoryStore) TradesRange(_ context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TradeRecord, 0)
	for k, t := range s.trades {
		if inRange(k, venue, symbol, from, to) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return capLimit(out, limit), nil
}

func (s *MemoryStore) DerivativesRange(_ context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.DerivativesSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DerivativesSnapshot, 0)
	for k, d := range s.derivatives {
		if inRange(k, venue, symbol, from, to) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return capLimit(out, limit), nil
}

func (s *MemoryStore) PositioningRange(_ context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.PositioningSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PositioningSnapshot, 0)
	for k, p := range s.positioning {
		if inRange(k, venue, symbol, from, to) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return capLimit(out, limit), nil
}

func (s *MemoryStore) LargeFlowRange(_ context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.LargeFlowSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LargeFlowSnapshot, 0)
	for k, f := range s.largeflow {
		if inRange(k, venue, symbol, from, to) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return capLimit(out, limit), nil
}

func (s *MemoryStore) MetricsRange(_ context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.MetricRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MetricRecord, 0)
	for k, m := range s.metrics {
		if inRange(k, venue, symbol, from, to) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WindowEnd.After(out[j].WindowEnd) })
	return capLimit(out, limit), nil
}

func (s *MemoryStore) RollupsRange(_ context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.RollupRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RollupRecord, 0)
	for k, r := range s.rollups {
		if inRange(k, venue, symbol, from, to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.After(out[j].BucketStart) })
	return capLimit(out, limit), nil
}

func (s *MemoryStore) Purge(_ context.Context, kind models.Kind, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	switch kind {
	case models.KindQuote:
		n = purgeMap(s.quotes, olderThan)
	case models.KindOrderBook:
		n = purgeMap(s.books, olderThan)
	case models.KindTrade:
		n = purgeMap(s.trades, olderThan)
	case models.KindDerivatives:
		n = purgeMap(s.derivatives, olderThan)
	case models.KindPositioning:
		n = purgeMap(s.positioning, olderThan)
	case models.KindLargeFlow:
		n = purgeMap(s.largeflow, olderThan)
	case models.KindMetric:
		n = purgeMap(s.metrics, olderThan)
	case models.KindRollup:
		n = purgeMap(s.rollups, olderThan)
	}
	return n, nil
}

func purgeMap[T any](m map[models.RecordKey]T, olderThan time.Time) int64 {
	var n int64
	for k := range m {
		if k.Timestamp.Before(olderThan) {
			delete(m, k)
			n++
		}
	}
	return n
}

func capLimit[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
