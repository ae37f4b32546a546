package analytics

import (
	"time"

	"MarketLens/internal/domain/models"
)

type bufKey struct {
	venue  string
	symbol string
}

// buffer holds the recent validated records for one (venue, symbol).
// Slices stay ordered by arrival; eviction trims from the front.
type buffer struct {
	quotes []models.QuoteSnapshot
	books  []models.OrderBookSnapshot
	trades []models.TradeRecord
	flows  []models.LargeFlowSnapshot
}

func (b *buffer) evict(cutoff time.Time) {
	b.quotes = evictSlice(b.quotes, cutoff, func(q models.QuoteSnapshot) time.Time { return q.Timestamp })
	b.books = evictSlice(b.books, cutoff, func(s models.OrderBookSnapshot) time.Time { return s.Timestamp })
	b.trades = evictSlice(b.trades, cutoff, func(t models.TradeRecord) time.Time { return t.Timestamp })
	b.flows = evictSlice(b.flows, cutoff, func(f models.LargeFlowSnapshot) time.Time { return f.Timestamp })
}

func (b *buffer) size() int {
	return len(b.quotes) + len(b.books) + len(b.trades) + len(b.flows)
}

func evictSlice[T any](s []T, cutoff time.Time, ts func(T) time.Time) []T {
	i := 0
	for i < len(s) && ts(s[i]).Before(cutoff) {
		i++
	}
	if i == 0 {
		return s
	}
	return append(s[:0], s[i:]...)
}
