package repository

import (
	"context"
	"fmt"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/internal/domain/repository"
	"MarketLens/pkg/cache"
)

// CacheLatest implements LatestCache on top of pkg/cache (Redis, memory
// or layered). Reads fall back to the store on any cache error, so all
// cache failures here are swallowed.
type CacheLatest struct {
	c   cache.Service
	ttl time.Duration
}

func NewCacheLatest(c cache.Service, ttl time.Duration) repository.LatestCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &CacheLatest{c: c, ttl: ttl}
}

func latestKey(kind models.Kind, venue, symbol string) string {
	return fmt.Sprintf("latest:%s:%s:%s", kind, venue, symbol)
}

func (cl *CacheLatest) GetQuote(ctx context.Context, venue, symbol string) (*models.QuoteSnapshot, bool) {
	var q models.QuoteSnapshot
	if err := cl.c.Get(ctx, latestKey(models.KindQuote, venue, symbol), &q); err != nil {
		return nil, false
	}
	return &q, true
}

func (cl *CacheLatest) SetQuote(ctx context.Context, q *models.QuoteSnapshot) {
	_ = cl.c.Set(ctx, latestKey(models.KindQuote, q.Venue, q.Symbol), q, cl.ttl)
}

func (cl *CacheLatest) GetOrderBook(ctx context.Context, venue, symbol string) (*models.OrderBookSnapshot, bool) {
	var b models.OrderBookSnapshot
	if err := cl.c.Get(ctx, latestKey(models.KindOrderBook, venue, symbol), &b); err != nil {
		return nil, false
	}
	return &b, true
}

func (cl *CacheLatest) SetOrderBook(ctx context.Context, b *models.OrderBookSnapshot) {
	_ = cl.c.Set(ctx, latestKey(models.KindOrderBook, b.Venue, b.Symbol), b, cl.ttl)
}
