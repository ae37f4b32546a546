package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketLens/internal/domain/models"
	drepo "MarketLens/internal/domain/repository"
)

// QueryUseCase answers read requests. Latest-snapshot lookups go through
// the cache first and fall back to the store; range queries always hit
// the store.
type QueryUseCase struct {
	store drepo.Store
	cache drepo.LatestCache
}

func NewQueryUseCase(store drepo.Store, cache drepo.LatestCache) *QueryUseCase {
	return &QueryUseCase{store: store, cache: cache}
}

func (u *QueryUseCase) LatestQuote(ctx context.Context, venue, symbol string) (*models.QuoteSnapshot, error) {
	if u.cache != nil {
		if q, ok := u.cache.GetQuote(ctx, venue, symbol); ok {
			return q, nil
		}
	}
	q, err := u.store.LatestQuote(ctx, venue, symbol)
	if err != nil {
		return nil, fmt.Errorf("latest quote: %w", err)
	}
	if q != nil && u.cache != nil {
		u.cache.SetQuote(ctx, q)
	}
	return q, nil
}

func (u *QueryUseCase) LatestOrderBook(ctx context.Context, venue, symbol string) (*models.OrderBookSnapshot, error) {
	if u.cache != nil {
		if b, ok := u.cache.GetOrderBook(ctx, venue, symbol); ok {
			return b, nil
		}
	}
	b, err := u.store.LatestOrderBook(ctx, venue, symbol)
	if err != nil {
		return nil, fmt.Errorf("latest orderbook: %w", err)
	}
	if b != nil && u.cache != nil {
		u.cache.SetOrderBook(ctx, b)
	}
	return b, nil
}

func (u *QueryUseCase) Quotes(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.QuoteSnapshot, error) {
	return u.store.QuotesRange(ctx, venue, symbol, from, to, limit)
}

func (u *QueryUseCase) Trades(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.TradeRecord, error) {
	return u.store.TradesRange(ctx, venue, symbol, from, to, limit)
}

func (u *QueryUseCase) Derivatives(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.DerivativesSnapshot, error) {
	return u.store.DerivativesRange(ctx, venue, symbol, from, to, limit)
}

func (u *QueryUseCase) Positioning(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.PositioningSnapshot, error) {
	return u.store.PositioningRange(ctx, venue, symbol, from, to, limit)
}

func (u *QueryUseCase) LargeFlows(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.LargeFlowSnapshot, error) {
	return u.store.LargeFlowRange(ctx, venue, symbol, from, to, limit)
}

func (u *QueryUseCase) Metrics(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.MetricRecord, error) {
	return u.store.MetricsRange(ctx, venue, symbol, from, to, limit)
}

func (u *QueryUseCase) Rollups(ctx context.Context, venue, symbol string, from, to time.Time, limit int) ([]models.RollupRecord, error) {
	return u.store.RollupsRange(ctx, venue, symbol, from, to, limit)
}

// Compliance summarizes stored metric records over the window. It never
// recomputes from raw quotes: metrics are the single source of truth for
// spread and uptime history. Samples with a nil spread count toward the
// total but not toward the under-threshold fraction.
func (u *QueryUseCase) Compliance(ctx context.Context, venue, symbol string, from, to time.Time, thresholdBps float64) (*models.ComplianceSummary, error) {
	ms, err := u.store.MetricsRange(ctx, venue, symbol, from, to, 0)
	if err != nil {
		return nil, fmt.Errorf("compliance metrics range: %w", err)
	}
	sum := &models.ComplianceSummary{
		Venue:             venue,
		Symbol:            symbol,
		WindowStart:       from,
		WindowEnd:         to,
		Samples:           len(ms),
		SpreadThresholdBp: thresholdBps,
	}
	if len(ms) == 0 {
		return sum, nil
	}
	var (
		under              int
		spreadSum          float64
		spreadN            int
		minSpread          float64
		maxSpread          float64
		uptimeSum          float64
		haveSpreadExtremes bool
	)
	for i := range ms {
		m := &ms[i]
		uptimeSum += m.UptimePct
		if m.SpreadBps == nil {
			continue
		}
		s := *m.SpreadBps
		spreadSum += s
		spreadN++
		if s <= thresholdBps {
			under++
		}
		if !haveSpreadExtremes || s < minSpread {
			minSpread = s
		}
		if !haveSpreadExtremes || s > maxSpread {
			maxSpread = s
		}
		haveSpreadExtremes = true
	}
	sum.UnderThresholdPct = float64(under) / float64(len(ms)) * 100
	avgUptime := uptimeSum / float64(len(ms))
	sum.AvgUptimePct = &avgUptime
	if spreadN > 0 {
		avg := spreadSum / float64(spreadN)
		sum.AvgSpreadBps = &avg
		sum.MinSpreadBps = &minSpread
		sum.MaxSpreadBps = &maxSpread
	}
	return sum, nil
}
