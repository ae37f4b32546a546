package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketLens/internal/analytics"
	"MarketLens/internal/domain/models"
	drepo "MarketLens/internal/domain/repository"
	"MarketLens/internal/repository"
	applogger "MarketLens/pkg/logger"
	"MarketLens/pkg/util"
)

// Evaluator runs the metrics engine on a fixed cadence and persists the
// derived metric records.
type Evaluator struct {
	engine   *analytics.Engine
	store    drepo.Store
	interval time.Duration
	log      *applogger.Logger
}

func NewEvaluator(engine *analytics.Engine, store drepo.Store, interval time.Duration, log *applogger.Logger) *Evaluator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Evaluator{engine: engine, store: store, interval: interval, log: log}
}

// Tick evaluates every rolling buffer once and stores the results.
func (e *Evaluator) Tick(ctx context.Context, now time.Time) error {
	ms := e.engine.Evaluate(now)
	if len(ms) == 0 {
		return nil
	}
	if err := e.store.InsertMetrics(ctx, ms); err != nil {
		return fmt.Errorf("store metrics: %w", err)
	}
	e.log.Debug("metrics evaluated", applogger.Int("records", len(ms)))
	return nil
}

// Run drives Tick until ctx is done.
func (e *Evaluator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := e.Tick(ctx, now); err != nil {
				e.log.Error("metric evaluation failed", applogger.Error(err))
			}
		}
	}
}

// RetentionPolicy maps each record kind to its retention horizon. Kinds
// with a zero horizon are never purged.
type RetentionPolicy map[models.Kind]time.Duration

// DefaultRetention mirrors the production horizons: order books are
// bulky and short-lived, rollups survive a year.
func DefaultRetention() RetentionPolicy {
	return RetentionPolicy{
		models.KindOrderBook:   24 * time.Hour,
		models.KindTrade:       72 * time.Hour,
		models.KindQuote:       30 * 24 * time.Hour,
		models.KindDerivatives: 30 * 24 * time.Hour,
		models.KindPositioning: 30 * 24 * time.Hour,
		models.KindLargeFlow:   30 * 24 * time.Hour,
		models.KindMetric:      90 * 24 * time.Hour,
		models.KindRollup:      365 * 24 * time.Hour,
	}
}

// Maintainer owns the rollup and retention jobs.
type Maintainer struct {
	store   drepo.Store
	venues  []string
	symbols []string

	bucket        time.Duration
	rollupWindow  time.Duration
	rollupEvery   time.Duration
	retention     RetentionPolicy
	retentionTick time.Duration

	log *applogger.Logger
}

type MaintainerConfig struct {
	Venues  []string
	Symbols []string

	RollupBucket   time.Duration
	RollupWindow   time.Duration
	RollupInterval time.Duration

	Retention         RetentionPolicy
	RetentionInterval time.Duration
}

func NewMaintainer(store drepo.Store, cfg MaintainerConfig, log *applogger.Logger) *Maintainer {
	if cfg.RollupBucket <= 0 {
		cfg.RollupBucket = 5 * time.Minute
	}
	if cfg.RollupWindow <= 0 {
		cfg.RollupWindow = time.Hour
	}
	if cfg.RollupInterval <= 0 {
		cfg.RollupInterval = 5 * time.Minute
	}
	if cfg.Retention == nil {
		cfg.Retention = DefaultRetention()
	}
	if cfg.RetentionInterval <= 0 {
		cfg.RetentionInterval = 10 * time.Minute
	}
	return &Maintainer{
		store:         store,
		venues:        cfg.Venues,
		symbols:       cfg.Symbols,
		bucket:        cfg.RollupBucket,
		rollupWindow:  cfg.RollupWindow,
		rollupEvery:   cfg.RollupInterval,
		retention:     cfg.Retention,
		retentionTick: cfg.RetentionInterval,
		log:           log,
	}
}

// RunRollup materializes buckets over the trailing window for every
// (venue, symbol). Re-running over an already-materialized range is safe:
// buckets are recomputed from the same rows and upserted by key.
func (m *Maintainer) RunRollup(ctx context.Context, now time.Time) error {
	from, to := util.AlignRange(now.Add(-m.rollupWindow), now, m.bucket)
	var firstErr error
	for _, v := range m.venues {
		for _, sym := range m.symbols {
			if err := m.rollupOne(ctx, v, sym, from, to); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Maintainer) rollupOne(ctx context.Context, venue, symbol string, from, to time.Time) error {
	metrics, err := m.store.MetricsRange(ctx, venue, symbol, from, to, 0)
	if err != nil {
		return fmt.Errorf("rollup metrics range: %w", err)
	}
	trades, err := m.store.TradesRange(ctx, venue, symbol, from, to, 0)
	if err != nil {
		return fmt.Errorf("rollup trades range: %w", err)
	}
	flows, err := m.store.LargeFlowRange(ctx, venue, symbol, from, to, 0)
	if err != nil {
		return fmt.Errorf("rollup largeflow range: %w", err)
	}
	rs := repository.ComputeRollups(m.bucket, metrics, trades, flows)
	if len(rs) == 0 {
		return nil
	}
	if err := m.store.UpsertRollups(ctx, rs); err != nil {
		return fmt.Errorf("upsert rollups: %w", err)
	}
	m.log.Debug("rollup materialized",
		applogger.String("venue", venue),
		applogger.String("symbol", symbol),
		applogger.Int("buckets", len(rs)))
	return nil
}

// RunRetention purges each kind past its horizon.
func (m *Maintainer) RunRetention(ctx context.Context, now time.Time) {
	for kind, horizon := range m.retention {
		if horizon <= 0 {
			continue
		}
		n, err := m.store.Purge(ctx, kind, now.Add(-horizon))
		if err != nil {
			m.log.Error("retention purge failed",
				applogger.String("kind", string(kind)), applogger.Error(err))
			continue
		}
		if n > 0 {
			m.log.Info("retention purged",
				applogger.String("kind", string(kind)), applogger.Int64("rows", n))
		}
	}
}

// Run drives both jobs on their own tickers until ctx is done.
func (m *Maintainer) Run(ctx context.Context) {
	rollup := time.NewTicker(m.rollupEvery)
	retention := time.NewTicker(m.retentionTick)
	defer rollup.Stop()
	defer retention.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-rollup.C:
			if err := m.RunRollup(ctx, now); err != nil {
				m.log.Error("rollup job failed", applogger.Error(err))
			}
		case now := <-retention.C:
			m.RunRetention(ctx, now)
		}
	}
}
