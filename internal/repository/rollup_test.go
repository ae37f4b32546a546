package repository

import (
	"reflect"
	"sort"
	"testing"
	"time"

	"MarketLens/internal/domain/models"

	"github.com/shopspring/decimal"
)

func metricAt(ts time.Time, spread float64, uptime float64) models.MetricRecord {
	return models.MetricRecord{
		Venue: "gate", Symbol: "BTCUSDT", WindowEnd: ts,
		SpreadBps: &spread, UptimePct: uptime,
	}
}

func TestComputeRollupsAggregates(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	metrics := []models.MetricRecord{
		metricAt(base.Add(30*time.Second), 10, 100),
		metricAt(base.Add(90*time.Second), 20, 50),
		metricAt(base.Add(6*time.Minute), 40, 100), // next bucket
	}
	trades := []models.TradeRecord{{
		Venue: "gate", Symbol: "BTCUSDT", Timestamp: base.Add(time.Minute),
		Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(2), Side: models.SideBuy,
	}}

	rs := ComputeRollups(5*time.Minute, metrics, trades, nil)
	if len(rs) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(rs))
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].BucketStart.Before(rs[j].BucketStart) })

	b0 := rs[0]
	if !b0.BucketStart.Equal(base) {
		t.Fatalf("unexpected bucket start %v", b0.BucketStart)
	}
	if *b0.AvgSpreadBps != 15 || *b0.MinSpreadBps != 10 || *b0.MaxSpreadBps != 20 {
		t.Fatalf("unexpected spread aggregates %+v", b0)
	}
	if *b0.AvgUptimePct != 75 {
		t.Fatalf("unexpected uptime %v", *b0.AvgUptimePct)
	}
	if b0.TradeVolume != 200 {
		t.Fatalf("unexpected trade volume %v", b0.TradeVolume)
	}
	if b0.SampleCount != 2 {
		t.Fatalf("unexpected sample count %d", b0.SampleCount)
	}

	b1 := rs[1]
	if !b1.BucketStart.Equal(base.Add(5 * time.Minute)) {
		t.Fatalf("unexpected second bucket %v", b1.BucketStart)
	}
	if *b1.AvgSpreadBps != 40 || b1.SampleCount != 1 {
		t.Fatalf("unexpected second bucket aggregates %+v", b1)
	}
}

func TestComputeRollupsDeterministic(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	metrics := []models.MetricRecord{
		metricAt(base.Add(time.Minute), 10, 100),
		metricAt(base.Add(2*time.Minute), 30, 100),
	}

	a := ComputeRollups(5*time.Minute, metrics, nil, nil)
	b := ComputeRollups(5*time.Minute, metrics, nil, nil)
	if !reflect.DeepEqual(normalize(a), normalize(b)) {
		t.Fatalf("rollup computation not deterministic")
	}
}

func normalize(rs []models.RollupRecord) []models.RollupRecord {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Venue != rs[j].Venue {
			return rs[i].Venue < rs[j].Venue
		}
		if rs[i].Symbol != rs[j].Symbol {
			return rs[i].Symbol < rs[j].Symbol
		}
		return rs[i].BucketStart.Before(rs[j].BucketStart)
	})
	return rs
}

func TestComputeRollupsNullSpread(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := models.MetricRecord{Venue: "gate", Symbol: "BTCUSDT", WindowEnd: base, UptimePct: 0}

	rs := ComputeRollups(5*time.Minute, []models.MetricRecord{m}, nil, nil)
	if len(rs) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(rs))
	}
	if rs[0].AvgSpreadBps != nil || rs[0].MinSpreadBps != nil {
		t.Fatalf("expected null spread aggregates when no metric had a spread")
	}
}
