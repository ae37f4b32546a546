package repository

import (
	"time"

	"MarketLens/internal/domain/models"
)

// ComputeRollups buckets metric, trade and large-flow records into fixed
// windows and aggregates them. It is pure: re-running it over the same
// inputs yields the same bucket rows, which combined with the store's
// upsert-by-bucket-key makes the rollup job safely re-runnable.
func ComputeRollups(bucket time.Duration, metrics []models.MetricRecord, trades []models.TradeRecord, flows []models.LargeFlowSnapshot) []models.RollupRecord {
	if bucket <= 0 {
		bucket = 5 * time.Minute
	}
	acc := make(map[models.RecordKey]*rollupAcc)

	get := func(venue, symbol string, ts time.Time) *rollupAcc {
		k := models.RecordKey{Venue: venue, Symbol: symbol, Kind: models.KindRollup,
			Timestamp: ts.UTC().Truncate(bucket)}
		a, ok := acc[k]
		if !ok {
			a = &rollupAcc{}
			acc[k] = a
		}
		return a
	}

	for _, m := range metrics {
		a := get(m.Venue, m.Symbol, m.WindowEnd)
		a.samples++
		if m.SpreadBps != nil {
			a.addSpread(*m.SpreadBps)
		}
		a.uptimeSum += m.UptimePct
		a.uptimeN++
		if m.MMScore != nil {
			a.scoreSum += *m.MMScore
			a.scoreN++
		}
	}
	for _, t := range trades {
		a := get(t.Venue, t.Symbol, t.Timestamp)
		a.tradeVolume += t.Price.InexactFloat64() * t.Quantity.InexactFloat64()
	}
	for _, f := range flows {
		a := get(f.Venue, f.Symbol, f.Timestamp)
		a.netFlow += f.NetFlow.InexactFloat64()
	}

	out := make([]models.RollupRecord, 0, len(acc))
	for k, a := range acc {
		out = append(out, a.record(k))
	}
	return out
}

type rollupAcc struct {
	samples   int
	spreadSum float64
	spreadN   int
	spreadMin float64
	spreadMax float64

	uptimeSum float64
	uptimeN   int
	scoreSum  float64
	scoreN    int

	tradeVolume float64
	netFlow     float64
}

func (a *rollupAcc) addSpread(s float64) {
	if a.spreadN == 0 || s < a.spreadMin {
		a.spreadMin = s
	}
	if a.spreadN == 0 || s > a.spreadMax {
		a.spreadMax = s
	}
	a.spreadSum += s
	a.spreadN++
}

func (a *rollupAcc) record(k models.RecordKey) models.RollupRecord {
	r := models.RollupRecord{
		Venue:        k.Venue,
		Symbol:       k.Symbol,
		BucketStart:  k.Timestamp,
		TradeVolume:  a.tradeVolume,
		LargeFlowNet: a.netFlow,
		SampleCount:  a.samples,
	}
	if a.spreadN > 0 {
		avg := a.spreadSum / float64(a.spreadN)
		min, max := a.spreadMin, a.spreadMax
		r.AvgSpreadBps, r.MinSpreadBps, r.MaxSpreadBps = &avg, &min, &max
	}
	if a.uptimeN > 0 {
		u := a.uptimeSum / float64(a.uptimeN)
		r.AvgUptimePct = &u
	}
	if a.scoreN > 0 {
		sc := a.scoreSum / float64(a.scoreN)
		r.AvgMMScore = &sc
	}
	return r
}
