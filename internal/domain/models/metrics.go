package models

import "time"

// BandDepth is cumulative order size within a percentage band from mid-price.
// Bid and Ask are nil when no order book was available in the window.
type BandDepth struct {
	Pct float64  `json:"pct"`
	Bid *float64 `json:"bid"`
	Ask *float64 `json:"ask"`
}

// MetricRecord is one derived-metric evaluation for a (venue, symbol) pair,
// stamped with the end of the evaluation window. Nil fields mean the input
// needed to derive them was missing; derivation never fails outright.
type MetricRecord struct {
	Venue     string    `json:"venue"`
	Symbol    string    `json:"symbol"`
	WindowEnd time.Time `json:"window_end"`

	SpreadBps    *float64    `json:"spread_bps"`
	Depth        []BandDepth `json:"depth"`
	Imbalance    *float64    `json:"imbalance"`
	UptimePct    float64     `json:"uptime_pct"`
	MMScore      *float64    `json:"mm_score"`
	LargeFlowNet *float64    `json:"large_flow_net"`
	QuoteCount   int         `json:"quote_count"`
}

func (m *MetricRecord) RecordKey() RecordKey {
	return RecordKey{Venue: m.Venue, Symbol: m.Symbol, Kind: KindMetric, Timestamp: m.WindowEnd}
}

// RollupRecord is a fixed time-bucket aggregate over raw quote and metric
// records, keyed by (venue, symbol, bucket_start).
type RollupRecord struct {
	Venue       string    `json:"venue"`
	Symbol      string    `json:"symbol"`
	BucketStart time.Time `json:"bucket_start"`

	AvgSpreadBps *float64 `json:"avg_spread_bps"`
	MinSpreadBps *float64 `json:"min_spread_bps"`
	MaxSpreadBps *float64 `json:"max_spread_bps"`
	AvgUptimePct *float64 `json:"avg_uptime_pct"`
	AvgMMScore   *float64 `json:"avg_mm_score"`
	TradeVolume  float64  `json:"trade_volume"`
	LargeFlowNet float64  `json:"large_flow_net"`
	SampleCount  int      `json:"sample_count"`
}

func (r *RollupRecord) RecordKey() RecordKey {
	return RecordKey{Venue: r.Venue, Symbol: r.Symbol, Kind: KindRollup, Timestamp: r.BucketStart}
}

// ComplianceSummary is computed by scanning MetricRecords over a window;
// it is never recomputed from raw data.
type ComplianceSummary struct {
	Venue             string    `json:"venue"`
	Symbol            string    `json:"symbol"`
	WindowStart       time.Time `json:"window_start"`
	WindowEnd         time.Time `json:"window_end"`
	Samples           int       `json:"samples"`
	SpreadThresholdBp float64   `json:"spread_threshold_bps"`
	UnderThresholdPct float64   `json:"under_threshold_pct"`
	AvgSpreadBps      *float64  `json:"avg_spread_bps"`
	MinSpreadBps      *float64  `json:"min_spread_bps"`
	MaxSpreadBps      *float64  `json:"max_spread_bps"`
	AvgUptimePct      *float64  `json:"avg_uptime_pct"`
}

// VenueStatus is the health classification of one venue's adapter.
type VenueStatus string

const (
	VenueHealthy  VenueStatus = "Healthy"
	VenueDegraded VenueStatus = "Degraded"
	VenueUnknown  VenueStatus = "Unknown"
)

// VenueHealth is the per-venue entry on the health endpoint.
type VenueHealth struct {
	Venue        string      `json:"venue"`
	Status       VenueStatus `json:"status"`
	LastSuccess  time.Time   `json:"last_success"`
	FailureCount int64       `json:"failure_count"`
}
