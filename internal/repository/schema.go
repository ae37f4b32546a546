package repository

// Schema returns the DDL for every record table, in dependency order.
// All tables are ReplacingMergeTree keyed on the record's uniqueness
// tuple, which is what makes retried inserts idempotent: replayed rows
// collapse on merge and reads use FINAL.
func Schema(database string) []string {
	prefix := ""
	stmts := []string{}
	if database != "" {
		stmts = append(stmts, "CREATE DATABASE IF NOT EXISTS "+database)
		prefix = database + "."
	}
	return append(stmts,
		`CREATE TABLE IF NOT EXISTS `+prefix+`quotes (
			venue LowCardinality(String),
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			bid Decimal(38, 12),
			ask Decimal(38, 12),
			bid_size Decimal(38, 12),
			ask_size Decimal(38, 12),
			last_price Decimal(38, 12),
			volume_24h Decimal(38, 12),
			high_24h Decimal(38, 12),
			low_24h Decimal(38, 12),
			change_pct_24h Decimal(38, 12),
			invalid UInt8
		) ENGINE = ReplacingMergeTree
		ORDER BY (venue, symbol, ts)`,

		`CREATE TABLE IF NOT EXISTS `+prefix+`orderbooks (
			venue LowCardinality(String),
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			bids String,
			asks String,
			invalid UInt8
		) ENGINE = ReplacingMergeTree
		ORDER BY (venue, symbol, ts)`,

		`CREATE TABLE IF NOT EXISTS `+prefix+`trades (
			venue LowCardinality(String),
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			price Decimal(38, 12),
			quantity Decimal(38, 12),
			side LowCardinality(String),
			trade_id String,
			maker UInt8
		) ENGINE = ReplacingMergeTree
		ORDER BY (venue, symbol, ts)`,

		`CREATE TABLE IF NOT EXISTS `+prefix+`derivatives (
			venue LowCardinality(String),
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			mark_price Decimal(38, 12),
			index_price Decimal(38, 12),
			funding_rate Decimal(38, 12),
			open_interest Decimal(38, 12),
			next_funding_time DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree
		ORDER BY (venue, symbol, ts)`,

		`CREATE TABLE IF NOT EXISTS `+prefix+`positioning (
			venue LowCardinality(String),
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			long_short_ratio Decimal(38, 12),
			long_account_ratio Decimal(38, 12),
			short_account_ratio Decimal(38, 12),
			top_trader_long_ratio Decimal(38, 12),
			top_trader_short_ratio Decimal(38, 12)
		) ENGINE = ReplacingMergeTree
		ORDER BY (venue, symbol, ts)`,

		`CREATE TABLE IF NOT EXISTS `+prefix+`largeflow (
			venue LowCardinality(String),
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			buy_volume Decimal(38, 12),
			sell_volume Decimal(38, 12),
			net_flow Decimal(38, 12),
			threshold Decimal(38, 12),
			window_ms Int64
		) ENGINE = ReplacingMergeTree
		ORDER BY (venue, symbol, ts)`,

		`CREATE TABLE IF NOT EXISTS `+prefix+`metrics (
			venue LowCardinality(String),
			symbol LowCardinality(String),
			window_end DateTime64(3, 'UTC'),
			spread_bps Nullable(Float64),
			depth String,
			imbalance Nullable(Float64),
			uptime_pct Float64,
			mm_score Nullable(Float64),
			large_flow_net Nullable(Float64),
			quote_count UInt32
		) ENGINE = ReplacingMergeTree
		ORDER BY (venue, symbol, window_end)`,

		`CREATE TABLE IF NOT EXISTS `+prefix+`rollups (
			venue LowCardinality(String),
			symbol LowCardinality(String),
			bucket_start DateTime64(3, 'UTC'),
			avg_spread_bps Nullable(Float64),
			min_spread_bps Nullable(Float64),
			max_spread_bps Nullable(Float64),
			avg_uptime_pct Nullable(Float64),
			avg_mm_score Nullable(Float64),
			trade_volume Float64,
			large_flow_net Float64,
			sample_count UInt32
		) ENGINE = ReplacingMergeTree
		ORDER BY (venue, symbol, bucket_start)`,
	)
}
