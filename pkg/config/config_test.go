package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
environment: test
server:
  port: 8080
  read_timeout: 10s
  write_timeout: 10s
  shutdown_timeout: 10s
collector:
  symbols: [BTCUSDT, ETHUSDT]
  cadences:
    quote: 30s
    orderbook: 60s
venues:
  binance_spot:
    enabled: true
    base_url: https://api.binance.com
    rate_limit:
      capacity: 10
      refill_per_sec: 2
  gate:
    enabled: true
    base_url: https://api.gateio.ws
engine:
  lookback: 15m
  depth_bands: [0.01, 0.02, 0.04, 0.08]
clickhouse:
  host: localhost
  port: 9000
  database: marketlens
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "test" {
		t.Fatalf("environment = %q", c.Environment)
	}
	if len(c.Collector.Symbols) != 2 {
		t.Fatalf("symbols = %v", c.Collector.Symbols)
	}
	if c.Collector.Cadences.Quote != 30*time.Second {
		t.Fatalf("quote cadence = %v", c.Collector.Cadences.Quote)
	}
	if !c.Venues.BinanceSpot.Enabled || c.Venues.BinanceSpot.BaseURL != "https://api.binance.com" {
		t.Fatalf("binance_spot block not parsed: %+v", c.Venues.BinanceSpot)
	}
	if c.Venues.BinanceSpot.RateLimit.RefillPerSec != 2 {
		t.Fatalf("rate limit not parsed: %+v", c.Venues.BinanceSpot.RateLimit)
	}
	if len(c.Engine.DepthBands) != 4 {
		t.Fatalf("depth bands = %v", c.Engine.DepthBands)
	}
}

func TestLoadRejectsNoSymbols(t *testing.T) {
	bad := `
environment: test
venues:
  gate:
    enabled: true
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected error for empty symbols")
	}
}

func TestLoadRejectsNoVenues(t *testing.T) {
	bad := `
environment: test
collector:
  symbols: [BTCUSDT]
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected error with every venue disabled")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "SOLUSDT")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_TOPIC", "market.records")

	c, err := LoadWithEnv(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Collector.Symbols) != 1 || c.Collector.Symbols[0] != "SOLUSDT" {
		t.Fatalf("symbols override = %v", c.Collector.Symbols)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka override = %+v", c.Kafka)
	}
	if c.Kafka.Topic != "market.records" {
		t.Fatalf("topic override = %q", c.Kafka.Topic)
	}
}
