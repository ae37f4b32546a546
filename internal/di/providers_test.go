package di

import (
	"testing"

	"MarketLens/pkg/config"
)

func TestRateLimitsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Venues.BinancePerps.RateLimit.Capacity = 10
	cfg.Venues.BinancePerps.RateLimit.RefillPerSec = 2.5
	cfg.Venues.Kucoin.RateLimit.Capacity = 30
	cfg.Venues.Kucoin.RateLimit.RefillPerSec = 5

	out := rateLimits(cfg)
	rl, ok := out["binance_perps"]
	if !ok {
		t.Fatalf("expected binance_perps budget, got %v", out)
	}
	if rl.Capacity != 10 || rl.RefillPerSec != 2.5 {
		t.Fatalf("unexpected budget %+v", rl)
	}
	if rl, ok = out["kucoin"]; !ok || rl.Capacity != 30 {
		t.Fatalf("unexpected kucoin budget %+v ok=%v", rl, ok)
	}
	if _, ok = out["gate"]; ok {
		t.Fatalf("gate has no configured budget")
	}
}
