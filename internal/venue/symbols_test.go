package venue_test

import (
	"testing"

	"MarketLens/internal/venue/gate"
	"MarketLens/internal/venue/kucoin"
)

func TestGateSymbolMapping(t *testing.T) {
	cases := map[string]string{
		"BTCUSDT": "BTC_USDT",
		"ETHUSDT": "ETH_USDT",
		"ETHBTC":  "ETH_BTC",
		"WEIRD":   "WEIRD",
	}
	for in, want := range cases {
		if got := gate.MapSymbol(in); got != want {
			t.Fatalf("gate.MapSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKucoinSymbolMapping(t *testing.T) {
	cases := map[string]string{
		"BTCUSDT": "BTC-USDT",
		"ETHUSDC": "ETH-USDC",
		"ETHBTC":  "ETH-BTC",
	}
	for in, want := range cases {
		if got := kucoin.MapSymbol(in); got != want {
			t.Fatalf("kucoin.MapSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
