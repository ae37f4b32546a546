package venue

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSymbolSetIdentity(t *testing.T) {
	s := NewSymbolSet([]string{"BTCUSDT", "ETHUSDT"}, nil)
	if !s.Contains("BTCUSDT") {
		t.Fatalf("expected BTCUSDT supported")
	}
	if s.Contains("XRPUSDT") {
		t.Fatalf("did not expect XRPUSDT")
	}
	v, ok := s.Venue("ETHUSDT")
	if !ok || v != "ETHUSDT" {
		t.Fatalf("unexpected venue symbol %q", v)
	}
}

func TestSymbolSetMapping(t *testing.T) {
	s := NewSymbolSet([]string{"BTCUSDT"}, func(sym string) string { return sym + "M" })
	v, ok := s.Venue("BTCUSDT")
	if !ok || v != "BTCUSDTM" {
		t.Fatalf("unexpected venue symbol %q", v)
	}
	c, ok := s.Canonical("BTCUSDTM")
	if !ok || c != "BTCUSDT" {
		t.Fatalf("unexpected canonical %q", c)
	}
}

func TestParseDecimalEmpty(t *testing.T) {
	d, err := ParseDecimal("x", "quote", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsZero() {
		t.Fatalf("expected zero for empty field")
	}
}

func TestParseDecimalMalformed(t *testing.T) {
	_, err := ParseDecimal("x", "quote", "not-a-number")
	if err == nil {
		t.Fatalf("expected error")
	}
	if KindOf(err) != ErrMalformed {
		t.Fatalf("expected malformed, got %v", KindOf(err))
	}
}

func TestParseLevels(t *testing.T) {
	ob, err := ParseLevels("x", "BTCUSDT",
		[][2]string{{"100.5", "2"}, {"100.0", "1"}},
		[][2]string{{"101.0", "3"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ob.Bids) != 2 || len(ob.Asks) != 1 {
		t.Fatalf("unexpected level counts %d/%d", len(ob.Bids), len(ob.Asks))
	}
	bb, ok := ob.BestBid()
	if !ok || !bb.Price.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("unexpected best bid %v", bb.Price)
	}
	ba, ok := ob.BestAsk()
	if !ok || !ba.Price.Equal(decimal.RequireFromString("101.0")) {
		t.Fatalf("unexpected best ask %v", ba.Price)
	}
}

func TestUnsupportedClassified(t *testing.T) {
	u := Unsupported{VenueName: "x"}
	_, err := u.FetchDerivatives(context.Background(), "BTCUSDT")
	if KindOf(err) != ErrUnsupportedSymbol {
		t.Fatalf("expected unsupported, got %v", KindOf(err))
	}
}
