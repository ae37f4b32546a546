package repository

import "testing"

func TestRangeLimitUnbounded(t *testing.T) {
	if got := rangeLimit(0); got != "" {
		t.Fatalf("limit 0 must mean unbounded, got %q", got)
	}
	if got := rangeLimit(-1); got != "" {
		t.Fatalf("negative limit must mean unbounded, got %q", got)
	}
}

func TestRangeLimitPositive(t *testing.T) {
	if got := rangeLimit(25); got != " LIMIT 25" {
		t.Fatalf("unexpected clause %q", got)
	}
}
