package util

import "testing"

func TestToExchangeTicker(t *testing.T) {
	if got := ToExchangeTicker("DOGEKRW"); got != "KRW-DOGE" {
		t.Fatalf("unexpected exchange ticker %q", got)
	}
	if got := ToExchangeTicker("BTCKRW"); got != "KRW-BTC" {
		t.Fatalf("unexpected exchange ticker %q", got)
	}
}

func TestToBaseAsset(t *testing.T) {
	if got := ToBaseAsset("DOGEKRW"); got != "DOGE" {
		t.Fatalf("unexpected base asset %q", got)
	}
}

func TestShortTickerDegenerate(t *testing.T) {
	// Documented edge: tickers shorter than 4 chars produce nonsense, not panics.
	if got := ToBaseAsset("KRW"); got != "" {
		t.Fatalf("expected empty base, got %q", got)
	}
	if got := ToExchangeTicker("AB"); got != "AB" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
