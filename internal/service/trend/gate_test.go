package trend

import (
	"context"
	"errors"
	"testing"
	"time"

	"TradeHook/internal/domain/models"
	"TradeHook/pkg/logger"
)

type fakeCandles struct {
	rows []models.Candle
	err  error
}

func (f *fakeCandles) GetCandles(_ context.Context, _ string, _, _ int) ([]models.Candle, error) {
	return f.rows, f.err
}

func series(n int, start, step float64) []models.Candle {
	rows := make([]models.Candle, n)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	price := start
	for i := range rows {
		rows[i] = models.Candle{Timestamp: t0.Add(time.Duration(i) * 10 * time.Minute), Close: price, Volume: 1}
		price += step
	}
	return rows
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestRecomputeRisingSeriesCrossUp(t *testing.T) {
	g := NewGate(&fakeCandles{rows: series(200, 100, 1)}, testLogger(t), "KRW-DOGE", 10, 200)
	if err := g.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if g.State() != StateCrossUp {
		t.Fatalf("expected cross_up, got %s", g.State())
	}
	if !g.AllowsBuy() {
		t.Fatalf("cross_up must allow buys")
	}
}

func TestRecomputeFallingSeriesCrossDown(t *testing.T) {
	g := NewGate(&fakeCandles{rows: series(200, 400, -1)}, testLogger(t), "KRW-DOGE", 10, 200)
	if err := g.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if g.State() != StateCrossDown {
		t.Fatalf("expected cross_down, got %s", g.State())
	}
	if g.AllowsBuy() {
		t.Fatalf("cross_down must block buys")
	}
}

func TestRecomputeInsufficientData(t *testing.T) {
	g := NewGate(&fakeCandles{rows: series(199, 100, 1)}, testLogger(t), "KRW-DOGE", 10, 200)
	err := g.Recompute(context.Background())
	if !errors.Is(err, models.Err(models.KindInsufficientData)) {
		t.Fatalf("expected insufficient_data, got %v", err)
	}
	if g.State() != StateUnknown {
		t.Fatalf("failed recompute must leave state unchanged, got %s", g.State())
	}
}

func TestApplyMarkers(t *testing.T) {
	g := NewGate(&fakeCandles{}, testLogger(t), "KRW-DOGE", 10, 200)

	g.Apply("EMA_cross_up")
	if g.State() != StateCrossUp {
		t.Fatalf("expected cross_up, got %s", g.State())
	}
	g.Apply("EMA_cross_down")
	if g.State() != StateCrossDown {
		t.Fatalf("expected cross_down, got %s", g.State())
	}
	// Unknown marker leaves state untouched.
	g.Apply("EMA_something_else")
	if g.State() != StateCrossDown {
		t.Fatalf("unrecognized marker must not mutate state")
	}
}

func TestIsMarker(t *testing.T) {
	if !IsMarker("EMA_cross_up") {
		t.Fatalf("expected marker")
	}
	if IsMarker("long entry") {
		t.Fatalf("unexpected marker")
	}
}
