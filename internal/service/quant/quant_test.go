package quant

import (
	"errors"
	"testing"

	"TradeHook/internal/domain/models"

	"github.com/shopspring/decimal"
)

func TestMinQuantityFloorProperty(t *testing.T) {
	calc := NewCalculator(50000)

	prices := []string{"0.0001", "0.37", "1", "3", "151.7", "50000", "50001", "98765432.1", "333.333333"}
	for _, p := range prices {
		price := decimal.RequireFromString(p)
		for _, places := range []int{0, 2, 4, 8} {
			q, err := calc.MinQuantity(price, places)
			if err != nil {
				t.Fatalf("price=%s places=%d: %v", p, places, err)
			}
			if q.Mul(price).LessThan(decimal.NewFromInt(50000)) {
				t.Fatalf("price=%s places=%d: notional %s below floor", p, places, q.Mul(price))
			}
			// Minimality: one tick less must undershoot the floor.
			tick := decimal.New(1, -int32(places))
			lower := q.Sub(tick)
			if lower.IsPositive() && lower.Mul(price).GreaterThanOrEqual(decimal.NewFromInt(50000)) {
				t.Fatalf("price=%s places=%d: %s is not minimal", p, places, q)
			}
			// Tick alignment: truncating must be a no-op.
			if !q.Truncate(int32(places)).Equal(q) {
				t.Fatalf("price=%s places=%d: %s not aligned to tick", p, places, q)
			}
		}
	}
}

func TestMinQuantityExactDivision(t *testing.T) {
	calc := NewCalculator(50000)
	// 50000 / 100 = 500 exactly; no ceiling bump expected.
	q, err := calc.MinQuantity(decimal.NewFromInt(100), 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected 500, got %s", q)
	}
}

func TestMinQuantityInvalidPrice(t *testing.T) {
	calc := NewCalculator(50000)
	for _, p := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := calc.MinQuantity(p, 8)
		if !errors.Is(err, models.Err(models.KindInvalidInput)) {
			t.Fatalf("price=%s: expected invalid_input, got %v", p, err)
		}
	}
}
