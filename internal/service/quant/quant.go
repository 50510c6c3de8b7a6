package quant

import (
	"TradeHook/internal/domain/models"

	"github.com/shopspring/decimal"
)

// Calculator computes order quantities against a notional-value floor.
// All arithmetic is decimal: the floor guarantee (quantity * price >= floor)
// must hold exactly, and binary floats under- or overshoot the ceiling at
// tick-size boundaries.
type Calculator struct {
	floor decimal.Decimal
}

// NewCalculator creates a calculator for the given quote-currency floor.
func NewCalculator(floorKRW int64) *Calculator {
	return &Calculator{floor: decimal.NewFromInt(floorKRW)}
}

// Floor returns the configured notional floor.
func (c *Calculator) Floor() decimal.Decimal {
	return c.floor
}

// MinQuantity returns the smallest quantity q such that q*price >= floor
// and q is an exact multiple of 10^-decimalPlaces.
func (c *Calculator) MinQuantity(price decimal.Decimal, decimalPlaces int) (decimal.Decimal, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, models.NewTradeError(models.KindInvalidInput, "price must be > 0, got %s", price)
	}
	if decimalPlaces < 0 {
		return decimal.Zero, models.NewTradeError(models.KindInvalidInput, "decimal places must be >= 0, got %d", decimalPlaces)
	}

	// Truncate the quotient to the tick, then verify the floor guarantee
	// directly against the exact product instead of trusting division
	// precision at the boundary.
	q := c.floor.DivRound(price, int32(decimalPlaces)+8).Truncate(int32(decimalPlaces))
	if q.Mul(price).LessThan(c.floor) {
		q = q.Add(decimal.New(1, -int32(decimalPlaces)))
	}
	return q, nil
}
