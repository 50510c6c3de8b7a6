package repository

import (
	"context"
	"time"

	"TradeHook/internal/domain/models"
)

// Exchange is the narrow gateway the executor talks to. Implementations map
// transport failures to gateway_error.
type Exchange interface {
	// GetReferencePrice returns the last trade price for an exchange ticker,
	// or price_unavailable if the market is unknown.
	GetReferencePrice(ctx context.Context, market string) (float64, error)
	// GetAccountSnapshot reads balances for the given base asset plus KRW.
	GetAccountSnapshot(ctx context.Context, asset string) (*models.AccountSnapshot, error)
	// PlaceMarketBuy spends krwAmount of quote currency at market.
	PlaceMarketBuy(ctx context.Context, market string, krwAmount int64) (*models.OrderResult, error)
	// PlaceMarketSell sells quantity (decimal string) at market.
	PlaceMarketSell(ctx context.Context, market string, quantity string) (*models.OrderResult, error)
	// ListOpenOrders returns orders in the given state for a market.
	ListOpenOrders(ctx context.Context, market, state string) ([]models.OpenOrder, error)
}

// CandleSource provides OHLCV history for the trend gate.
type CandleSource interface {
	// GetCandles returns up to count minute candles in chronological order.
	GetCandles(ctx context.Context, market string, unitMinutes, count int) ([]models.Candle, error)
}

// Notifier delivers operator notifications. Best effort; callers must not
// treat a send failure as fatal.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// SignalCache suppresses duplicate signals inside a time window. Mark
// records now against key when it accepts, before downstream execution
// begins, so a near-simultaneous duplicate stays suppressed while the first
// execution is still running.
type SignalCache interface {
	Mark(ctx context.Context, key string, now time.Time) (bool, error)
}

// Journal records completed execution attempts for audit. Never read back
// by the pipeline; failures are logged, not propagated.
type Journal interface {
	Record(ctx context.Context, rec *models.ExecutionRecord) error
	Close() error
}

// Metrics is the observability sink.
type Metrics interface {
	RecordSignal(ticker, outcome string) // accepted, duplicate, rejected
	RecordOrder(side, result string)     // placed, rejected, skipped
	RecordError(kind string)
	RecordLastPrice(market string, price float64)
	RecordLatency(op string, seconds float64)
}
