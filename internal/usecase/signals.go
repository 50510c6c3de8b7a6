package usecase

import (
	"strings"

	"TradeHook/internal/domain/models"
	"TradeHook/internal/service/trend"
	"TradeHook/pkg/logger"
)

// Direction policies. gated derives direction from long/short strategy
// values and forwards buys only while the trend gate reads cross_up; direct
// takes buy/sell values at face value with no gating.
const (
	PolicyGated  = "gated"
	PolicyDirect = "direct"
)

// Resolver turns validated alerts into trade signals.
type Resolver struct {
	policy string
	gate   *trend.Gate
	logger *logger.Logger
}

func NewResolver(policy string, gate *trend.Gate, l *logger.Logger) *Resolver {
	if policy == "" {
		policy = PolicyGated
	}
	return &Resolver{policy: policy, gate: gate, logger: l}
}

// Resolve derives the trade direction from an alert. skip=true means the
// signal is valid but deliberately not traded (buy blocked by the trend
// gate); the caller answers success without executing.
func (r *Resolver) Resolve(alert models.Alert) (sig models.Signal, skip bool, err error) {
	value := strings.ToLower(strings.TrimSpace(alert.Value))

	var dir models.Direction
	switch r.policy {
	case PolicyDirect:
		switch {
		case strings.HasPrefix(value, "buy"):
			dir = models.DirectionBuy
		case strings.HasPrefix(value, "sell"):
			dir = models.DirectionSell
		}
	default:
		switch {
		case strings.HasPrefix(value, "long"):
			dir = models.DirectionBuy
		case strings.HasPrefix(value, "short"):
			dir = models.DirectionSell
		}
	}

	if dir == "" {
		return models.Signal{}, false, models.NewTradeError(models.KindInvalidInput,
			"alert value %q yields no direction under policy %s", alert.Value, r.policy)
	}

	sig = models.Signal{Ticker: alert.Ticker, Direction: dir, RawValue: alert.Value}

	if dir == models.DirectionBuy && r.policy == PolicyGated && !r.gate.AllowsBuy() {
		r.logger.Info("buy signal blocked by trend gate",
			logger.String("ticker", alert.Ticker),
			logger.String("trend_state", r.gate.State().String()),
		)
		return sig, true, nil
	}
	return sig, false, nil
}
