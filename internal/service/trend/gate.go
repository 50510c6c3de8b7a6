package trend

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"TradeHook/internal/domain/models"
	"TradeHook/internal/domain/repository"
	"TradeHook/pkg/logger"
)

// State of the EMA cross filter.
type State int32

const (
	StateUnknown State = iota
	StateCrossUp
	StateCrossDown
)

func (s State) String() string {
	switch s {
	case StateCrossUp:
		return "cross_up"
	case StateCrossDown:
		return "cross_down"
	default:
		return "unknown"
	}
}

// Alert values carrying a trend marker overwrite the gate directly.
const (
	markerPrefix    = "EMA"
	markerCrossUp   = "EMA_cross_up"
	markerCrossDown = "EMA_cross_down"
)

const (
	shortSpan  = 50
	longSpan   = 200
	minCandles = 200
)

// Gate tracks the last known EMA(50)/EMA(200) cross state for a reference
// market. Single writer (the refresh loop or an inbound marker alert),
// many readers; the state is one atomic enum, no broader consistency needed.
type Gate struct {
	candles repository.CandleSource
	logger  *logger.Logger

	market string
	unit   int
	count  int

	state atomic.Int32
}

// NewGate creates a gate in the unknown state.
func NewGate(candles repository.CandleSource, l *logger.Logger, market string, unitMinutes, count int) *Gate {
	if count < minCandles {
		count = minCandles
	}
	return &Gate{
		candles: candles,
		logger:  l,
		market:  market,
		unit:    unitMinutes,
		count:   count,
	}
}

// State returns the current cross state.
func (g *Gate) State() State {
	return State(g.state.Load())
}

// AllowsBuy reports whether gated buy signals may pass.
func (g *Gate) AllowsBuy() bool {
	return g.State() == StateCrossUp
}

// IsMarker reports whether an alert value is a trend marker rather than a
// trade signal.
func IsMarker(value string) bool {
	return strings.HasPrefix(value, markerPrefix)
}

// Apply overwrites the state from an inbound marker alert. Unrecognized
// markers are ignored; the alert is authoritative only for the two known
// cross values.
func (g *Gate) Apply(value string) {
	switch value {
	case markerCrossUp:
		g.setState(StateCrossUp)
	case markerCrossDown:
		g.setState(StateCrossDown)
	default:
		g.logger.Warn("unrecognized trend marker ignored", logger.String("value", value))
	}
}

// Recompute fetches reference candles and rederives the cross state.
// Fewer than 200 rows is insufficient_data and leaves the state unchanged.
func (g *Gate) Recompute(ctx context.Context) error {
	rows, err := g.candles.GetCandles(ctx, g.market, g.unit, g.count)
	if err != nil {
		return err
	}
	if len(rows) < minCandles {
		return models.NewTradeError(models.KindInsufficientData,
			"trend recompute needs >= %d candles, got %d", minCandles, len(rows))
	}

	closes := make([]float64, len(rows))
	for i, r := range rows {
		closes[i] = r.Close
	}

	short := ema(closes, shortSpan)
	long := ema(closes, longSpan)

	next := StateCrossDown
	if short > long {
		next = StateCrossUp
	}
	g.setState(next)

	g.logger.Info("trend recomputed",
		logger.String("market", g.market),
		logger.Float64("ema_short", short),
		logger.Float64("ema_long", long),
		logger.String("state", next.String()),
	)
	return nil
}

// Run recomputes on a fixed interval until ctx is cancelled. Failures are
// logged and the previous state kept.
func (g *Gate) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.Recompute(ctx); err != nil {
				g.logger.Error("trend recompute failed", logger.Error(err))
			}
		}
	}
}

func (g *Gate) setState(s State) {
	g.state.Store(int32(s))
}

// ema computes the recursive exponential moving average over the full
// series and returns its final value. Smoothing 2/(span+1), seeded from the
// first value, no bias adjustment.
func ema(values []float64, span int) float64 {
	alpha := 2.0 / (float64(span) + 1.0)
	v := values[0]
	for _, x := range values[1:] {
		v = alpha*x + (1-alpha)*v
	}
	return v
}
