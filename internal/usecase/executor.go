package usecase

import (
	"context"
	"fmt"
	"time"

	"TradeHook/internal/domain/models"
	"TradeHook/internal/domain/repository"
	"TradeHook/internal/service/quant"
	"TradeHook/pkg/logger"
	"TradeHook/pkg/util"

	"github.com/shopspring/decimal"
)

// ExecutorConfig carries the trading knobs for the execution engine.
type ExecutorConfig struct {
	OrderMinKRW     int64
	LotPrecision    int
	PollInterval    time.Duration
	PollMaxAttempts int
}

// Executor drives a signal through price lookup, account snapshot, order
// placement and, for sells, settlement confirmation. One call per accepted
// signal; the dedup layer upstream keeps concurrent duplicates out.
type Executor struct {
	exchange repository.Exchange
	notifier repository.Notifier
	journal  repository.Journal
	metrics  repository.Metrics
	quant    *quant.Calculator
	logger   *logger.Logger

	cfg ExecutorConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates the execution engine.
func NewExecutor(
	exchange repository.Exchange,
	notifier repository.Notifier,
	journal repository.Journal,
	metrics repository.Metrics,
	q *quant.Calculator,
	l *logger.Logger,
	cfg ExecutorConfig,
) *Executor {
	return &Executor{
		exchange: exchange,
		notifier: notifier,
		journal:  journal,
		metrics:  metrics,
		quant:    q,
		logger:   l,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute runs one signal end to end. A nil return covers both a placed
// order and a deliberate no-op (buy below the notional floor).
func (e *Executor) Execute(ctx context.Context, sig models.Signal) error {
	start := e.now()
	defer func() {
		e.metrics.RecordLatency("execute", time.Since(start).Seconds())
	}()

	market := util.ToExchangeTicker(sig.Ticker)
	asset := util.ToBaseAsset(sig.Ticker)

	rec := &models.ExecutionRecord{
		Ticker:    sig.Ticker,
		Market:    market,
		Direction: sig.Direction,
		RawValue:  sig.RawValue,
		Timestamp: start,
	}

	price, err := e.exchange.GetReferencePrice(ctx, market)
	if err != nil {
		return e.fail(ctx, rec, err)
	}
	e.metrics.RecordLastPrice(market, price)

	snap, err := e.exchange.GetAccountSnapshot(ctx, asset)
	if err != nil {
		return e.fail(ctx, rec, err)
	}

	switch sig.Direction {
	case models.DirectionBuy:
		err = e.executeBuy(ctx, rec, snap)
	case models.DirectionSell:
		err = e.executeSell(ctx, rec, price, snap)
	default:
		err = models.NewTradeError(models.KindInvalidInput, "unknown direction %q", sig.Direction)
	}
	if err != nil {
		return e.fail(ctx, rec, err)
	}

	e.record(ctx, rec)
	return nil
}

// executeBuy spends exactly the configured notional when the investable
// balance covers it, and no-ops otherwise.
func (e *Executor) executeBuy(ctx context.Context, rec *models.ExecutionRecord, snap *models.AccountSnapshot) error {
	if snap.InvestableKRW < e.cfg.OrderMinKRW {
		e.logger.Info("buy skipped, investable balance below order floor",
			logger.String("market", rec.Market),
			logger.Int64("investable_krw", snap.InvestableKRW),
			logger.Int64("order_min_krw", e.cfg.OrderMinKRW),
		)
		rec.Outcome = models.OutcomeSkipped
		e.metrics.RecordOrder("buy", "skipped")
		e.notify(ctx, fmt.Sprintf("buy skipped: %s", rec.Market),
			fmt.Sprintf("investable %d KRW below order floor %d KRW, no order placed",
				snap.InvestableKRW, e.cfg.OrderMinKRW))
		return nil
	}

	res, err := e.exchange.PlaceMarketBuy(ctx, rec.Market, e.cfg.OrderMinKRW)
	if err != nil {
		return err
	}
	if !res.Accepted {
		return models.NewTradeError(models.KindOrderRejected, "market buy %s not accepted", rec.Market)
	}

	rec.OrderID = res.OrderID
	rec.AmountKRW = e.cfg.OrderMinKRW
	rec.Outcome = models.OutcomeFilled
	e.metrics.RecordOrder("buy", "placed")

	e.logger.Info("market buy placed",
		logger.String("market", rec.Market),
		logger.String("order_id", res.OrderID),
		logger.Int64("amount_krw", e.cfg.OrderMinKRW),
	)
	e.notify(ctx, fmt.Sprintf("buy executed: %s", rec.Market),
		fmt.Sprintf("market buy of %d KRW placed, order %s", e.cfg.OrderMinKRW, res.OrderID))
	return nil
}

// executeSell sells the minimal quantity meeting the notional floor,
// clamped to the held position, then polls open orders until settlement.
func (e *Executor) executeSell(ctx context.Context, rec *models.ExecutionRecord, price float64, snap *models.AccountSnapshot) error {
	if !snap.HasPosition {
		return models.NewTradeError(models.KindNoPosition, "no %s position to sell", rec.Market)
	}

	qty, err := e.quant.MinQuantity(decimal.NewFromFloat(price), e.cfg.LotPrecision)
	if err != nil {
		return err
	}
	held, err := decimal.NewFromString(snap.PositionQuantity)
	if err != nil {
		return models.NewTradeError(models.KindAccountDataMissing,
			"position quantity %q not numeric", snap.PositionQuantity)
	}
	if held.LessThan(qty) {
		qty = held
	}

	res, err := e.exchange.PlaceMarketSell(ctx, rec.Market, qty.String())
	if err != nil {
		return err
	}
	if !res.Accepted {
		return models.NewTradeError(models.KindOrderRejected, "market sell %s not accepted", rec.Market)
	}

	rec.OrderID = res.OrderID
	rec.Quantity = qty.String()
	e.metrics.RecordOrder("sell", "placed")

	e.logger.Info("market sell placed, awaiting settlement",
		logger.String("market", rec.Market),
		logger.String("order_id", res.OrderID),
		logger.String("quantity", qty.String()),
	)

	if err := e.awaitSettlement(ctx, rec.Market); err != nil {
		return err
	}

	rec.Outcome = models.OutcomeFilled
	e.notify(ctx, fmt.Sprintf("sell executed: %s", rec.Market),
		fmt.Sprintf("market sell of %s settled, order %s", qty.String(), res.OrderID))
	return nil
}

// awaitSettlement polls open orders in the wait state until the market has
// none left. Read errors consume an attempt and are retried.
func (e *Executor) awaitSettlement(ctx context.Context, market string) error {
	for attempt := 1; attempt <= e.cfg.PollMaxAttempts; attempt++ {
		if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
			return models.WrapTradeError(models.KindConfirmationTimeout, err,
				"settlement wait for %s interrupted", market)
		}

		open, err := e.exchange.ListOpenOrders(ctx, market, "wait")
		if err != nil {
			e.logger.Warn("open order poll failed",
				logger.String("market", market),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			continue
		}
		if len(open) == 0 {
			return nil
		}
	}
	return models.NewTradeError(models.KindConfirmationTimeout,
		"%s sell still unsettled after %d polls", market, e.cfg.PollMaxAttempts)
}

// fail finalizes a failed execution: failure notification, journal row,
// error metric, then the error itself.
func (e *Executor) fail(ctx context.Context, rec *models.ExecutionRecord, err error) error {
	kind := models.KindOf(err)
	rec.Outcome = models.OutcomeFailed
	if kind == models.KindOrderRejected {
		rec.Outcome = models.OutcomeRejected
	}
	rec.Error = err.Error()

	e.metrics.RecordError(string(kind))
	e.notify(ctx, fmt.Sprintf("execution failed: %s %s", rec.Direction, rec.Market), err.Error())
	e.record(ctx, rec)
	return err
}

// notify is best effort.
func (e *Executor) notify(ctx context.Context, subject, body string) {
	if err := e.notifier.Send(ctx, subject, body); err != nil {
		e.logger.Warn("notification failed", logger.String("subject", subject), logger.Error(err))
	}
}

// record is best effort.
func (e *Executor) record(ctx context.Context, rec *models.ExecutionRecord) {
	if err := e.journal.Record(ctx, rec); err != nil {
		e.logger.Warn("journal write failed", logger.String("market", rec.Market), logger.Error(err))
	}
}
