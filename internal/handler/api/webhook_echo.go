package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"TradeHook/internal/domain/models"
	domrepo "TradeHook/internal/domain/repository"
	"TradeHook/internal/service/trend"
	"TradeHook/internal/usecase"
	xhttp "TradeHook/pkg/http"
	xlogger "TradeHook/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Webhook response status tokens. Duplicates and trend markers are not
// failures; both answer 200.
const (
	statusSuccess   = "success"
	statusDuplicate = "duplicate_ignored"
)

const signatureHeader = "X-Signature"

// WebhookHandler is the inbound boundary: one POST endpoint receiving
// TradingView alerts, plus health.
type WebhookHandler struct {
	logger   *xlogger.Logger
	resolver *usecase.Resolver
	executor *usecase.Executor
	gate     *trend.Gate
	cache    domrepo.SignalCache
	metrics  domrepo.Metrics

	secret string
	now    func() time.Time
}

func NewWebhookHandler(
	logger *xlogger.Logger,
	resolver *usecase.Resolver,
	executor *usecase.Executor,
	gate *trend.Gate,
	cache domrepo.SignalCache,
	metrics domrepo.Metrics,
	secret string,
) *WebhookHandler {
	return &WebhookHandler{
		logger:   logger,
		resolver: resolver,
		executor: executor,
		gate:     gate,
		cache:    cache,
		metrics:  metrics,
		secret:   secret,
		now:      time.Now,
	}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook", h.Webhook)
	e.GET("/healthz", h.Health)
}

func (h *WebhookHandler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Webhook handles one alert: signature check, validation, trend-marker
// absorption, direction resolution, dedup, then execution. Every failure
// past the signature check maps to 500 {"error": ...}.
func (h *WebhookHandler) Webhook(c echo.Context) error {
	if h.secret != "" {
		got := c.Request().Header.Get(signatureHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.Warn("webhook signature mismatch", xlogger.String("remote", c.RealIP()))
			return xhttp.ErrorJSON(c, http.StatusForbidden, "invalid signature")
		}
	}

	alert := &models.Alert{}
	if verr := xhttp.ReadAndValidateRequest(c, alert); verr != nil {
		msg := xhttp.JoinValidationErrors(verr)
		h.logger.Warn("webhook payload invalid", xlogger.String("detail", msg))
		h.metrics.RecordError(string(models.KindInvalidInput))
		return xhttp.ErrorJSON(c, http.StatusInternalServerError, msg)
	}

	log := h.logger.With(
		xlogger.String("ticker", alert.Ticker),
		xlogger.String("value", alert.Value),
	)

	if trend.IsMarker(alert.Value) {
		h.gate.Apply(alert.Value)
		h.metrics.RecordSignal(alert.Ticker, "marker")
		log.Info("trend marker absorbed", xlogger.String("state", h.gate.State().String()))
		return xhttp.StatusOK(c, statusSuccess)
	}

	sig, skip, err := h.resolver.Resolve(*alert)
	if err != nil {
		h.metrics.RecordError(string(models.KindOf(err)))
		log.Error("alert resolution failed", xlogger.Error(err))
		return xhttp.ErrorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if skip {
		h.metrics.RecordSignal(alert.Ticker, "gated")
		return xhttp.StatusOK(c, statusSuccess)
	}

	accepted, err := h.cache.Mark(c.Request().Context(), sig.DedupKey(), h.now())
	if err != nil {
		h.metrics.RecordError(string(models.KindOf(err)))
		log.Error("dedup check failed", xlogger.Error(err))
		return xhttp.ErrorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if !accepted {
		h.metrics.RecordSignal(alert.Ticker, "duplicate")
		log.Info("duplicate signal suppressed", xlogger.String("key", sig.DedupKey()))
		return xhttp.StatusOK(c, statusDuplicate)
	}

	h.metrics.RecordSignal(alert.Ticker, "accepted")
	if err := h.executor.Execute(c.Request().Context(), sig); err != nil {
		log.Error("execution failed",
			xlogger.String("direction", string(sig.Direction)),
			xlogger.Error(err),
		)
		return xhttp.ErrorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return xhttp.StatusOK(c, statusSuccess)
}
