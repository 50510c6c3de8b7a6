package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"TradeHook/internal/domain/models"
	"TradeHook/internal/service/dedup"
	"TradeHook/internal/service/quant"
	"TradeHook/internal/service/trend"
	"TradeHook/internal/usecase"
	"TradeHook/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubExchange struct {
	price    float64
	priceErr error
	snap     *models.AccountSnapshot
	buyRes   *models.OrderResult
	sellRes  *models.OrderResult
	buyCalls int
}

func (s *stubExchange) GetReferencePrice(context.Context, string) (float64, error) {
	return s.price, s.priceErr
}

func (s *stubExchange) GetAccountSnapshot(context.Context, string) (*models.AccountSnapshot, error) {
	return s.snap, nil
}

func (s *stubExchange) PlaceMarketBuy(context.Context, string, int64) (*models.OrderResult, error) {
	s.buyCalls++
	return s.buyRes, nil
}

func (s *stubExchange) PlaceMarketSell(context.Context, string, string) (*models.OrderResult, error) {
	return s.sellRes, nil
}

func (s *stubExchange) ListOpenOrders(context.Context, string, string) ([]models.OpenOrder, error) {
	return nil, nil
}

type stubNotifier struct{}

func (stubNotifier) Send(context.Context, string, string) error { return nil }

type stubMetrics struct{}

func (stubMetrics) RecordSignal(string, string)     {}
func (stubMetrics) RecordOrder(string, string)      {}
func (stubMetrics) RecordError(string)              {}
func (stubMetrics) RecordLastPrice(string, float64) {}
func (stubMetrics) RecordLatency(string, float64)   {}

type memJournal struct{}

func (memJournal) Record(context.Context, *models.ExecutionRecord) error { return nil }
func (memJournal) Close() error                                          { return nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type handlerHarness struct {
	handler *WebhookHandler
	gate    *trend.Gate
	ex      *stubExchange
}

func newHandlerHarness(t *testing.T, ex *stubExchange, secret string) *handlerHarness {
	t.Helper()
	l := testLogger(t)
	gate := trend.NewGate(nil, l, "KRW-DOGE", 10, 200)
	executor := usecase.NewExecutor(ex, stubNotifier{}, memJournal{}, stubMetrics{},
		quant.NewCalculator(50000), l,
		usecase.ExecutorConfig{
			OrderMinKRW:     50000,
			LotPrecision:    8,
			PollInterval:    time.Millisecond,
			PollMaxAttempts: 1,
		})
	resolver := usecase.NewResolver(usecase.PolicyGated, gate, l)
	cache := dedup.NewWindowCache(30 * time.Second)
	h := NewWebhookHandler(l, resolver, executor, gate, cache, stubMetrics{}, secret)
	return &handlerHarness{handler: h, gate: gate, ex: ex}
}

func (h *handlerHarness) post(body string, headers map[string]string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = h.handler.Webhook(c)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out["status"]
}

func TestWebhookBuySuccess(t *testing.T) {
	h := newHandlerHarness(t, &stubExchange{
		price:  180,
		snap:   &models.AccountSnapshot{InvestableKRW: 60000, PositionQuantity: "0"},
		buyRes: &models.OrderResult{OrderID: "b-1", Accepted: true},
	}, "")
	h.gate.Apply("EMA_cross_up")

	rec := h.post(`{"ticker":"DOGEKRW","value":"long entry"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeStatus(t, rec); got != "success" {
		t.Fatalf("expected success, got %q", got)
	}
	if h.ex.buyCalls != 1 {
		t.Fatalf("expected one buy order, got %d", h.ex.buyCalls)
	}
}

func TestWebhookDuplicateSuppressed(t *testing.T) {
	h := newHandlerHarness(t, &stubExchange{
		price:  180,
		snap:   &models.AccountSnapshot{InvestableKRW: 60000, PositionQuantity: "0"},
		buyRes: &models.OrderResult{OrderID: "b-1", Accepted: true},
	}, "")
	h.gate.Apply("EMA_cross_up")

	body := `{"ticker":"DOGEKRW","value":"long entry"}`
	if got := decodeStatus(t, h.post(body, nil)); got != "success" {
		t.Fatalf("first request must succeed, got %q", got)
	}
	rec := h.post(body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate must answer 200, got %d", rec.Code)
	}
	if got := decodeStatus(t, rec); got != "duplicate_ignored" {
		t.Fatalf("expected duplicate_ignored, got %q", got)
	}
	if h.ex.buyCalls != 1 {
		t.Fatalf("duplicate must not reach the exchange, got %d calls", h.ex.buyCalls)
	}
}

func TestWebhookMarkerAbsorbed(t *testing.T) {
	h := newHandlerHarness(t, &stubExchange{}, "")

	rec := h.post(`{"ticker":"DOGEKRW","value":"EMA_cross_down"}`, nil)
	if got := decodeStatus(t, rec); got != "success" {
		t.Fatalf("marker must answer success, got %q", got)
	}
	if h.gate.State() != trend.StateCrossDown {
		t.Fatalf("marker must update gate state, got %s", h.gate.State())
	}
	if h.ex.buyCalls != 0 {
		t.Fatalf("marker must not trade")
	}
}

func TestWebhookGatedBuyIsNoOp(t *testing.T) {
	h := newHandlerHarness(t, &stubExchange{}, "")
	h.gate.Apply("EMA_cross_down")

	rec := h.post(`{"ticker":"DOGEKRW","value":"long entry"}`, nil)
	if got := decodeStatus(t, rec); got != "success" {
		t.Fatalf("gated buy must answer success, got %q", got)
	}
	if h.ex.buyCalls != 0 {
		t.Fatalf("gated buy must not reach the exchange")
	}
}

func TestWebhookMissingFields(t *testing.T) {
	h := newHandlerHarness(t, &stubExchange{}, "")

	rec := h.post(`{"ticker":"DOGEKRW"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["error"] == "" {
		t.Fatalf("expected error message, got %s", rec.Body.String())
	}
}

func TestWebhookExecutionFailureMapsTo500(t *testing.T) {
	h := newHandlerHarness(t, &stubExchange{
		priceErr: models.NewTradeError(models.KindPriceUnavailable, "no market KRW-DOGE"),
	}, "")
	h.gate.Apply("EMA_cross_up")

	rec := h.post(`{"ticker":"DOGEKRW","value":"long entry"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "price_unavailable") {
		t.Fatalf("error body must carry the failure, got %s", rec.Body.String())
	}
}

func TestWebhookSignatureCheck(t *testing.T) {
	h := newHandlerHarness(t, &stubExchange{}, "s3cret")

	rec := h.post(`{"ticker":"DOGEKRW","value":"EMA_cross_up"}`, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing signature must answer 403, got %d", rec.Code)
	}

	rec = h.post(`{"ticker":"DOGEKRW","value":"EMA_cross_up"}`,
		map[string]string{"X-Signature": "wrong"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bad signature must answer 403, got %d", rec.Code)
	}

	rec = h.post(`{"ticker":"DOGEKRW","value":"EMA_cross_up"}`,
		map[string]string{"X-Signature": "s3cret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid signature must pass, got %d", rec.Code)
	}
}
