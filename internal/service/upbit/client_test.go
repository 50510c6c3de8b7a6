package upbit

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"TradeHook/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

func newTestClient(base string) *Client {
	return NewClient(ClientConfig{
		APIBase:   base,
		AccessKey: "test-access",
		SecretKey: "test-secret",
		Timeout:   5 * time.Second,
	})
}

func TestGetReferencePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ticker" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("markets"); got != "KRW-DOGE" {
			t.Errorf("unexpected markets param %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"market": "KRW-DOGE", "trade_price": 123.45},
		})
	}))
	defer srv.Close()

	price, err := newTestClient(srv.URL).GetReferencePrice(context.Background(), "KRW-DOGE")
	if err != nil {
		t.Fatalf("reference price: %v", err)
	}
	if price != 123.45 {
		t.Fatalf("expected 123.45, got %v", price)
	}
}

func TestGetReferencePriceEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetReferencePrice(context.Background(), "KRW-DOGE")
	if !errors.Is(err, models.Err(models.KindPriceUnavailable)) {
		t.Fatalf("expected price_unavailable, got %v", err)
	}
}

func TestGetReferencePriceGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetReferencePrice(context.Background(), "KRW-DOGE")
	if !errors.Is(err, models.Err(models.KindGatewayError)) {
		t.Fatalf("expected gateway_error, got %v", err)
	}
}

func TestGetAccountSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("expected bearer token, got %q", auth)
		}
		json.NewEncoder(w).Encode([]map[string]string{
			{"currency": "KRW", "balance": "100100.5", "avg_buy_price": "0"},
			{"currency": "DOGE", "balance": "1500.25", "avg_buy_price": "180.1"},
		})
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL).GetAccountSnapshot(context.Background(), "DOGE")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.HasPosition || snap.PositionQuantity != "1500.25" {
		t.Fatalf("position not read: %+v", snap)
	}
	// floor(100100.5 * 0.999) = floor(100000.3995) = 100000
	if snap.InvestableKRW != 100000 {
		t.Fatalf("expected investable 100000, got %d", snap.InvestableKRW)
	}
}

func TestGetAccountSnapshotNoPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"currency": "KRW", "balance": "49999", "avg_buy_price": "0"},
		})
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL).GetAccountSnapshot(context.Background(), "DOGE")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.HasPosition {
		t.Fatalf("no DOGE row must mean no position")
	}
	if snap.PositionQuantity != "0" {
		t.Fatalf("expected zero quantity, got %q", snap.PositionQuantity)
	}
}

func TestGetAccountSnapshotMalformedRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"currency": "DOGE", "balance": "not-a-number", "avg_buy_price": "0"},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetAccountSnapshot(context.Background(), "DOGE")
	if !errors.Is(err, models.Err(models.KindAccountDataMissing)) {
		t.Fatalf("expected account_data_missing, got %v", err)
	}
}

func TestPlaceMarketBuySendsOrderParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["side"] != "bid" || body["ord_type"] != "price" || body["price"] != "50000" {
			t.Errorf("unexpected order params: %v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"uuid": "order-1"})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).PlaceMarketBuy(context.Background(), "KRW-DOGE", 50000)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !res.Accepted || res.OrderID != "order-1" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPlaceMarketSellRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"name":"insufficient_funds_ask"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).PlaceMarketSell(context.Background(), "KRW-DOGE", "10")
	if !errors.Is(err, models.Err(models.KindGatewayError)) {
		t.Fatalf("expected gateway_error, got %v", err)
	}
}

func TestGetCandlesChronological(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/candles/minutes/10" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// newest first, as the API serves them
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"candle_date_time_utc": "2025-06-01T00:20:00", "trade_price": 3.0},
			{"candle_date_time_utc": "2025-06-01T00:10:00", "trade_price": 2.0},
			{"candle_date_time_utc": "2025-06-01T00:00:00", "trade_price": 1.0},
		})
	}))
	defer srv.Close()

	rows, err := newTestClient(srv.URL).GetCandles(context.Background(), "KRW-DOGE", 10, 3)
	if err != nil {
		t.Fatalf("candles: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Close != 1.0 || rows[2].Close != 3.0 {
		t.Fatalf("rows not chronological: %+v", rows)
	}
	if !rows[0].Timestamp.Before(rows[2].Timestamp) {
		t.Fatalf("timestamps not ascending")
	}
}

func TestMintTokenClaims(t *testing.T) {
	c := newTestClient("http://unused")

	query := "market=KRW-DOGE&state=wait"
	signed, err := c.mintToken(query)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["access_key"] != "test-access" {
		t.Fatalf("access_key claim missing")
	}
	if claims["nonce"] == "" {
		t.Fatalf("nonce claim missing")
	}
	sum := sha512.Sum512([]byte(query))
	if claims["query_hash"] != hex.EncodeToString(sum[:]) {
		t.Fatalf("query_hash mismatch")
	}
	if claims["query_hash_alg"] != "SHA512" {
		t.Fatalf("query_hash_alg must be SHA512")
	}
}

func TestMintTokenNoQueryOmitsHash(t *testing.T) {
	c := newTestClient("http://unused")
	signed, err := c.mintToken("")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	parsed, _ := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	claims := parsed.Claims.(jwt.MapClaims)
	if _, ok := claims["query_hash"]; ok {
		t.Fatalf("query_hash must be absent for bodyless requests")
	}
}
