package upbit

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"TradeHook/internal/domain/models"
	"TradeHook/internal/service/ratelimit"
	xhttp "TradeHook/pkg/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Upbit meters request quotas per group; stay under the documented limits.
const (
	groupOrders   = "orders"
	groupExchange = "exchange"
	groupPublic   = "public"

	ordersPerSec   = 8
	exchangePerSec = 30
	publicPerSec   = 10

	// Fee headroom applied when computing the investable KRW balance. The
	// KRW market fee is 0.05%; 0.1% is reserved so a market buy of the full
	// investable amount never bounces on fees.
	investableRatio = 0.999
)

// Client is the Upbit REST gateway. It implements both the Exchange and
// CandleSource interfaces.
type Client struct {
	apiBase   string
	accessKey string
	secretKey string
	hc        *xhttp.Client
	limiter   *ratelimit.Limiter
	stream    *Stream // optional fast path for reference prices
	staleness time.Duration
}

type ClientConfig struct {
	APIBase        string
	AccessKey      string
	SecretKey      string
	Timeout        time.Duration
	PriceStaleness time.Duration
}

// NewClient creates an Upbit REST client.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		apiBase:   cfg.APIBase,
		accessKey: cfg.AccessKey,
		secretKey: cfg.SecretKey,
		hc:        xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		limiter:   ratelimit.New(),
		staleness: cfg.PriceStaleness,
	}
}

// AttachStream wires a websocket price stream as the preferred source for
// reference prices.
func (c *Client) AttachStream(s *Stream) {
	c.stream = s
}

// --- Exchange ---

type tickerRow struct {
	Market     string  `json:"market"`
	TradePrice float64 `json:"trade_price"`
}

// GetReferencePrice returns the last trade price for a market. A fresh
// stream price short-circuits the REST call.
func (c *Client) GetReferencePrice(ctx context.Context, market string) (float64, error) {
	if c.stream != nil {
		if price, at, ok := c.stream.LastPrice(market); ok && time.Since(at) <= c.staleness {
			return price, nil
		}
	}

	c.limiter.Wait(groupPublic, publicPerSec, publicPerSec)

	var rows []tickerRow
	err := c.get(ctx, "/v1/ticker", url.Values{"markets": {market}}, false, &rows)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Status == 404 {
			return 0, models.NewTradeError(models.KindPriceUnavailable, "no market %s", market)
		}
		return 0, models.WrapTradeError(models.KindGatewayError, err, "ticker %s", market)
	}
	if len(rows) == 0 || rows[0].TradePrice <= 0 {
		return 0, models.NewTradeError(models.KindPriceUnavailable, "no price for market %s", market)
	}
	return rows[0].TradePrice, nil
}

type accountRow struct {
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
	AvgBuyPrice string `json:"avg_buy_price"`
}

// GetAccountSnapshot reads balances for the base asset and KRW.
func (c *Client) GetAccountSnapshot(ctx context.Context, asset string) (*models.AccountSnapshot, error) {
	c.limiter.Wait(groupExchange, exchangePerSec, exchangePerSec)

	var rows []accountRow
	if err := c.get(ctx, "/v1/accounts", nil, true, &rows); err != nil {
		return nil, models.WrapTradeError(models.KindGatewayError, err, "accounts")
	}
	if rows == nil {
		return nil, models.NewTradeError(models.KindAccountDataMissing, "accounts response empty")
	}

	snap := &models.AccountSnapshot{PositionQuantity: "0"}
	for _, r := range rows {
		if r.Currency == "" {
			return nil, models.NewTradeError(models.KindAccountDataMissing, "currency field absent in accounts row")
		}
		switch r.Currency {
		case asset:
			qty, err := strconv.ParseFloat(r.Balance, 64)
			if err != nil {
				return nil, models.NewTradeError(models.KindAccountDataMissing, "balance for %s not numeric: %q", asset, r.Balance)
			}
			snap.HasPosition = qty > 0
			snap.PositionQuantity = r.Balance
			snap.AvgBuyPrice, _ = strconv.ParseFloat(r.AvgBuyPrice, 64)
		case "KRW":
			bal, err := strconv.ParseFloat(r.Balance, 64)
			if err != nil {
				return nil, models.NewTradeError(models.KindAccountDataMissing, "KRW balance not numeric: %q", r.Balance)
			}
			snap.KRWBalance = bal
			if bal > 0 {
				snap.InvestableKRW = int64(math.Floor(bal * investableRatio))
			}
		}
	}
	return snap, nil
}

type orderResponse struct {
	UUID string `json:"uuid"`
}

// PlaceMarketBuy spends krwAmount at market price (ord_type "price").
func (c *Client) PlaceMarketBuy(ctx context.Context, market string, krwAmount int64) (*models.OrderResult, error) {
	c.limiter.Wait(groupOrders, ordersPerSec, ordersPerSec)

	params := url.Values{
		"market":   {market},
		"side":     {"bid"},
		"price":    {strconv.FormatInt(krwAmount, 10)},
		"ord_type": {"price"},
	}

	var resp orderResponse
	if err := c.post(ctx, "/v1/orders", params, &resp); err != nil {
		return nil, models.WrapTradeError(models.KindGatewayError, err, "market buy %s", market)
	}
	return &models.OrderResult{OrderID: resp.UUID, Accepted: resp.UUID != ""}, nil
}

// PlaceMarketSell sells quantity at market price (ord_type "market").
func (c *Client) PlaceMarketSell(ctx context.Context, market string, quantity string) (*models.OrderResult, error) {
	c.limiter.Wait(groupOrders, ordersPerSec, ordersPerSec)

	params := url.Values{
		"market":   {market},
		"side":     {"ask"},
		"volume":   {quantity},
		"ord_type": {"market"},
	}

	var resp orderResponse
	if err := c.post(ctx, "/v1/orders", params, &resp); err != nil {
		return nil, models.WrapTradeError(models.KindGatewayError, err, "market sell %s", market)
	}
	return &models.OrderResult{OrderID: resp.UUID, Accepted: resp.UUID != ""}, nil
}

type openOrderRow struct {
	UUID      string    `json:"uuid"`
	Market    string    `json:"market"`
	Side      string    `json:"side"`
	State     string    `json:"state"`
	Volume    string    `json:"volume"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOpenOrders returns orders in the given state for a market.
func (c *Client) ListOpenOrders(ctx context.Context, market, state string) ([]models.OpenOrder, error) {
	c.limiter.Wait(groupExchange, exchangePerSec, exchangePerSec)

	var rows []openOrderRow
	err := c.get(ctx, "/v1/orders", url.Values{"market": {market}, "state": {state}}, true, &rows)
	if err != nil {
		return nil, models.WrapTradeError(models.KindGatewayError, err, "open orders %s", market)
	}

	out := make([]models.OpenOrder, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.OpenOrder{
			OrderID:   r.UUID,
			Market:    r.Market,
			Side:      r.Side,
			State:     r.State,
			Volume:    r.Volume,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// --- CandleSource ---

type candleRow struct {
	CandleDateTimeUTC  string  `json:"candle_date_time_utc"`
	OpeningPrice       float64 `json:"opening_price"`
	HighPrice          float64 `json:"high_price"`
	LowPrice           float64 `json:"low_price"`
	TradePrice         float64 `json:"trade_price"`
	CandleAccTradeVol  float64 `json:"candle_acc_trade_volume"`
	TimestampMillisecs int64   `json:"timestamp"`
}

// GetCandles returns up to count minute candles in chronological order.
// The API serves newest-first; the slice is reversed before returning.
func (c *Client) GetCandles(ctx context.Context, market string, unitMinutes, count int) ([]models.Candle, error) {
	c.limiter.Wait(groupPublic, publicPerSec, publicPerSec)

	path := fmt.Sprintf("/v1/candles/minutes/%d", unitMinutes)
	params := url.Values{
		"market": {market},
		"count":  {strconv.Itoa(count)},
	}

	var rows []candleRow
	if err := c.get(ctx, path, params, false, &rows); err != nil {
		return nil, models.WrapTradeError(models.KindGatewayError, err, "candles %s", market)
	}

	out := make([]models.Candle, len(rows))
	for i, r := range rows {
		ts, _ := time.Parse("2006-01-02T15:04:05", r.CandleDateTimeUTC)
		out[len(rows)-1-i] = models.Candle{
			Timestamp: ts,
			Open:      r.OpeningPrice,
			High:      r.HighPrice,
			Low:       r.LowPrice,
			Close:     r.TradePrice,
			Volume:    r.CandleAccTradeVol,
		}
	}
	return out, nil
}

// --- transport ---

func (c *Client) get(ctx context.Context, path string, params url.Values, authed bool, dest interface{}) error {
	u := c.apiBase + path
	query := ""
	if len(params) > 0 {
		query = params.Encode()
		u = u + "?" + query
	}

	headers := map[string]string{"Accept": "application/json"}
	if authed {
		token, err := c.mintToken(query)
		if err != nil {
			return err
		}
		headers["Authorization"] = "Bearer " + token
	}

	return c.hc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     u,
		Headers: headers,
	}, dest)
}

func (c *Client) post(ctx context.Context, path string, params url.Values, dest interface{}) error {
	query := params.Encode()
	token, err := c.mintToken(query)
	if err != nil {
		return err
	}

	body := map[string]string{}
	for k := range params {
		body[k] = params.Get(k)
	}

	return c.hc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.apiBase + path,
		Headers: map[string]string{
			"Accept":        "application/json",
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + token,
		},
		Body: body,
	}, dest)
}

// mintToken builds the per-request HS256 JWT Upbit expects: access_key,
// uuid nonce, and for parameterized requests a SHA512 hash of the encoded
// query string.
func (c *Client) mintToken(query string) (string, error) {
	claims := jwt.MapClaims{
		"access_key": c.accessKey,
		"nonce":      uuid.NewString(),
	}
	if query != "" {
		sum := sha512.Sum512([]byte(query))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = "SHA512"
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(c.secretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
