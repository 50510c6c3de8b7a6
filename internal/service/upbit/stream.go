package upbit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"TradeHook/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Stream maintains a websocket subscription to Upbit ticker frames and keeps
// the last trade price per market. It is an optional fast path; the REST
// ticker endpoint remains the fallback whenever a price is absent or stale.
type Stream struct {
	url            string
	markets        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *logger.Logger

	mu     sync.RWMutex
	prices map[string]streamPrice
}

type streamPrice struct {
	value float64
	at    time.Time
}

type StreamConfig struct {
	URL            string
	Markets        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// NewStream creates a price stream for the given markets. Run must be called
// for prices to start flowing.
func NewStream(cfg StreamConfig, l *logger.Logger) *Stream {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	return &Stream{
		url:            cfg.URL,
		markets:        cfg.Markets,
		reconnectDelay: delay,
		pingInterval:   ping,
		logger:         l,
		prices:         make(map[string]streamPrice),
	}
}

// LastPrice returns the most recent trade price for a market and when it
// arrived. ok is false if no frame for the market has been seen yet.
func (s *Stream) LastPrice(market string) (price float64, at time.Time, ok bool) {
	s.mu.RLock()
	p, ok := s.prices[market]
	s.mu.RUnlock()
	return p.value, p.at, ok
}

// Run connects and consumes ticker frames until ctx is cancelled,
// reconnecting after transient failures.
func (s *Stream) Run(ctx context.Context) {
	for {
		if err := s.consume(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("ticker stream disconnected",
				logger.Error(err),
				logger.Duration("retry_in", s.reconnectDelay))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

type tickerFrame struct {
	Type       string      `json:"type"`
	Code       string      `json:"code"`
	TradePrice json.Number `json:"trade_price"`
	Timestamp  int64       `json:"timestamp"`
}

func (s *Stream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := []interface{}{
		map[string]string{"ticket": uuid.NewString()},
		map[string]interface{}{"type": "ticker", "codes": s.markets},
		map[string]string{"format": "DEFAULT"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	s.logger.Info("ticker stream subscribed", logger.Strings("markets", s.markets))

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(ctx, conn, done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame tickerFrame
		if err := json.Unmarshal(msg, &frame); err != nil || frame.Type != "ticker" {
			continue
		}
		price, err := frame.TradePrice.Float64()
		if err != nil || price <= 0 {
			continue
		}

		s.mu.Lock()
		s.prices[frame.Code] = streamPrice{value: price, at: time.Now()}
		s.mu.Unlock()
	}
}

// keepAlive sends periodic pings and forces the connection closed on ctx
// cancellation so the blocked ReadMessage returns.
func (s *Stream) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				conn.Close()
				return
			}
		}
	}
}
