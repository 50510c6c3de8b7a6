package models

import "time"

// Direction of a derived trading intent.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Alert is the raw webhook payload, one per HTTP request.
type Alert struct {
	Ticker string `json:"ticker" validate:"required"`
	Value  string `json:"value" validate:"required"`
}

// Signal is the normalized trading intent derived from an Alert.
// Direction is guaranteed non-empty before dispatch to the executor.
type Signal struct {
	Ticker    string
	Direction Direction
	RawValue  string
}

// DedupKey identifies "the same alert" for suppression purposes.
func (s Signal) DedupKey() string {
	return s.Ticker + "_" + s.RawValue + "_" + string(s.Direction)
}

// AccountSnapshot is fetched fresh per execution, never cached.
type AccountSnapshot struct {
	HasPosition      bool
	PositionQuantity string // decimal string, exchange precision preserved
	AvgBuyPrice      float64
	KRWBalance       float64
	InvestableKRW    int64 // floor(balance * 0.999), fee headroom
}

// OrderResult is the gateway's answer to an order placement.
// Accepted iff the exchange returned an order identifier.
type OrderResult struct {
	OrderID  string
	Accepted bool
}

// OpenOrder is a pending order row returned by the gateway.
type OpenOrder struct {
	OrderID   string
	Market    string
	Side      string
	State     string
	Volume    string
	CreatedAt time.Time
}

// Candle is an OHLCV row from the candle source, chronological order.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Execution outcomes recorded in the journal.
const (
	OutcomeFilled   = "filled"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// ExecutionRecord is the journal row emitted per completed execution attempt.
type ExecutionRecord struct {
	Ticker    string    `json:"ticker"`
	Market    string    `json:"market"`
	Direction Direction `json:"direction"`
	RawValue  string    `json:"raw_value"`
	OrderID   string    `json:"order_id,omitempty"`
	AmountKRW int64     `json:"amount_krw,omitempty"`
	Quantity  string    `json:"quantity,omitempty"`
	Outcome   string    `json:"outcome"` // filled, skipped, rejected, failed
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"ts"`
}
