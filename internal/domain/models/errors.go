package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies execution failures. Every error crossing the webhook
// boundary carries exactly one kind.
type ErrorKind string

const (
	KindInvalidInput        ErrorKind = "invalid_input"
	KindInsufficientData    ErrorKind = "insufficient_data"
	KindPriceUnavailable    ErrorKind = "price_unavailable"
	KindAccountDataMissing  ErrorKind = "account_data_missing"
	KindNoPosition          ErrorKind = "no_position"
	KindOrderRejected       ErrorKind = "order_rejected"
	KindGatewayError        ErrorKind = "gateway_error"
	KindConfirmationTimeout ErrorKind = "confirmation_timeout"
)

// TradeError wraps a failure with its taxonomy kind.
type TradeError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *TradeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// Is matches against another TradeError with the same kind, so tests and
// callers can use errors.Is(err, models.Err(kind)).
func (e *TradeError) Is(target error) bool {
	var te *TradeError
	if errors.As(target, &te) {
		return te.Kind == e.Kind
	}
	return false
}

// NewTradeError creates an error of the given kind.
func NewTradeError(kind ErrorKind, format string, a ...interface{}) *TradeError {
	return &TradeError{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// WrapTradeError creates an error of the given kind wrapping a cause.
func WrapTradeError(kind ErrorKind, err error, format string, a ...interface{}) *TradeError {
	return &TradeError{Kind: kind, Msg: fmt.Sprintf(format, a...), Err: err}
}

// Err returns a bare marker error for errors.Is comparisons.
func Err(kind ErrorKind) error {
	return &TradeError{Kind: kind}
}

// KindOf extracts the kind from err, or empty if err is not a TradeError.
func KindOf(err error) ErrorKind {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
