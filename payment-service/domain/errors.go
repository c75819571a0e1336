package domain

import (
	"errors"
	"net/http"
)

var (
	ErrValidation         = errors.New("invalid request")
	ErrStaleState         = errors.New("intent state changed concurrently")
	ErrAlreadyTerminal    = errors.New("intent already in a terminal state")
	ErrVerificationFailed = errors.New("payment signature verification failed")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrExpiredIntent      = errors.New("payment intent expired")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrIntentNotFound     = errors.New("payment intent not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrMerchantNotFound   = errors.New("merchant not found")
	ErrMerchantClosed     = errors.New("merchant is not accepting orders")
	ErrIllegalOrderStatus = errors.New("illegal order status transition")
	ErrCheckoutTimeout    = errors.New("checkout timed out")
)

// Wire codes shared by the service and its clients.
const (
	CodeValidation         = "validation_error"
	CodeStaleState         = "stale_state"
	CodeAlreadyTerminal    = "already_terminal"
	CodeVerificationFailed = "verification_failed"
	CodeGatewayUnavailable = "gateway_unavailable"
	CodeExpiredIntent      = "intent_expired"
	CodePaymentFailed      = "payment_failed"
	CodeNotFound           = "not_found"
	CodeIllegalOrderStatus = "illegal_status_transition"
	CodeCheckoutTimeout    = "checkout_timeout"
	CodeMerchantClosed     = "merchant_closed"
	CodeInternal           = "internal_error"
)

type errorKind struct {
	err    error
	code   string
	status int
}

var errorKinds = []errorKind{
	{ErrValidation, CodeValidation, http.StatusBadRequest},
	{ErrStaleState, CodeStaleState, http.StatusConflict},
	// checked before ErrAlreadyTerminal: a failed intent reports why it is terminal
	{ErrPaymentFailed, CodePaymentFailed, http.StatusPaymentRequired},
	{ErrAlreadyTerminal, CodeAlreadyTerminal, http.StatusConflict},
	{ErrVerificationFailed, CodeVerificationFailed, http.StatusUnprocessableEntity},
	{ErrGatewayUnavailable, CodeGatewayUnavailable, http.StatusServiceUnavailable},
	{ErrExpiredIntent, CodeExpiredIntent, http.StatusGone},
	{ErrIntentNotFound, CodeNotFound, http.StatusNotFound},
	{ErrOrderNotFound, CodeNotFound, http.StatusNotFound},
	{ErrMerchantNotFound, CodeNotFound, http.StatusNotFound},
	{ErrMerchantClosed, CodeMerchantClosed, http.StatusForbidden},
	{ErrIllegalOrderStatus, CodeIllegalOrderStatus, http.StatusConflict},
	{ErrCheckoutTimeout, CodeCheckoutTimeout, http.StatusGatewayTimeout},
}

// CodeOf returns the wire code and HTTP status for err. Unknown errors are internal.
func CodeOf(err error) (string, int) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.code, k.status
		}
	}
	return CodeInternal, http.StatusInternalServerError
}

// ErrorForCode maps a wire code back to its sentinel, or nil for unknown codes.
func ErrorForCode(code string) error {
	for _, k := range errorKinds {
		if k.code == code {
			return k.err
		}
	}
	return nil
}
