package http

import (
	"encoding/json"
	"net/http"

	d "github.com/fjod/canteen/payment-service/domain"
	"go.uber.org/zap"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, d.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondDomainError maps err onto its wire code. Internal errors are logged, not echoed.
func respondDomainError(w http.ResponseWriter, log *zap.Logger, err error) {
	code, status := d.CodeOf(err)
	if status >= http.StatusInternalServerError && code == d.CodeInternal {
		log.Error("request failed", zap.Error(err))
		respondError(w, status, code, "internal server error")
		return
	}

	respondJSON(w, status, d.ErrorResponse{
		Error:   message(code),
		Code:    code,
		Details: err.Error(),
	})
}

func message(code string) string {
	switch code {
	case d.CodeValidation:
		return "invalid request"
	case d.CodeStaleState:
		return "state changed concurrently, re-read and retry"
	case d.CodeAlreadyTerminal:
		return "payment intent already reached a terminal state"
	case d.CodePaymentFailed:
		return "payment failed"
	case d.CodeVerificationFailed:
		return "payment verification failed"
	case d.CodeGatewayUnavailable:
		return "payment gateway unavailable, retry later"
	case d.CodeExpiredIntent:
		return "payment intent expired"
	case d.CodeNotFound:
		return "not found"
	case d.CodeIllegalOrderStatus:
		return "illegal order status transition"
	case d.CodeCheckoutTimeout:
		return "checkout timed out"
	default:
		return "request failed"
	}
}
