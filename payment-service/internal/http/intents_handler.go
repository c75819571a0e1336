package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/payment-service/internal/service"
	"github.com/fjod/canteen/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxIdempotencyKeyLen = 128

type IntentsHandler struct {
	payments service.PaymentService
	timeout  time.Duration
	log      *zap.Logger
}

func NewIntentsHandler(payments service.PaymentService, timeout time.Duration, log *zap.Logger) *IntentsHandler {
	return &IntentsHandler{
		payments: payments,
		timeout:  timeout,
		log:      log,
	}
}

// POST /api/v1/payment-intents
func (h *IntentsHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}

	key := r.Header.Get(HeaderIdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		respondError(w, http.StatusBadRequest, d.CodeValidation, "idempotency key too long")
		return
	}

	var req d.CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, d.CodeValidation, "invalid JSON body")
		return
	}

	resp, err := h.payments.CreateIntent(ctx, userID, key, &req)
	if err != nil {
		respondDomainError(w, logger.FromContext(ctx, h.log), err)
		return
	}

	status := http.StatusCreated
	if resp.Reused {
		status = http.StatusOK
	}
	respondJSON(w, status, resp)
}

// GET /api/v1/payment-intents/{intent_id}
func (h *IntentsHandler) GetIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}

	resp, err := h.payments.GetIntent(ctx, userID, chi.URLParam(r, "intent_id"))
	if err != nil {
		respondDomainError(w, logger.FromContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/v1/payment-intents/{intent_id}/checkout
func (h *IntentsHandler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}

	resp, err := h.payments.BeginCheckout(ctx, userID, chi.URLParam(r, "intent_id"))
	if err != nil {
		respondDomainError(w, logger.FromContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/v1/payment-intents/finalize
func (h *IntentsHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}

	var req d.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, d.CodeValidation, "invalid JSON body")
		return
	}

	resp, err := h.payments.Finalize(ctx, userID, &req)
	if err != nil {
		respondDomainError(w, logger.FromContext(ctx, h.log), err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	respondJSON(w, status, resp)
}
