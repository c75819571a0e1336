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

type OrdersHandler struct {
	orders  service.OrderService
	timeout time.Duration
	log     *zap.Logger
}

func NewOrdersHandler(orders service.OrderService, timeout time.Duration, log *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
		log:     log,
	}
}

// GET /api/v1/orders?active=true
func (h *OrdersHandler) ListActiveOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	merchantID := getMerchantIDFromContext(r.Context())
	if merchantID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing merchant identity")
		return
	}
	if active := r.URL.Query().Get("active"); active != "" && active != "true" {
		respondError(w, http.StatusBadRequest, d.CodeValidation, "only active orders can be listed")
		return
	}

	orders, err := h.orders.ListActiveOrders(ctx, merchantID)
	if err != nil {
		respondDomainError(w, logger.FromContext(ctx, h.log), err)
		return
	}
	if orders == nil {
		orders = []*d.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// PATCH /api/v1/orders/{order_id}/status
func (h *OrdersHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	merchantID := getMerchantIDFromContext(r.Context())
	if merchantID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing merchant identity")
		return
	}

	var req d.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, d.CodeValidation, "invalid JSON body")
		return
	}

	order, err := h.orders.UpdateOrderStatus(ctx, merchantID, chi.URLParam(r, "order_id"), req.Status)
	if err != nil {
		respondDomainError(w, logger.FromContext(ctx, h.log), err)
		return
	}
	respondJSON(w, http.StatusOK, d.UpdateOrderStatusResponse{Success: true, Order: order})
}
