package http

import (
	"encoding/json"
	"net/http"

	d "github.com/fjod/canteen/payment-service/domain"
)

// Payer completes a payment against a simulated gateway order.
type Payer interface {
	Pay(gatewayOrderRef string) (paymentRef, signature string)
}

// SimulatorHandler stands in for the hosted checkout when the gateway is simulated.
type SimulatorHandler struct {
	payer Payer
}

func NewSimulatorHandler(payer Payer) *SimulatorHandler {
	return &SimulatorHandler{payer: payer}
}

type SimulatedPayRequest struct {
	GatewayOrderRef string `json:"gatewayOrderRef"`
}

type SimulatedPayResponse struct {
	PaymentRef      string `json:"paymentRef"`
	GatewayOrderRef string `json:"gatewayOrderRef"`
	Signature       string `json:"signature"`
}

// POST /api/v1/simulator/pay
func (h *SimulatorHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req SimulatedPayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GatewayOrderRef == "" {
		respondError(w, http.StatusBadRequest, d.CodeValidation, "gatewayOrderRef is required")
		return
	}
	paymentRef, signature := h.payer.Pay(req.GatewayOrderRef)
	respondJSON(w, http.StatusOK, SimulatedPayResponse{
		PaymentRef:      paymentRef,
		GatewayOrderRef: req.GatewayOrderRef,
		Signature:       signature,
	})
}
