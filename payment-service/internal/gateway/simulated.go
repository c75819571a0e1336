package gateway

import (
	"context"
	"fmt"
	"strings"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/google/uuid"
)

const SimulatedKeyID = "rzp_test_simulated"

// SimulatedGateway stands in for the real gateway when no credentials are configured.
// It signs payments with the same scheme so finalization runs unchanged.
type SimulatedGateway struct {
	signer *Signer
}

func NewSimulatedGateway(signer *Signer) *SimulatedGateway {
	return &SimulatedGateway{signer: signer}
}

func (g *SimulatedGateway) KeyID() string {
	return SimulatedKeyID
}

func (g *SimulatedGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", d.ErrGatewayUnavailable, err)
	}
	if req.AmountMinorUnits < 1 {
		return nil, fmt.Errorf("%w: amount must be at least 1", d.ErrValidation)
	}
	return &Order{
		ID:               "order_sim_" + shortID(),
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         req.Currency,
		Receipt:          req.Receipt,
		Status:           "created",
	}, nil
}

// Pay simulates a successful payment and returns the payment ref and its signature.
func (g *SimulatedGateway) Pay(gatewayOrderRef string) (string, string) {
	paymentRef := "pay_sim_" + shortID()
	return paymentRef, g.signer.Sign(gatewayOrderRef, paymentRef)
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:14]
}
