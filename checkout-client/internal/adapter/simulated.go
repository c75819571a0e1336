package adapter

import (
	"context"

	"github.com/fjod/canteen/checkout-client/internal/api"
)

// SimulatedPayer completes payments through the service's simulator endpoint.
type SimulatedPayer interface {
	SimulatePayment(ctx context.Context, gatewayOrderRef string) (*api.SimulatedPayment, error)
}

// SimulatedMechanism pays immediately; it is used when the service runs without gateway credentials.
type SimulatedMechanism struct {
	payer SimulatedPayer
}

func NewSimulatedMechanism(payer SimulatedPayer) *SimulatedMechanism {
	return &SimulatedMechanism{payer: payer}
}

func (m *SimulatedMechanism) Name() string { return "simulated" }

func (m *SimulatedMechanism) Probe(context.Context) bool { return m.payer != nil }

func (m *SimulatedMechanism) Present(ctx context.Context, checkout Checkout) (Result, error) {
	p, err := m.payer.SimulatePayment(ctx, checkout.GatewayOrderRef)
	if err != nil {
		return Result{}, err
	}
	return Success(p.PaymentRef, p.GatewayOrderRef, p.Signature), nil
}
