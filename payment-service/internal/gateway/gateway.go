package gateway

import "context"

type OrderRequest struct {
	AmountMinorUnits int64
	Currency         string
	Receipt          string
	Notes            map[string]string
}

// Order is the gateway-side order a checkout is opened against.
type Order struct {
	ID               string `json:"id"`
	AmountMinorUnits int64  `json:"amount"`
	Currency         string `json:"currency"`
	Receipt          string `json:"receipt"`
	Status           string `json:"status"`
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// KeyID is the public key the checkout surface opens with.
	KeyID() string
}
