package http

import (
	"context"

	d "github.com/fjod/canteen/payment-service/domain"
)

type MockPaymentService struct {
	Intent    *d.IntentResponse
	Finalized *d.FinalizeResponse
	Err       error

	LastUserID string
	LastKey    string
	LastCreate *d.CreateIntentRequest
	LastIntent string
}

func (m *MockPaymentService) CreateIntent(_ context.Context, userID, key string, req *d.CreateIntentRequest) (*d.IntentResponse, error) {
	m.LastUserID, m.LastKey, m.LastCreate = userID, key, req
	return m.Intent, m.Err
}

func (m *MockPaymentService) BeginCheckout(_ context.Context, userID, intentID string) (*d.IntentResponse, error) {
	m.LastUserID, m.LastIntent = userID, intentID
	return m.Intent, m.Err
}

func (m *MockPaymentService) GetIntent(_ context.Context, userID, intentID string) (*d.IntentResponse, error) {
	m.LastUserID, m.LastIntent = userID, intentID
	return m.Intent, m.Err
}

func (m *MockPaymentService) Finalize(_ context.Context, userID string, req *d.FinalizeRequest) (*d.FinalizeResponse, error) {
	m.LastUserID, m.LastIntent = userID, req.IntentID
	return m.Finalized, m.Err
}

type MockOrderService struct {
	Orders []*d.Order
	Order  *d.Order
	Err    error

	LastMerchant string
	LastOrder    string
	LastStatus   d.OrderStatus
}

func (m *MockOrderService) UpdateOrderStatus(_ context.Context, merchantID, orderID string, status d.OrderStatus) (*d.Order, error) {
	m.LastMerchant, m.LastOrder, m.LastStatus = merchantID, orderID, status
	return m.Order, m.Err
}

func (m *MockOrderService) ListActiveOrders(_ context.Context, merchantID string) ([]*d.Order, error) {
	m.LastMerchant = merchantID
	return m.Orders, m.Err
}
