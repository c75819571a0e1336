package adapter

import (
	"context"
	"sync"

	d "github.com/fjod/canteen/payment-service/domain"
)

type MockIntents struct {
	mu        sync.Mutex
	Reference string
	Err       error
	Calls     int
}

func (m *MockIntents) BeginCheckout(_ context.Context, intentID string) (*d.IntentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return &d.IntentResponse{
		IntentID:         intentID,
		State:            d.IntentStateAwaitingPayment,
		AmountMinorUnits: 30000,
		Currency:         d.DefaultCurrency,
		GatewayReference: m.Reference,
		GatewayKeyID:     "rzp_test_key",
	}, nil
}

// MockMechanism returns a fixed result, or blocks until ctx is done when Block is set.
type MockMechanism struct {
	name      string
	available bool
	Result    Result
	Err       error
	Block     bool

	mu       sync.Mutex
	probes   int
	Received []Checkout
}

func (m *MockMechanism) Name() string { return m.name }

func (m *MockMechanism) Probe(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	return m.available
}

func (m *MockMechanism) Present(ctx context.Context, checkout Checkout) (Result, error) {
	m.mu.Lock()
	m.Received = append(m.Received, checkout)
	m.mu.Unlock()
	if m.Block {
		<-ctx.Done()
		return Result{}, ctx.Err()
	}
	return m.Result, m.Err
}

type MockSDK struct {
	available bool
	Resp      NativeResponse
	Err       error
	Options   NativeOptions
}

func (s *MockSDK) Available() bool { return s.available }

func (s *MockSDK) Open(_ context.Context, options NativeOptions) (NativeResponse, error) {
	s.Options = options
	return s.Resp, s.Err
}

// MockHost replays scripted page messages through the bridge.
type MockHost struct {
	available bool
	Messages  []string
	ShowErr   error
	Document  string
	Bridge    string
	closed    bool
}

func (h *MockHost) Available(context.Context) bool { return h.available }

func (h *MockHost) Show(_ context.Context, document, bridge string, deliver func([]byte)) (func() error, error) {
	if h.ShowErr != nil {
		return nil, h.ShowErr
	}
	h.Document, h.Bridge = document, bridge
	go func() {
		for _, m := range h.Messages {
			deliver([]byte(m))
		}
	}()
	return func() error { h.closed = true; return nil }, nil
}
