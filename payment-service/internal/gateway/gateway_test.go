package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestSigner_SignAndVerify(t *testing.T) {
	s := NewSigner("secret")
	sig := s.Sign("order_1", "pay_1")

	assert.Len(t, sig, 64)
	assert.True(t, s.Verify("order_1", "pay_1", sig))
	assert.False(t, s.Verify("order_1", "pay_2", sig))
	assert.False(t, s.Verify("order_2", "pay_1", sig))
	assert.False(t, s.Verify("order_1", "pay_1", sig[:63]+"0"))
	assert.False(t, NewSigner("other").Verify("order_1", "pay_1", sig))
}

func TestSigner_EmptyInputsNeverVerify(t *testing.T) {
	s := NewSigner("")
	assert.False(t, s.Verify("order_1", "pay_1", s.Sign("order_1", "pay_1")))
	assert.False(t, NewSigner("secret").Verify("", "", ""))
}

func TestRazorpayClient_CreateOrder(t *testing.T) {
	var got createOrderBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Order{ID: "order_abc", AmountMinorUnits: got.Amount, Currency: got.Currency, Receipt: got.Receipt, Status: "created"})
	}))
	defer server.Close()

	c := NewRazorpayClient(server.URL, "rzp_test_key", "secret", time.Second, zap.NewNop())
	order, err := c.CreateOrder(context.Background(), OrderRequest{
		AmountMinorUnits: 30000,
		Currency:         "INR",
		Receipt:          "intent-1",
		Notes:            map[string]string{"merchant_id": "m1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(30000), got.Amount)
	assert.Equal(t, "intent-1", got.Receipt)
	assert.Equal(t, "m1", got.Notes["merchant_id"])
	assert.Equal(t, "rzp_test_key", c.KeyID())
}

func TestRazorpayClient_PropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var traceparent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Order{ID: "order_abc", Status: "created"})
	}))
	defer server.Close()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	c := NewRazorpayClient(server.URL, "rzp_test_key", "secret", time.Second, zap.NewNop())
	_, err := c.CreateOrder(ctx, OrderRequest{AmountMinorUnits: 100, Currency: "INR", Receipt: "intent-1"})

	require.NoError(t, err)
	assert.Contains(t, traceparent, "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestRazorpayClient_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewRazorpayClient(server.URL, "k", "s", time.Second, zap.NewNop())
	_, err := c.CreateOrder(context.Background(), OrderRequest{AmountMinorUnits: 100, Currency: "INR", Receipt: "r"})
	assert.ErrorIs(t, err, d.ErrGatewayUnavailable)
}

func TestRazorpayClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewRazorpayClient(server.URL, "k", "s", time.Second, zap.NewNop())
	for i := 0; i < 8; i++ {
		_, err := c.CreateOrder(context.Background(), OrderRequest{AmountMinorUnits: 100, Currency: "INR", Receipt: "r"})
		assert.ErrorIs(t, err, d.ErrGatewayUnavailable)
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestRazorpayClient_RejectionDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"receipt too long"}}`))
	}))
	defer server.Close()

	c := NewRazorpayClient(server.URL, "k", "s", time.Second, zap.NewNop())
	for i := 0; i < 8; i++ {
		_, err := c.CreateOrder(context.Background(), OrderRequest{AmountMinorUnits: 100, Currency: "INR", Receipt: "r"})
		assert.ErrorIs(t, err, d.ErrGatewayUnavailable)
		assert.Contains(t, err.Error(), "receipt too long")
	}
	assert.Equal(t, int32(8), calls.Load())
}

func TestRazorpayClient_RejectsZeroAmount(t *testing.T) {
	c := NewRazorpayClient("http://127.0.0.1:1", "k", "s", time.Second, zap.NewNop())
	_, err := c.CreateOrder(context.Background(), OrderRequest{AmountMinorUnits: 0})
	assert.ErrorIs(t, err, d.ErrValidation)
}

func TestSimulatedGateway_PaymentVerifies(t *testing.T) {
	signer := NewSigner("secret")
	g := NewSimulatedGateway(signer)

	order, err := g.CreateOrder(context.Background(), OrderRequest{AmountMinorUnits: 500, Currency: "INR", Receipt: "intent-1"})
	require.NoError(t, err)
	assert.Contains(t, order.ID, "order_sim_")

	paymentRef, sig := g.Pay(order.ID)
	assert.True(t, signer.Verify(order.ID, paymentRef, sig))
	assert.Equal(t, SimulatedKeyID, g.KeyID())
}
