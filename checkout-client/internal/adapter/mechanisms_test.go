package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/canteen/checkout-client/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCheckout = Checkout{
	IntentID:         "pi-1",
	AmountMinorUnits: 30000,
	Currency:         "INR",
	GatewayOrderRef:  "order_1",
	GatewayKeyID:     "rzp_test_key",
	MerchantName:     "Canteen <Main>",
	Description:      "Order pi-1",
}

func TestNativeMechanism_Success(t *testing.T) {
	sdk := &MockSDK{available: true, Resp: NativeResponse{PaymentID: "pay_1", OrderID: "order_1", Signature: "sig"}}
	m := NewNativeMechanism(sdk)

	require.True(t, m.Probe(context.Background()))
	result, err := m.Present(context.Background(), testCheckout)

	require.NoError(t, err)
	assert.Equal(t, Success("pay_1", "order_1", "sig"), result)
	assert.Equal(t, "order_1", sdk.Options.OrderID)
	assert.Equal(t, int64(30000), sdk.Options.Amount)
	assert.Equal(t, "rzp_test_key", sdk.Options.Key)
}

func TestNativeMechanism_ErrorCodes(t *testing.T) {
	cases := []struct {
		name    string
		code    int
		outcome Outcome
		wantErr bool
	}{
		{"cancelled", NativeCodePaymentCancelled, OutcomeCancelled, false},
		{"network", NativeCodeNetworkError, 0, true},
		{"tls", NativeCodeTLSError, 0, true},
		{"invalid options", NativeCodeInvalidOptions, OutcomeFailed, false},
		{"unknown", NativeCodeUnknownError, OutcomeFailed, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sdk := &MockSDK{available: true, Err: &NativeError{Code: tc.code, Description: tc.name}}
			result, err := NewNativeMechanism(sdk).Present(context.Background(), testCheckout)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, result.Outcome)
			assert.Equal(t, tc.name, result.Reason)
		})
	}
}

func TestNativeMechanism_UnavailableModule(t *testing.T) {
	assert.False(t, NewNativeMechanism(&MockSDK{}).Probe(context.Background()))
	assert.False(t, NewNativeMechanism(nil).Probe(context.Background()))
}

func TestRenderCheckout_EscapesAndEmbedsOptions(t *testing.T) {
	doc, err := renderCheckout(testCheckout, DefaultScriptURL)
	require.NoError(t, err)

	assert.Contains(t, doc, `src="https://checkout.razorpay.com/v1/checkout.js"`)
	assert.Contains(t, doc, `"order_id":"order_1"`)
	assert.Contains(t, doc, `"amount":30000`)
	assert.Contains(t, doc, "Canteen &lt;Main&gt;")
	assert.Contains(t, doc, `window["canteenCheckout"]`)
}

func TestEmbeddedMechanism_Success(t *testing.T) {
	host := &MockHost{available: true, Messages: []string{
		`not json`,
		`{"type":"PING"}`,
		`{"type":"PAYMENT_SUCCESS","payload":{"razorpay_payment_id":"pay_1","razorpay_order_id":"order_1","razorpay_signature":"sig"}}`,
	}}
	m := NewEmbeddedMechanism(host, "")

	require.True(t, m.Probe(context.Background()))
	result, err := m.Present(context.Background(), testCheckout)

	require.NoError(t, err)
	assert.Equal(t, Success("pay_1", "order_1", "sig"), result)
	assert.Equal(t, bridgeName, host.Bridge)
	assert.True(t, host.closed)
}

func TestEmbeddedMechanism_CancelledAndFailed(t *testing.T) {
	host := &MockHost{available: true, Messages: []string{`{"type":"PAYMENT_CANCELLED","payload":{"description":"Payment cancelled by user"}}`}}
	result, err := NewEmbeddedMechanism(host, "").Present(context.Background(), testCheckout)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, result.Outcome)

	host = &MockHost{available: true, Messages: []string{`{"type":"PAYMENT_FAILED","payload":{"code":"BAD_REQUEST_ERROR","description":"card declined"}}`}}
	result, err = NewEmbeddedMechanism(host, "").Present(context.Background(), testCheckout)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
}

func TestEmbeddedMechanism_ScriptErrorAndContext(t *testing.T) {
	host := &MockHost{available: true, Messages: []string{`{"type":"CHECKOUT_ERROR","payload":{"description":"Razorpay is not defined"}}`}}
	_, err := NewEmbeddedMechanism(host, "").Present(context.Background(), testCheckout)
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = NewEmbeddedMechanism(&MockHost{available: true}, "").Present(ctx, testCheckout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = NewEmbeddedMechanism(&MockHost{available: true, ShowErr: errors.New("no display")}, "").Present(context.Background(), testCheckout)
	assert.Error(t, err)
}

type stubPayer struct{}

func (stubPayer) SimulatePayment(_ context.Context, ref string) (*api.SimulatedPayment, error) {
	return &api.SimulatedPayment{PaymentRef: "pay_sim", GatewayOrderRef: ref, Signature: "sig"}, nil
}

func TestSimulatedMechanism(t *testing.T) {
	m := NewSimulatedMechanism(stubPayer{})
	require.True(t, m.Probe(context.Background()))
	result, err := m.Present(context.Background(), testCheckout)
	require.NoError(t, err)
	assert.Equal(t, Success("pay_sim", "order_1", "sig"), result)
}
