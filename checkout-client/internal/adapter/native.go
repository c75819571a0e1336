package adapter

import (
	"context"
	"errors"
	"fmt"
)

// Error codes reported by the native checkout module.
const (
	NativeCodePaymentCancelled   = 0
	NativeCodeNetworkError       = 2
	NativeCodeInvalidOptions     = 3
	NativeCodeTLSError           = 6
	NativeCodeIncompatiblePlugin = 7
	NativeCodeUnknownError       = 100
)

type NativeOptions struct {
	Key         string `json:"key"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OrderID     string `json:"order_id"`
}

type NativeResponse struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

type NativeError struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Reason      string `json:"reason,omitempty"`
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("native checkout error %d: %s", e.Code, e.Description)
}

// NativeSDK is an in-process checkout module.
type NativeSDK interface {
	Available() bool
	Open(ctx context.Context, options NativeOptions) (NativeResponse, error)
}

type NativeMechanism struct {
	sdk NativeSDK
}

func NewNativeMechanism(sdk NativeSDK) *NativeMechanism {
	return &NativeMechanism{sdk: sdk}
}

func (m *NativeMechanism) Name() string { return "native" }

func (m *NativeMechanism) Probe(context.Context) bool {
	return m.sdk != nil && m.sdk.Available()
}

func (m *NativeMechanism) Present(ctx context.Context, checkout Checkout) (Result, error) {
	resp, err := m.sdk.Open(ctx, NativeOptions{
		Key:         checkout.GatewayKeyID,
		Amount:      checkout.AmountMinorUnits,
		Currency:    checkout.Currency,
		Name:        checkout.MerchantName,
		Description: checkout.Description,
		OrderID:     checkout.GatewayOrderRef,
	})
	if err == nil {
		return Success(resp.PaymentID, resp.OrderID, resp.Signature), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}

	var nerr *NativeError
	if !errors.As(err, &nerr) {
		return Result{}, err
	}
	switch nerr.Code {
	case NativeCodePaymentCancelled:
		return Cancelled(nerr.Description), nil
	case NativeCodeNetworkError, NativeCodeTLSError, NativeCodeIncompatiblePlugin:
		return Result{}, err
	default:
		return Failed(nerr.Description), nil
	}
}
