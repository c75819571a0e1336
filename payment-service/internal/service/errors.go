package service

import (
	"fmt"

	d "github.com/fjod/canteen/payment-service/domain"
)

var (
	ErrEmptyCart          = fmt.Errorf("%w: cart is empty, nothing to checkout", d.ErrValidation)
	ErrMissingMerchant    = fmt.Errorf("%w: merchantId is required", d.ErrValidation)
	ErrBadQuantity        = fmt.Errorf("%w: quantity must be between 1 and %d", d.ErrValidation, MaxItemQuantity)
	ErrTooManyItems       = fmt.Errorf("%w: too many distinct items", d.ErrValidation)
	ErrUnknownItem        = fmt.Errorf("%w: item not on this merchant's menu", d.ErrValidation)
	ErrItemUnavailable    = fmt.Errorf("%w: item is unavailable", d.ErrValidation)
	ErrBadFulfillment     = fmt.Errorf("%w: unknown fulfillment type", d.ErrValidation)
	ErrBadLocation        = fmt.Errorf("%w: location out of range", d.ErrValidation)
	ErrKeyReused          = fmt.Errorf("%w: idempotency key reused with a different request", d.ErrValidation)
	ErrIncompleteCallback = fmt.Errorf("%w: intentId, paymentRef, gatewayOrderRef and signature are required", d.ErrValidation)
	ErrBadOrderStatus     = fmt.Errorf("%w: unknown order status", d.ErrValidation)
)
