package domain

type CartItemRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"qty"`
}

type CreateIntentRequest struct {
	MerchantID      string            `json:"merchantId"`
	Items           []CartItemRequest `json:"items"`
	FulfillmentType FulfillmentType   `json:"fulfillmentType"`
	Location        *Location         `json:"location,omitempty"`
}

// IntentResponse is returned by create, checkout and status polling.
type IntentResponse struct {
	IntentID         string      `json:"intentId"`
	State            IntentState `json:"state"`
	AmountMinorUnits int64       `json:"amountMinorUnits"`
	Currency         string      `json:"currency"`
	GatewayReference string      `json:"gatewayReference,omitempty"`
	GatewayKeyID     string      `json:"gatewayKeyId,omitempty"`
	OrderID          string      `json:"orderId,omitempty"`
	Reused           bool        `json:"reused,omitempty"`

	FulfillmentType      FulfillmentType `json:"fulfillmentType,omitempty"`
	AutoConversionReason string          `json:"autoConversionReason,omitempty"`
}

type FinalizeRequest struct {
	IntentID        string `json:"intentId"`
	PaymentRef      string `json:"paymentRef"`
	GatewayOrderRef string `json:"gatewayOrderRef"`
	Signature       string `json:"signature"`
}

type FinalizeResponse struct {
	OrderID  string      `json:"orderId"`
	Status   OrderStatus `json:"status"`
	Replayed bool        `json:"replayed,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}

type UpdateOrderStatusResponse struct {
	Success bool   `json:"success"`
	Order   *Order `json:"order,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func NewIntentResponse(intent *PaymentIntent, gatewayKeyID string) *IntentResponse {
	return &IntentResponse{
		IntentID:         intent.ID,
		State:            intent.State,
		AmountMinorUnits: intent.AmountMinorUnits,
		Currency:         intent.Currency,
		GatewayReference: intent.GatewayReference,
		GatewayKeyID:     gatewayKeyID,
		OrderID:          intent.OrderID,

		FulfillmentType:      intent.Cart.FulfillmentType,
		AutoConversionReason: intent.Cart.AutoConversionReason,
	}
}
