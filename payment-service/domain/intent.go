package domain

import "time"

const DefaultCurrency = "INR"

type FulfillmentType string

const (
	FulfillmentTakeaway FulfillmentType = "TAKEAWAY"
	FulfillmentDineIn   FulfillmentType = "DINE_IN"
)

func (f FulfillmentType) Valid() bool {
	return f == FulfillmentTakeaway || f == FulfillmentDineIn
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// CartSnapshotItem captures an item price at intent creation time.
// Amounts are integer minor units (paise).
type CartSnapshotItem struct {
	ItemID              string `json:"itemId"`
	Name                string `json:"name"`
	Quantity            int    `json:"qty"`
	UnitPriceMinorUnits int64  `json:"unitPriceMinorUnits"`
	TaxRate             string `json:"taxRate"`
	TaxInclusive        bool   `json:"taxInclusive"`
	LineTotalMinorUnits int64  `json:"lineTotalMinorUnits"`
}

type CartSnapshot struct {
	Items              []CartSnapshotItem `json:"items"`
	SubtotalMinorUnits int64              `json:"subtotalMinorUnits"`
	TaxMinorUnits      int64              `json:"taxMinorUnits"`
	TotalMinorUnits    int64              `json:"totalMinorUnits"`
	Currency           string             `json:"currency"`
	FulfillmentType    FulfillmentType    `json:"fulfillmentType"`
	Location           *Location          `json:"location,omitempty"`
	CapturedAt         time.Time          `json:"capturedAt"`

	// Set when the requested fulfillment was downgraded at creation.
	RequestedFulfillment FulfillmentType `json:"requestedFulfillmentType,omitempty"`
	AutoConversionReason string          `json:"autoConversionReason,omitempty"`
	DistanceMeters       *float64        `json:"distanceMeters,omitempty"`
}

type PaymentIntent struct {
	ID                   string
	UserID               string
	MerchantID           string
	IdempotencyKey       string
	RequestHash          string
	State                IntentState
	AmountMinorUnits     int64
	Currency             string
	Cart                 CartSnapshot
	GatewayReference     string
	PaymentRef           string
	OrderID              string
	VerificationAttempts int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IdleSince reports whether the intent has seen no activity since t.
func (i *PaymentIntent) IdleSince(t time.Time) bool {
	return i.UpdatedAt.Before(t)
}

type OrderItem struct {
	ItemID              string `json:"itemId"`
	Name                string `json:"name"`
	Quantity            int    `json:"qty"`
	UnitPriceMinorUnits int64  `json:"unitPriceMinorUnits"`
}

// Order is written once by finalization; only Status changes afterwards.
type Order struct {
	ID              string          `json:"id"`
	PaymentIntentID string          `json:"paymentIntentId"`
	MerchantID      string          `json:"merchantId"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	TotalMinorUnits int64           `json:"totalMinorUnits"`
	Currency        string          `json:"currency"`
	Status          OrderStatus     `json:"status"`
	FulfillmentType FulfillmentType `json:"fulfillmentType"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderFromIntent freezes the intent's cart snapshot into order items.
func OrderFromIntent(orderID string, intent *PaymentIntent, now time.Time) *Order {
	items := make([]OrderItem, 0, len(intent.Cart.Items))
	for _, it := range intent.Cart.Items {
		items = append(items, OrderItem{
			ItemID:              it.ItemID,
			Name:                it.Name,
			Quantity:            it.Quantity,
			UnitPriceMinorUnits: it.UnitPriceMinorUnits,
		})
	}
	return &Order{
		ID:              orderID,
		PaymentIntentID: intent.ID,
		MerchantID:      intent.MerchantID,
		UserID:          intent.UserID,
		Items:           items,
		TotalMinorUnits: intent.AmountMinorUnits,
		Currency:        intent.Currency,
		Status:          OrderStatusPending,
		FulfillmentType: intent.Cart.FulfillmentType,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

type MenuItem struct {
	ID              string `db:"id" json:"id"`
	MerchantID      string `db:"merchant_id" json:"merchantId"`
	Name            string `db:"name" json:"name"`
	PriceMinorUnits int64  `db:"price_minor_units" json:"priceMinorUnits"`
	TaxRate         string `db:"tax_rate" json:"taxRate"` // percent, e.g. "5.00"
	TaxInclusive    bool   `db:"tax_inclusive" json:"taxInclusive"`
	Available       bool   `db:"available" json:"available"`
}
