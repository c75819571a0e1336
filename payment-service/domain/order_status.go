package domain

// OrderStatus is the fulfillment pipeline of an order, separate from the payment state of its intent.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
)

// ActiveOrderStatuses are shown on the vendor terminal.
var ActiveOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusPreparing,
	OrderStatusReady,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusPreparing, OrderStatusReady,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) IsActive() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusPreparing, OrderStatusReady:
		return true
	}
	return false
}

// CanMoveOrderTo guards vendor status writes. Vendors may skip ahead in the
// pipeline; cancelled and refunded orders are final, and completed orders can only be refunded.
func CanMoveOrderTo(from, to OrderStatus) bool {
	if !to.Valid() || from == to {
		return false
	}
	switch from {
	case OrderStatusCancelled, OrderStatusRefunded:
		return false
	case OrderStatusCompleted:
		return to == OrderStatusRefunded
	}
	return true
}

func (s OrderStatus) String() string {
	return string(s)
}
