package service

import (
	"sort"
	"strings"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/pkg/idempotency"
)

const (
	MaxItemQuantity = 99
	MaxCartLines    = 50
)

// normalizeRequest validates req and returns a copy with merged, sorted items
// and the default fulfillment type applied.
func normalizeRequest(req *d.CreateIntentRequest) (*d.CreateIntentRequest, error) {
	if req == nil || strings.TrimSpace(req.MerchantID) == "" {
		return nil, ErrMissingMerchant
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	fulfillment := d.FulfillmentType(strings.ToUpper(string(req.FulfillmentType)))
	if fulfillment == "" {
		fulfillment = d.FulfillmentTakeaway
	}
	if !fulfillment.Valid() {
		return nil, ErrBadFulfillment
	}
	if req.Location != nil && !req.Location.Valid() {
		return nil, ErrBadLocation
	}

	qty := make(map[string]int, len(req.Items))
	for _, it := range req.Items {
		id := strings.TrimSpace(it.ItemID)
		if id == "" {
			return nil, ErrUnknownItem
		}
		if it.Quantity < 1 || it.Quantity > MaxItemQuantity {
			return nil, ErrBadQuantity
		}
		qty[id] += it.Quantity
		if qty[id] > MaxItemQuantity {
			return nil, ErrBadQuantity
		}
	}
	if len(qty) > MaxCartLines {
		return nil, ErrTooManyItems
	}

	items := make([]d.CartItemRequest, 0, len(qty))
	for id, q := range qty {
		items = append(items, d.CartItemRequest{ItemID: id, Quantity: q})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })

	return &d.CreateIntentRequest{
		MerchantID:      strings.TrimSpace(req.MerchantID),
		Items:           items,
		FulfillmentType: fulfillment,
		Location:        req.Location,
	}, nil
}

func requestHash(req *d.CreateIntentRequest) string {
	hr := idempotency.Request{
		MerchantID:      req.MerchantID,
		FulfillmentType: string(req.FulfillmentType),
		Items:           make([]idempotency.Item, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		hr.Items = append(hr.Items, idempotency.Item{ID: it.ItemID, Quantity: it.Quantity})
	}
	if req.Location != nil {
		hr.Location = &idempotency.Location{Lat: req.Location.Lat, Lng: req.Location.Lng}
	}
	return idempotency.RequestHash(hr)
}
