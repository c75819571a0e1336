package service

import (
	"math"

	d "github.com/fjod/canteen/payment-service/domain"
)

const earthRadiusMeters = 6371e3

// distanceMeters is the haversine great-circle distance between a and b.
func distanceMeters(a, b d.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

type fulfillment struct {
	Type     d.FulfillmentType
	Reason   string
	Distance *float64
}

// resolveFulfillment decides how the order is served. Takeaway is never
// upgraded; dine-in is downgraded to takeaway unless the customer is inside
// the merchant's geofence.
func resolveFulfillment(m *d.Merchant, requested d.FulfillmentType, at *d.Location) fulfillment {
	vendor := m.Location()
	var dist *float64
	if vendor != nil && at != nil {
		v := distanceMeters(*at, *vendor)
		dist = &v
	}

	res := fulfillment{Type: requested, Distance: dist}
	if requested != d.FulfillmentDineIn {
		return res
	}
	switch {
	case vendor == nil:
		res.Reason = d.ReasonVendorLocationUnavailable
	case at == nil:
		res.Reason = d.ReasonLocationNotProvided
	case *dist > m.Radius():
		res.Reason = d.ReasonOutsideGeofence
	default:
		return res
	}
	res.Type = d.FulfillmentTakeaway
	return res
}
