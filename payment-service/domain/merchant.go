package domain

const DefaultGeofenceRadiusMeters = 50

// Why a dine-in request was served as takeaway.
const (
	ReasonVendorLocationUnavailable = "VENDOR_LOCATION_UNAVAILABLE"
	ReasonLocationNotProvided       = "LOCATION_NOT_PROVIDED"
	ReasonOutsideGeofence           = "OUTSIDE_GEOFENCE"
)

// Merchant is a canteen counter. Lat and Lng are both set or both nil.
type Merchant struct {
	ID                   string   `db:"id" json:"id"`
	Name                 string   `db:"name" json:"name"`
	Lat                  *float64 `db:"lat" json:"lat,omitempty"`
	Lng                  *float64 `db:"lng" json:"lng,omitempty"`
	GeofenceRadiusMeters int      `db:"geofence_radius_m" json:"geofenceRadiusMeters"`
	Open                 bool     `db:"is_open" json:"open"`
	Suspended            bool     `db:"suspended" json:"suspended"`
}

func (m *Merchant) Location() *Location {
	if m.Lat == nil || m.Lng == nil {
		return nil
	}
	return &Location{Lat: *m.Lat, Lng: *m.Lng}
}

func (m *Merchant) Radius() float64 {
	if m.GeofenceRadiusMeters <= 0 {
		return DefaultGeofenceRadiusMeters
	}
	return float64(m.GeofenceRadiusMeters)
}
