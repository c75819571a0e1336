package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/lib/pq"
)

func (r *Repository) GetMenuItems(ctx context.Context, merchantID string, ids []string) ([]d.MenuItem, error) {
	var items []d.MenuItem
	err := r.db.SelectContext(ctx, &items,
		`SELECT id, merchant_id, name, price_minor_units, tax_rate, tax_inclusive, available
		 FROM menu_items WHERE merchant_id = $1 AND id = ANY($2)`, merchantID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	return items, nil
}

func (r *Repository) UpsertMenuItem(ctx context.Context, item d.MenuItem) error {
	if item.TaxRate == "" {
		item.TaxRate = "0"
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO menu_items (id, merchant_id, name, price_minor_units, tax_rate, tax_inclusive, available)
		 VALUES (:id, :merchant_id, :name, :price_minor_units, :tax_rate, :tax_inclusive, :available)
		 ON CONFLICT (id) DO UPDATE SET
		     merchant_id = EXCLUDED.merchant_id,
		     name = EXCLUDED.name,
		     price_minor_units = EXCLUDED.price_minor_units,
		     tax_rate = EXCLUDED.tax_rate,
		     tax_inclusive = EXCLUDED.tax_inclusive,
		     available = EXCLUDED.available,
		     updated_at = NOW()`, item)
	if err != nil {
		return fmt.Errorf("upsert menu item: %w", err)
	}
	return nil
}

func (r *Repository) GetMerchant(ctx context.Context, id string) (*d.Merchant, error) {
	var m d.Merchant
	err := r.db.GetContext(ctx, &m,
		`SELECT id, name, lat, lng, geofence_radius_m, is_open, suspended
		 FROM merchants WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, d.ErrMerchantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query merchant: %w", err)
	}
	return &m, nil
}

func (r *Repository) UpsertMerchant(ctx context.Context, m d.Merchant) error {
	if m.GeofenceRadiusMeters <= 0 {
		m.GeofenceRadiusMeters = d.DefaultGeofenceRadiusMeters
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO merchants (id, name, lat, lng, geofence_radius_m, is_open, suspended)
		 VALUES (:id, :name, :lat, :lng, :geofence_radius_m, :is_open, :suspended)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     lat = EXCLUDED.lat,
		     lng = EXCLUDED.lng,
		     geofence_radius_m = EXCLUDED.geofence_radius_m,
		     is_open = EXCLUDED.is_open,
		     suspended = EXCLUDED.suspended,
		     updated_at = NOW()`, m)
	if err != nil {
		return fmt.Errorf("upsert merchant: %w", err)
	}
	return nil
}
