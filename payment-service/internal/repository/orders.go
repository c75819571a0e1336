package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/lib/pq"
)

type orderRow struct {
	ID              string    `db:"id"`
	PaymentIntentID string    `db:"payment_intent_id"`
	MerchantID      string    `db:"merchant_id"`
	UserID          string    `db:"user_id"`
	Items           []byte    `db:"items"`
	TotalMinorUnits int64     `db:"total_minor_units"`
	Currency        string    `db:"currency"`
	Status          string    `db:"status"`
	FulfillmentType string    `db:"fulfillment_type"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

const orderColumns = `id, payment_intent_id, merchant_id, user_id, items, total_minor_units, currency,
	status, fulfillment_type, created_at, updated_at`

func (row *orderRow) toDomain() (*d.Order, error) {
	order := &d.Order{
		ID:              row.ID,
		PaymentIntentID: row.PaymentIntentID,
		MerchantID:      row.MerchantID,
		UserID:          row.UserID,
		TotalMinorUnits: row.TotalMinorUnits,
		Currency:        row.Currency,
		Status:          d.OrderStatus(row.Status),
		FulfillmentType: d.FulfillmentType(row.FulfillmentType),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Items, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	return order, nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id string) (*d.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *Repository) GetOrderByIntentID(ctx context.Context, intentID string) (*d.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1`, intentID)
}

func (r *Repository) getOrder(ctx context.Context, query string, args ...interface{}) (*d.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, d.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return row.toDomain()
}

func (r *Repository) ListActiveOrders(ctx context.Context, merchantID string) ([]*d.Order, error) {
	statuses := make([]string, 0, len(d.ActiveOrderStatuses))
	for _, s := range d.ActiveOrderStatuses {
		statuses = append(statuses, string(s))
	}

	var rows []orderRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+orderColumns+` FROM orders
		 WHERE merchant_id = $1 AND status = ANY($2)
		 ORDER BY created_at ASC`, merchantID, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("query active orders: %w", err)
	}

	orders := make([]*d.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateOrderStatus changes the status only if it is still from.
func (r *Repository) UpdateOrderStatus(ctx context.Context, id string, from, to d.OrderStatus) (*d.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row,
		`UPDATE orders SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+orderColumns, id, from, to)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetOrderByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: order status changed concurrently", d.ErrStaleState)
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return row.toDomain()
}
