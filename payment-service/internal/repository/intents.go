package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
)

type intentRow struct {
	ID                   string         `db:"id"`
	UserID               string         `db:"user_id"`
	MerchantID           string         `db:"merchant_id"`
	IdempotencyKey       string         `db:"idempotency_key"`
	RequestHash          string         `db:"request_hash"`
	State                string         `db:"state"`
	AmountMinorUnits     int64          `db:"amount_minor_units"`
	Currency             string         `db:"currency"`
	Cart                 []byte         `db:"cart"`
	GatewayReference     sql.NullString `db:"gateway_reference"`
	PaymentRef           sql.NullString `db:"payment_ref"`
	OrderID              sql.NullString `db:"order_id"`
	VerificationAttempts int            `db:"verification_attempts"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

const intentColumns = `id, user_id, merchant_id, idempotency_key, request_hash, state, amount_minor_units,
	currency, cart, gateway_reference, payment_ref, order_id, verification_attempts, created_at, updated_at`

func (row *intentRow) toDomain() (*d.PaymentIntent, error) {
	intent := &d.PaymentIntent{
		ID:                   row.ID,
		UserID:               row.UserID,
		MerchantID:           row.MerchantID,
		IdempotencyKey:       row.IdempotencyKey,
		RequestHash:          row.RequestHash,
		State:                d.IntentState(row.State),
		AmountMinorUnits:     row.AmountMinorUnits,
		Currency:             row.Currency,
		GatewayReference:     row.GatewayReference.String,
		PaymentRef:           row.PaymentRef.String,
		OrderID:              row.OrderID.String,
		VerificationAttempts: row.VerificationAttempts,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Cart, &intent.Cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
	}
	return intent, nil
}

// CreateIntent inserts a new CREATED intent. If an open intent already holds the
// idempotency key or the user's request hash, that intent is returned with created=false.
func (r *Repository) CreateIntent(ctx context.Context, intent *d.PaymentIntent) (*d.PaymentIntent, bool, error) {
	cartJSON, err := json.Marshal(intent.Cart)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	query := `INSERT INTO payment_intents (id, user_id, merchant_id, idempotency_key, request_hash, state,
	              amount_minor_units, currency, cart, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	          ON CONFLICT DO NOTHING
	          RETURNING ` + intentColumns

	var row intentRow
	err = r.db.GetContext(ctx, &row, query,
		intent.ID,
		intent.UserID,
		intent.MerchantID,
		intent.IdempotencyKey,
		intent.RequestHash,
		d.IntentStateCreated,
		intent.AmountMinorUnits,
		intent.Currency,
		cartJSON)
	if errors.Is(err, sql.ErrNoRows) {
		existing, findErr := r.GetOpenIntentByKey(ctx, intent.IdempotencyKey)
		if errors.Is(findErr, d.ErrIntentNotFound) {
			existing, findErr = r.GetOpenIntentByHash(ctx, intent.UserID, intent.RequestHash)
		}
		if findErr != nil {
			return nil, false, fmt.Errorf("lookup conflicting intent: %w", findErr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert intent: %w", err)
	}

	created, err := row.toDomain()
	return created, true, err
}

func (r *Repository) GetIntent(ctx context.Context, id string) (*d.PaymentIntent, error) {
	return r.getIntent(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE id = $1`, id)
}

func (r *Repository) GetOpenIntentByKey(ctx context.Context, key string) (*d.PaymentIntent, error) {
	return r.getIntent(ctx,
		`SELECT `+intentColumns+` FROM payment_intents WHERE idempotency_key = $1 AND state = ANY($2)`,
		key, openStates())
}

func (r *Repository) GetOpenIntentByHash(ctx context.Context, userID, hash string) (*d.PaymentIntent, error) {
	return r.getIntent(ctx,
		`SELECT `+intentColumns+` FROM payment_intents WHERE user_id = $1 AND request_hash = $2 AND state = ANY($3)`,
		userID, hash, openStates())
}

func (r *Repository) getIntent(ctx context.Context, query string, args ...interface{}) (*d.PaymentIntent, error) {
	var row intentRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, d.ErrIntentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query intent: %w", err)
	}
	return row.toDomain()
}

// TransitionIntent moves an intent from one state to another only if it is still in from.
func (r *Repository) TransitionIntent(ctx context.Context, id string, from, to d.IntentState) error {
	if !d.CanTransitionTo(from, to) {
		if from.IsTerminal() {
			return d.ErrAlreadyTerminal
		}
		return fmt.Errorf("%w: %s -> %s", d.ErrStaleState, from, to)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_intents SET state = $3, updated_at = NOW() WHERE id = $1 AND state = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("update intent state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update intent state: %w", err)
	}
	if n == 1 {
		return nil
	}
	return r.casMiss(ctx, id)
}

// casMiss explains why a conditional update touched no rows.
func (r *Repository) casMiss(ctx context.Context, id string) error {
	current, err := r.GetIntent(ctx, id)
	if err != nil {
		return err
	}
	if current.State.IsTerminal() {
		return fmt.Errorf("%w: %s", d.ErrAlreadyTerminal, current.State)
	}
	return fmt.Errorf("%w: intent is %s", d.ErrStaleState, current.State)
}

// SetGatewayReference stores ref unless a reference is already set, and returns the stored one.
func (r *Repository) SetGatewayReference(ctx context.Context, id, ref string) (string, error) {
	var stored string
	err := r.db.GetContext(ctx, &stored,
		`UPDATE payment_intents SET gateway_reference = $2, updated_at = NOW()
		 WHERE id = $1 AND gateway_reference IS NULL
		 RETURNING gateway_reference`, id, ref)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("set gateway reference: %w", err)
	}

	current, err := r.GetIntent(ctx, id)
	if err != nil {
		return "", err
	}
	return current.GatewayReference, nil
}

func (r *Repository) TouchIntent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_intents SET updated_at = NOW() WHERE id = $1 AND state = ANY($2)`, id, openStates())
	if err != nil {
		return fmt.Errorf("touch intent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.casMiss(ctx, id)
	}
	return nil
}

// RecordVerificationFailure increments the attempt counter of a VERIFYING intent.
func (r *Repository) RecordVerificationFailure(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.GetContext(ctx, &attempts,
		`UPDATE payment_intents SET verification_attempts = verification_attempts + 1, updated_at = NOW()
		 WHERE id = $1 AND state = $2
		 RETURNING verification_attempts`, id, d.IntentStateVerifying)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, r.casMiss(ctx, id)
	}
	if err != nil {
		return 0, fmt.Errorf("record verification failure: %w", err)
	}
	return attempts, nil
}

// FinalizeIntent marks the intent FINALIZED, inserts its order and queues the
// order.finalized event in one transaction.
func (r *Repository) FinalizeIntent(ctx context.Context, intentID, paymentRef string, order *d.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// the row lock taken here serializes concurrent finalize and expiry attempts
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_intents SET state = $2, order_id = $3, payment_ref = $4, updated_at = NOW()
		 WHERE id = $1 AND state = $5`,
		intentID, d.IntentStateFinalized, order.ID, paymentRef, d.IntentStateVerifying)
	if err != nil {
		return fmt.Errorf("finalize intent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return r.casMiss(ctx, intentID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, payment_intent_id, merchant_id, user_id, items, total_minor_units, currency,
		     status, fulfillment_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		order.ID, intentID, order.MerchantID, order.UserID, itemsJSON, order.TotalMinorUnits,
		order.Currency, order.Status, order.FulfillmentType)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		order.ID, EventOrderFinalized, payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finalize tx: %w", err)
	}
	return nil
}

// ExpireStaleIntents moves every open intent idle since idleBefore to EXPIRED.
func (r *Repository) ExpireStaleIntents(ctx context.Context, idleBefore time.Time) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`UPDATE payment_intents SET state = $1, updated_at = NOW()
		 WHERE state = ANY($2) AND updated_at < $3
		 RETURNING id`, d.IntentStateExpired, openStates(), idleBefore)
	if err != nil {
		return nil, fmt.Errorf("expire stale intents: %w", err)
	}
	return ids, nil
}
