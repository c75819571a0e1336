package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/canteen/checkout-client/internal/adapter"
	"github.com/fjod/canteen/checkout-client/internal/api"
	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/pkg/idempotency"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomePaid                Outcome = "PAID"
	OutcomeCancelled           Outcome = "CANCELLED"
	OutcomePaymentFailed       Outcome = "PAYMENT_FAILED"
	OutcomeVerificationPending Outcome = "VERIFICATION_PENDING"
	OutcomeTimedOut            Outcome = "TIMED_OUT"
)

// Receipt tells the UI what happened and which retry applies:
// Cancelled and TimedOut resume the same intent, VerificationPending polls status.
type Receipt struct {
	Outcome          Outcome `json:"outcome"`
	IntentID         string  `json:"intentId"`
	OrderID          string  `json:"orderId,omitempty"`
	AmountMinorUnits int64   `json:"amountMinorUnits,omitempty"`
	Reason           string  `json:"reason,omitempty"`
}

type PaymentAPI interface {
	CreateIntent(ctx context.Context, idempotencyKey string, req *d.CreateIntentRequest) (*d.IntentResponse, error)
	GetIntent(ctx context.Context, intentID string) (*d.IntentResponse, error)
	Finalize(ctx context.Context, req *d.FinalizeRequest) (*d.FinalizeResponse, error)
}

type Collector interface {
	CollectPayment(ctx context.Context, intentID string) (adapter.Result, error)
}

type Option func(*Session)

func WithVerifyAttempts(n int) Option {
	return func(s *Session) { s.verifyAttempts = n }
}

func WithBackoff(b time.Duration) Option {
	return func(s *Session) { s.backoff = b }
}

// Session is one customer's ordering context. It owns the idempotency cache, so
// nothing is shared between customers in the same process.
type Session struct {
	api            PaymentAPI
	collector      Collector
	cache          *idempotency.MemoryCache
	userID         string
	verifyAttempts int
	backoff        time.Duration
	log            *zap.Logger
}

func NewSession(paymentAPI PaymentAPI, collector Collector, userID string, log *zap.Logger, opts ...Option) *Session {
	s := &Session{
		api:            paymentAPI,
		collector:      collector,
		cache:          idempotency.NewMemoryCache(idempotency.DefaultTTL),
		userID:         userID,
		verifyAttempts: 3,
		backoff:        500 * time.Millisecond,
		log:            log.With(zap.String("user_id", userID)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Close() {
	s.cache.Close()
}

// PlaceOrder creates (or reuses) the intent for cart and drives it through checkout.
func (s *Session) PlaceOrder(ctx context.Context, cart *d.CreateIntentRequest) (Receipt, error) {
	hash := idempotency.RequestHash(hashRequest(cart))
	reservation, err := s.cache.Reserve(ctx, s.userID, hash)
	if err != nil {
		return Receipt{}, fmt.Errorf("reserve idempotency key: %w", err)
	}

	intent, err := s.api.CreateIntent(ctx, reservation.Key, cart)
	if err != nil {
		return Receipt{}, err
	}
	s.log.Info("payment intent ready",
		zap.String("intent_id", intent.IntentID),
		zap.Int64("amount", intent.AmountMinorUnits),
		zap.Bool("reused", intent.Reused),
		zap.String("fulfillment", string(intent.FulfillmentType)))
	if intent.AutoConversionReason != "" {
		s.log.Warn("order will be served as takeaway",
			zap.String("intent_id", intent.IntentID),
			zap.String("reason", intent.AutoConversionReason))
	}

	receipt, err := s.checkout(ctx, intent.IntentID)
	receipt.AmountMinorUnits = intent.AmountMinorUnits
	if receipt.Outcome == OutcomePaid || errors.Is(err, d.ErrExpiredIntent) {
		_ = s.cache.Release(ctx, s.userID, hash)
	}
	return receipt, err
}

// Resume re-presents checkout for an existing intent without re-pricing it.
func (s *Session) Resume(ctx context.Context, intentID string) (Receipt, error) {
	intent, err := s.api.GetIntent(ctx, intentID)
	if err != nil {
		return Receipt{IntentID: intentID}, err
	}
	if intent.State == d.IntentStateFinalized {
		return Receipt{Outcome: OutcomePaid, IntentID: intentID, OrderID: intent.OrderID, AmountMinorUnits: intent.AmountMinorUnits}, nil
	}
	receipt, err := s.checkout(ctx, intentID)
	receipt.AmountMinorUnits = intent.AmountMinorUnits
	return receipt, err
}

func (s *Session) checkout(ctx context.Context, intentID string) (Receipt, error) {
	result, err := s.collector.CollectPayment(ctx, intentID)
	if err != nil {
		if errors.Is(err, d.ErrCheckoutTimeout) {
			return Receipt{Outcome: OutcomeTimedOut, IntentID: intentID, Reason: err.Error()}, nil
		}
		return Receipt{IntentID: intentID}, err
	}

	switch result.Outcome {
	case adapter.OutcomeCancelled:
		return Receipt{Outcome: OutcomeCancelled, IntentID: intentID, Reason: result.Reason}, nil
	case adapter.OutcomeFailed:
		return Receipt{Outcome: OutcomePaymentFailed, IntentID: intentID, Reason: result.Reason}, nil
	}
	return s.finalize(ctx, intentID, result)
}

// finalize retries verification failures and network errors on the same intent; the
// service makes repeated calls safe.
func (s *Session) finalize(ctx context.Context, intentID string, result adapter.Result) (Receipt, error) {
	req := &d.FinalizeRequest{
		IntentID:        intentID,
		PaymentRef:      result.PaymentRef,
		GatewayOrderRef: result.GatewayOrderRef,
		Signature:       result.Signature,
	}

	var lastErr error
	for attempt := 1; attempt <= s.verifyAttempts; attempt++ {
		resp, err := s.api.Finalize(ctx, req)
		switch {
		case err == nil:
			s.log.Info("order placed", zap.String("intent_id", intentID), zap.String("order_id", resp.OrderID))
			return Receipt{Outcome: OutcomePaid, IntentID: intentID, OrderID: resp.OrderID}, nil
		case errors.Is(err, d.ErrPaymentFailed):
			return Receipt{Outcome: OutcomePaymentFailed, IntentID: intentID, Reason: err.Error()}, nil
		case errors.Is(err, d.ErrVerificationFailed), errors.Is(err, api.ErrNetwork), errors.Is(err, d.ErrStaleState):
			lastErr = err
			s.log.Warn("finalize attempt failed",
				zap.String("intent_id", intentID),
				zap.Int("attempt", attempt),
				zap.Error(err))
		default:
			return Receipt{IntentID: intentID}, err
		}

		if attempt < s.verifyAttempts {
			if err := sleep(ctx, s.backoff*time.Duration(attempt)); err != nil {
				break
			}
		}
	}

	if errors.Is(lastErr, api.ErrNetwork) {
		if intent, err := s.api.GetIntent(ctx, intentID); err == nil && intent.State == d.IntentStateFinalized {
			return Receipt{Outcome: OutcomePaid, IntentID: intentID, OrderID: intent.OrderID}, nil
		}
	}
	reason := "payment verification pending"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return Receipt{Outcome: OutcomeVerificationPending, IntentID: intentID, Reason: reason}, nil
}

func sleep(ctx context.Context, wait time.Duration) error {
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func hashRequest(cart *d.CreateIntentRequest) idempotency.Request {
	req := idempotency.Request{
		MerchantID:      cart.MerchantID,
		FulfillmentType: string(cart.FulfillmentType),
		Items:           make([]idempotency.Item, 0, len(cart.Items)),
	}
	for _, it := range cart.Items {
		req.Items = append(req.Items, idempotency.Item{ID: it.ItemID, Quantity: it.Quantity})
	}
	if cart.Location != nil {
		req.Location = &idempotency.Location{Lat: cart.Location.Lat, Lng: cart.Location.Lng}
	}
	return req
}
