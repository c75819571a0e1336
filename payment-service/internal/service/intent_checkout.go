package service

import (
	"context"
	"errors"
	"fmt"

	d "github.com/fjod/canteen/payment-service/domain"
	g "github.com/fjod/canteen/payment-service/internal/gateway"
	"go.uber.org/zap"
)

// BeginCheckout prepares an open intent for the checkout surface: it makes sure the
// gateway reference exists and the intent is AWAITING_PAYMENT. Resuming an intent
// returns the reference set the first time.
func (s *PaymentServiceImpl) BeginCheckout(ctx context.Context, userID, intentID string) (*d.IntentResponse, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.BeginCheckout")
	defer span.End()

	intent, err := s.ownedIntent(ctx, userID, intentID)
	if err != nil {
		return nil, err
	}
	return s.beginCheckout(ctx, intent)
}

func (s *PaymentServiceImpl) beginCheckout(ctx context.Context, intent *d.PaymentIntent) (*d.IntentResponse, error) {
	switch {
	case intent.State == d.IntentStateExpired:
		return nil, d.ErrExpiredIntent
	case intent.State.IsTerminal():
		return nil, fmt.Errorf("%w: intent is %s", d.ErrAlreadyTerminal, intent.State)
	case s.idle(intent):
		s.expire(ctx, intent)
		return nil, d.ErrExpiredIntent
	}

	if intent.GatewayReference == "" {
		gwCtx, cancel := context.WithTimeout(ctx, s.gateway.timeout)
		defer cancel()
		order, err := s.gateway.client.CreateOrder(gwCtx, g.OrderRequest{
			AmountMinorUnits: intent.AmountMinorUnits,
			Currency:         intent.Currency,
			Receipt:          intent.ID,
			Notes: map[string]string{
				"merchant_id": intent.MerchantID,
				"user_id":     intent.UserID,
			},
		})
		if err != nil {
			return nil, err
		}

		ref, err := s.repo.SetGatewayReference(ctx, intent.ID, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to store gateway reference: %w", err)
		}
		if ref != order.ID {
			s.log.Info("gateway reference already set by a concurrent checkout",
				zap.String("intent_id", intent.ID),
				zap.String("gateway_reference", ref),
				zap.String("discarded_reference", order.ID))
		}
		intent.GatewayReference = ref
	}

	if intent.State == d.IntentStateCreated {
		err := s.repo.TransitionIntent(ctx, intent.ID, d.IntentStateCreated, d.IntentStateAwaitingPayment)
		switch {
		case err == nil:
			intent.State = d.IntentStateAwaitingPayment
		case errors.Is(err, d.ErrStaleState) || errors.Is(err, d.ErrAlreadyTerminal):
			// someone else moved it; report what is stored now
			current, getErr := s.repo.GetIntent(ctx, intent.ID)
			if getErr != nil {
				return nil, getErr
			}
			if current.State == d.IntentStateExpired {
				return nil, d.ErrExpiredIntent
			}
			if current.State.IsTerminal() {
				return nil, fmt.Errorf("%w: intent is %s", d.ErrAlreadyTerminal, current.State)
			}
			intent = current
		default:
			return nil, err
		}
	} else if err := s.repo.TouchIntent(ctx, intent.ID); err != nil {
		if errors.Is(err, d.ErrAlreadyTerminal) {
			return nil, d.ErrExpiredIntent
		}
		return nil, err
	}

	return s.response(intent), nil
}
