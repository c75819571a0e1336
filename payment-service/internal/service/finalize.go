package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	d "github.com/fjod/canteen/payment-service/domain"
	r "github.com/fjod/canteen/payment-service/internal/repository"
	"github.com/fjod/canteen/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxFinalizeRounds bounds re-reads after lost transition races.
const maxFinalizeRounds = 4

// Finalize turns a paid intent into an order exactly once. Repeated calls for a
// finalized intent return the existing order without writing anything.
func (s *PaymentServiceImpl) Finalize(ctx context.Context, userID string, req *d.FinalizeRequest) (*d.FinalizeResponse, error) {
	if req == nil || strings.TrimSpace(req.IntentID) == "" || req.PaymentRef == "" ||
		req.GatewayOrderRef == "" || req.Signature == "" {
		return nil, ErrIncompleteCallback
	}
	ctx, span := tracer.Start(ctx, "PaymentService.Finalize")
	defer span.End()
	span.SetAttributes(attribute.String("intent.id", req.IntentID))

	intent, err := s.ownedIntent(ctx, userID, req.IntentID)
	if err != nil {
		return nil, err
	}

	for round := 0; round < maxFinalizeRounds; round++ {
		switch intent.State {
		case d.IntentStateFinalized:
			return s.existingOrder(ctx, intent, req)
		case d.IntentStateFailed:
			return nil, fmt.Errorf("intent %s: %w (%w)", intent.ID, d.ErrPaymentFailed, d.ErrAlreadyTerminal)
		case d.IntentStateExpired:
			return nil, d.ErrExpiredIntent
		case d.IntentStateCreated:
			return nil, fmt.Errorf("%w: checkout was never started for intent %s", d.ErrStaleState, intent.ID)
		case d.IntentStateAwaitingPayment:
			err = s.repo.TransitionIntent(ctx, intent.ID, d.IntentStateAwaitingPayment, d.IntentStateVerifying)
			if err == nil {
				intent.State = d.IntentStateVerifying
				continue
			}
		case d.IntentStateVerifying:
			var resp *d.FinalizeResponse
			resp, err = s.verifyAndCommit(ctx, intent, req)
			if err == nil || errors.Is(err, d.ErrPaymentFailed) || !retryableRace(err) {
				return resp, err
			}
		default:
			return nil, fmt.Errorf("intent %s has unknown state %q", intent.ID, intent.State)
		}

		if !retryableRace(err) {
			return nil, err
		}
		// lost a race: re-read and act on what is stored now
		intent, err = s.repo.GetIntent(ctx, intent.ID)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: intent %s kept changing", d.ErrStaleState, req.IntentID)
}

func retryableRace(err error) bool {
	return errors.Is(err, d.ErrStaleState) || errors.Is(err, d.ErrAlreadyTerminal) || errors.Is(err, r.ErrDuplicateOrder)
}

func (s *PaymentServiceImpl) verifyAndCommit(ctx context.Context, intent *d.PaymentIntent, req *d.FinalizeRequest) (*d.FinalizeResponse, error) {
	if req.GatewayOrderRef != intent.GatewayReference ||
		!s.verifier.Verify(req.GatewayOrderRef, req.PaymentRef, req.Signature) {
		return nil, s.rejectSignature(ctx, intent)
	}

	order := d.OrderFromIntent(s.opts.NewID(), intent, s.opts.Now().UTC())
	if err := s.repo.FinalizeIntent(ctx, intent.ID, req.PaymentRef, order); err != nil {
		return nil, err
	}

	if err := s.cache.Release(ctx, intent.UserID, intent.RequestHash); err != nil {
		s.log.Warn("failed to release idempotency entry", zap.String("intent_id", intent.ID), zap.Error(err))
	}
	logger.FromContext(ctx, s.log).Info("payment intent finalized",
		zap.String("intent_id", intent.ID),
		zap.String("order_id", order.ID),
		zap.String("payment_ref", req.PaymentRef),
		zap.Int64("total_minor_units", order.TotalMinorUnits))

	return &d.FinalizeResponse{OrderID: order.ID, Status: order.Status}, nil
}

// rejectSignature counts a failed verification. The intent stays VERIFYING until
// the attempt budget is spent, then it fails for good.
func (s *PaymentServiceImpl) rejectSignature(ctx context.Context, intent *d.PaymentIntent) error {
	attempts, err := s.repo.RecordVerificationFailure(ctx, intent.ID)
	if err != nil {
		return err
	}
	logger.FromContext(ctx, s.log).Warn("payment signature verification failed",
		zap.String("intent_id", intent.ID),
		zap.Int("attempt", attempts),
		zap.Int("max_attempts", s.opts.MaxVerificationAttempts))

	if attempts < s.opts.MaxVerificationAttempts {
		return fmt.Errorf("%w: attempt %d of %d", d.ErrVerificationFailed, attempts, s.opts.MaxVerificationAttempts)
	}

	err = s.repo.TransitionIntent(ctx, intent.ID, d.IntentStateVerifying, d.IntentStateFailed)
	if err != nil {
		return err
	}
	s.log.Warn("payment intent failed after repeated verification failures", zap.String("intent_id", intent.ID))
	return fmt.Errorf("intent %s: %w after %d attempts (%w)", intent.ID, d.ErrPaymentFailed, attempts, d.ErrAlreadyTerminal)
}

func (s *PaymentServiceImpl) existingOrder(ctx context.Context, intent *d.PaymentIntent, req *d.FinalizeRequest) (*d.FinalizeResponse, error) {
	order, err := s.repo.GetOrderByIntentID(ctx, intent.ID)
	if err != nil {
		return nil, fmt.Errorf("finalized intent %s without order: %w", intent.ID, err)
	}
	if intent.PaymentRef != "" && req.PaymentRef != intent.PaymentRef {
		s.log.Warn("finalize replayed with a different payment",
			zap.String("intent_id", intent.ID),
			zap.String("payment_ref", intent.PaymentRef),
			zap.String("replayed_payment_ref", req.PaymentRef))
	}
	return &d.FinalizeResponse{OrderID: order.ID, Status: order.Status, Replayed: true}, nil
}
