package service

import (
	"context"
	"errors"
	"fmt"

	d "github.com/fjod/canteen/payment-service/domain"
	"go.uber.org/zap"
)

// CreateIntent prices the cart and opens an intent for it, or returns the open
// intent already recorded for the same idempotency key or cart signature.
func (s *PaymentServiceImpl) CreateIntent(
	ctx context.Context,
	userID, idempotencyKey string,
	request *d.CreateIntentRequest) (*d.IntentResponse, error) {

	ctx, span := tracer.Start(ctx, "PaymentService.CreateIntent")
	defer span.End()

	req, err := normalizeRequest(request)
	if err != nil {
		return nil, err
	}
	merchant, err := s.repo.GetMerchant(ctx, req.MerchantID)
	if err != nil {
		if errors.Is(err, d.ErrMerchantNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load merchant: %w", err)
	}
	if !merchant.Open || merchant.Suspended {
		return nil, fmt.Errorf("%w: %s", d.ErrMerchantClosed, merchant.ID)
	}
	// the hash keeps the requested type; resolution depends on where the customer is
	hash := requestHash(req)

	if idempotencyKey == "" {
		res, cacheErr := s.cache.Reserve(ctx, userID, hash)
		if cacheErr != nil {
			// the partial unique index on (user_id, request_hash) still dedupes
			s.log.Warn("idempotency cache unavailable", zap.Error(cacheErr))
		} else {
			idempotencyKey = res.Key
		}
	}

	existing, err := s.findOpenIntent(ctx, userID, idempotencyKey, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if s.idle(existing) {
			// never resurrect; a fresh intent replaces it below
			s.expire(ctx, existing)
		} else {
			s.log.Info("duplicate intent request, reusing open intent",
				zap.String("intent_id", existing.ID),
				zap.String("idempotency_key", existing.IdempotencyKey),
				zap.String("state", existing.State.String()))
			resp, err := s.beginCheckout(ctx, existing)
			if err != nil {
				return nil, err
			}
			resp.Reused = true
			return resp, nil
		}
	}

	if idempotencyKey == "" {
		idempotencyKey = s.opts.NewID()
	}

	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ItemID)
	}
	menu, err := s.repo.GetMenuItems(ctx, req.MerchantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}

	resolved := resolveFulfillment(merchant, req.FulfillmentType, req.Location)
	priced := *req
	priced.FulfillmentType = resolved.Type
	snapshot, err := priceCart(&priced, menu)
	if err != nil {
		return nil, err
	}
	snapshot.CapturedAt = s.opts.Now().UTC()
	snapshot.DistanceMeters = resolved.Distance
	if resolved.Reason != "" {
		snapshot.RequestedFulfillment = req.FulfillmentType
		snapshot.AutoConversionReason = resolved.Reason
		s.log.Info("fulfillment downgraded",
			zap.String("merchant_id", req.MerchantID),
			zap.String("requested", string(req.FulfillmentType)),
			zap.String("resolved", string(resolved.Type)),
			zap.String("reason", resolved.Reason))
	}

	intent := &d.PaymentIntent{
		ID:               s.opts.NewID(),
		UserID:           userID,
		MerchantID:       req.MerchantID,
		IdempotencyKey:   idempotencyKey,
		RequestHash:      hash,
		State:            d.IntentStateCreated,
		AmountMinorUnits: snapshot.TotalMinorUnits,
		Currency:         snapshot.Currency,
		Cart:             snapshot,
	}
	stored, created, err := s.repo.CreateIntent(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("failed to create intent: %w", err)
	}
	if created {
		s.log.Info("payment intent created",
			zap.String("intent_id", stored.ID),
			zap.String("merchant_id", stored.MerchantID),
			zap.Int64("amount_minor_units", stored.AmountMinorUnits))
	}

	resp, err := s.beginCheckout(ctx, stored)
	if err != nil {
		return nil, err
	}
	resp.Reused = !created
	return resp, nil
}

// findOpenIntent looks up an open intent by key, then by cart signature.
// A key already bound to a different cart is a client error.
func (s *PaymentServiceImpl) findOpenIntent(ctx context.Context, userID, key, hash string) (*d.PaymentIntent, error) {
	if key != "" {
		intent, err := s.repo.GetOpenIntentByKey(ctx, key)
		if err == nil {
			if intent.UserID != userID || intent.RequestHash != hash {
				return nil, ErrKeyReused
			}
			return intent, nil
		}
		if !errors.Is(err, d.ErrIntentNotFound) {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
	}

	intent, err := s.repo.GetOpenIntentByHash(ctx, userID, hash)
	if errors.Is(err, d.ErrIntentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	return intent, nil
}

func (s *PaymentServiceImpl) GetIntent(ctx context.Context, userID, intentID string) (*d.IntentResponse, error) {
	intent, err := s.ownedIntent(ctx, userID, intentID)
	if err != nil {
		return nil, err
	}
	return s.response(intent), nil
}

func (s *PaymentServiceImpl) ownedIntent(ctx context.Context, userID, intentID string) (*d.PaymentIntent, error) {
	if intentID == "" {
		return nil, fmt.Errorf("%w: intentId is required", d.ErrValidation)
	}
	intent, err := s.repo.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && intent.UserID != userID {
		return nil, d.ErrIntentNotFound
	}
	return intent, nil
}
