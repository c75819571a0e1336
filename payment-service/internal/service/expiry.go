package service

import (
	"context"
	"errors"

	d "github.com/fjod/canteen/payment-service/domain"
	"go.uber.org/zap"
)

// ExpireStale marks every open intent idle longer than the intent TTL as EXPIRED.
func (s *PaymentServiceImpl) ExpireStale(ctx context.Context) ([]string, error) {
	ids, err := s.repo.ExpireStaleIntents(ctx, s.opts.Now().Add(-s.opts.IntentTTL))
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		s.log.Info("expired idle payment intents", zap.Int("count", len(ids)))
	}
	return ids, nil
}

// expire moves a single idle intent to EXPIRED; losing the race to another writer is fine.
func (s *PaymentServiceImpl) expire(ctx context.Context, intent *d.PaymentIntent) {
	err := s.repo.TransitionIntent(ctx, intent.ID, intent.State, d.IntentStateExpired)
	if err != nil && !errors.Is(err, d.ErrStaleState) && !errors.Is(err, d.ErrAlreadyTerminal) {
		s.log.Warn("failed to expire idle intent", zap.String("intent_id", intent.ID), zap.Error(err))
		return
	}
	if err == nil {
		intent.State = d.IntentStateExpired
		s.log.Info("intent expired on access", zap.String("intent_id", intent.ID))
	}
}
