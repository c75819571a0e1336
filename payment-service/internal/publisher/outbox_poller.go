package publisher

import (
	"context"
	"encoding/json"
	"time"

	r "github.com/fjod/canteen/payment-service/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	OrderEventsTopic = "order-events"
	batchSize        = 100
)

// Expirer sweeps idle payment intents.
type Expirer interface {
	ExpireStale(ctx context.Context) ([]string, error)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	sweepTick time.Duration
	repo      r.OutboxStore
	expirer   Expirer
	writer    messageWriter
	log       *zap.Logger
}

func NewOutboxPoller(repo r.OutboxStore, expirer Expirer, log *zap.Logger, eventTick, sweepTick time.Duration, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  OrderEventsTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: eventTick,
		sweepTick: sweepTick,
		repo:      repo,
		expirer:   expirer,
		writer:    w,
		log:       log,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	sweepTicker := time.NewTicker(p.sweepTick)
	defer eventTicker.Stop()
	defer sweepTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-sweepTicker.C:
			p.sweepIdleIntents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.log.Warn("failed to publish outbox event", zap.Int("event_id", event.ID), zap.Error(err))
			continue
		}
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Warn("failed to mark outbox event processed", zap.Int("event_id", event.ID), zap.Error(err))
		}
	}
}

// sweepIdleIntents is best-effort; intents are also expired on access.
func (p *OutboxPoller) sweepIdleIntents(ctx context.Context) {
	if p.expirer == nil {
		return
	}
	sweepCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if _, err := p.expirer.ExpireStale(sweepCtx); err != nil {
		p.log.Warn("intent expiry sweep failed", zap.Error(err))
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	merchantID := merchantOf(event)
	msg := kafka.Message{
		Key:   []byte(merchantID), // per-merchant ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "merchant_id", Value: []byte(merchantID)},
			{Key: "order_id", Value: []byte(event.AggregateId)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, msg)
}

func merchantOf(event *r.OutboxEvent) string {
	var body struct {
		MerchantID string `json:"merchantId"`
	}
	if err := json.Unmarshal(event.Payload, &body); err != nil || body.MerchantID == "" {
		return event.AggregateId
	}
	return body.MerchantID
}
