package feed

import (
	"context"
	"encoding/json"
	"errors"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	OrderEventsTopic   = "order-events"
	eventOrderFinalize = "order.finalized"
)

// Nudger is told when the board is out of date.
type Nudger interface {
	Nudge()
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer watches order events for one merchant so new orders show up
// before the next scheduled refresh.
type Consumer struct {
	merchantID string
	nudger     Nudger
	reader     messageReader
	log        *zap.Logger
}

// NewConsumer joins a group of its own, starting at the newest offset:
// every terminal sees every event, and history is covered by the first refresh.
func NewConsumer(merchantID, terminalID string, nudger Nudger, log *zap.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       OrderEventsTopic,
		GroupID:     "vendor-terminal-" + merchantID + "-" + terminalID,
		StartOffset: kafka.LastOffset,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{merchantID: merchantID, nudger: nudger, reader: reader, log: log}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("error closing kafka reader", zap.Error(err))
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		c.log.Warn("error reading order event", zap.Error(err))
		return
	}

	if header(m, "merchant_id") != c.merchantID || header(m, "event_type") != eventOrderFinalize {
		return
	}

	var order d.Order
	if err := json.Unmarshal(m.Value, &order); err != nil {
		c.log.Warn("unparseable order event", zap.String("order_id", header(m, "order_id")), zap.Error(err))
	} else {
		c.log.Info("new order",
			zap.String("order_id", order.ID),
			zap.Int64("total", order.TotalMinorUnits))
	}
	c.nudger.Nudge()
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
