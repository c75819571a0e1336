package terminal

import (
	"context"
	"sync"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/vendor-terminal/internal/tracker"
	"go.uber.org/zap"
)

type OrdersAPI interface {
	ListActive(ctx context.Context) ([]d.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status d.OrderStatus) (*d.Order, error)
}

// Terminal keeps a merchant's live order board: vendor actions show at once and
// are written in the background, while snapshots refresh the board.
type Terminal struct {
	api          OrdersAPI
	tracker      *tracker.Tracker
	interval     time.Duration
	writeTimeout time.Duration
	nudge        chan struct{}
	writes       sync.WaitGroup
	log          *zap.Logger
}

func New(api OrdersAPI, t *tracker.Tracker, interval, writeTimeout time.Duration, log *zap.Logger) *Terminal {
	return &Terminal{
		api:          api,
		tracker:      t,
		interval:     interval,
		writeTimeout: writeTimeout,
		nudge:        make(chan struct{}, 1),
		log:          log,
	}
}

// Act applies status to orderID locally and pushes it to the server without
// waiting. Only local rejections are returned; write failures roll back and
// surface as tracker notifications.
func (t *Terminal) Act(ctx context.Context, orderID string, status d.OrderStatus) error {
	token, err := t.tracker.Apply(orderID, tracker.Patch{Status: status})
	if err != nil {
		return err
	}

	t.writes.Add(1)
	go func() {
		defer t.writes.Done()
		// the write outlives the caller's screen
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.writeTimeout)
		defer cancel()

		order, err := t.api.UpdateStatus(wctx, orderID, status)
		if err != nil {
			t.log.Warn("status write failed, rolling back",
				zap.String("order_id", orderID),
				zap.String("status", status.String()),
				zap.Error(err))
		}
		t.tracker.Resolve(orderID, token, err, order)
	}()
	return nil
}

// Refresh merges a fresh snapshot of active orders.
func (t *Terminal) Refresh(ctx context.Context) error {
	orders, err := t.api.ListActive(ctx)
	if err != nil {
		return err
	}
	t.tracker.Merge(orders)
	return nil
}

// Nudge asks Run to refresh now instead of at the next tick.
func (t *Terminal) Nudge() {
	select {
	case t.nudge <- struct{}{}:
	default:
	}
}

// Run refreshes immediately, then on every tick or nudge until ctx is done.
func (t *Terminal) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.refresh(ctx)
		case <-t.nudge:
			t.refresh(ctx)
		}
	}
}

func (t *Terminal) refresh(ctx context.Context) {
	if err := t.Refresh(ctx); err != nil && ctx.Err() == nil {
		t.log.Warn("order refresh failed", zap.Error(err))
	}
}

func (t *Terminal) Orders() []d.Order {
	return t.tracker.Orders()
}

func (t *Terminal) State(orderID string) tracker.State {
	return t.tracker.State(orderID)
}

// Wait blocks until every in-flight status write has resolved.
func (t *Terminal) Wait() {
	t.writes.Wait()
}
