package terminal

import (
	"context"
	"sync"

	d "github.com/fjod/canteen/payment-service/domain"
)

type MockAPI struct {
	mu        sync.Mutex
	Snapshot  []d.Order
	ListErr   error
	UpdateErr error
	Lists     int
	Updates   []d.OrderStatus

	// Release, when set, holds UpdateStatus until it is closed.
	Release chan struct{}
	Started chan struct{}
}

func (m *MockAPI) ListActive(context.Context) ([]d.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]d.Order(nil), m.Snapshot...), nil
}

func (m *MockAPI) UpdateStatus(ctx context.Context, orderID string, status d.OrderStatus) (*d.Order, error) {
	if m.Started != nil {
		m.Started <- struct{}{}
	}
	if m.Release != nil {
		select {
		case <-m.Release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, status)
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	return &d.Order{ID: orderID, Status: status}, nil
}

func (m *MockAPI) lists() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Lists
}

func (m *MockAPI) setSnapshot(orders ...d.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snapshot = orders
}
