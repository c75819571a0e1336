package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	g "github.com/fjod/canteen/payment-service/internal/gateway"
	r "github.com/fjod/canteen/payment-service/internal/repository"
	"github.com/fjod/canteen/pkg/idempotency"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(dur time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(dur)
	c.mu.Unlock()
}

// MemoryRepository implements r.RepoInterface with the same compare-and-swap
// semantics as the postgres repository.
type MemoryRepository struct {
	mu        sync.Mutex
	clock     *testClock
	intents   map[string]*d.PaymentIntent
	orders    map[string]*d.Order
	menu      map[string]d.MenuItem
	merchants map[string]d.Merchant
	events    []*r.OutboxEvent

	GetMenuErr    error
	FinalizeErr   error
	CreateCalls   int
	FinalizeCalls int
}

func NewMemoryRepository(clock *testClock) *MemoryRepository {
	return &MemoryRepository{
		clock:     clock,
		intents:   make(map[string]*d.PaymentIntent),
		orders:    make(map[string]*d.Order),
		menu:      make(map[string]d.MenuItem),
		merchants: make(map[string]d.Merchant),
	}
}

func (m *MemoryRepository) Close() error {
	return nil
}

func (m *MemoryRepository) RunMigrations(*r.Credentials) error {
	return nil
}

func copyIntent(i *d.PaymentIntent) *d.PaymentIntent {
	c := *i
	return &c
}

func (m *MemoryRepository) openBy(match func(*d.PaymentIntent) bool) *d.PaymentIntent {
	for _, i := range m.intents {
		if i.State.IsOpen() && match(i) {
			return i
		}
	}
	return nil
}

func (m *MemoryRepository) CreateIntent(_ context.Context, intent *d.PaymentIntent) (*d.PaymentIntent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.openBy(func(i *d.PaymentIntent) bool {
		return i.IdempotencyKey == intent.IdempotencyKey ||
			(i.UserID == intent.UserID && i.RequestHash == intent.RequestHash)
	})
	if existing != nil {
		return copyIntent(existing), false, nil
	}

	stored := copyIntent(intent)
	stored.State = d.IntentStateCreated
	stored.CreatedAt = m.clock.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.intents[stored.ID] = stored
	m.CreateCalls++
	return copyIntent(stored), true, nil
}

func (m *MemoryRepository) GetIntent(_ context.Context, id string) (*d.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return nil, d.ErrIntentNotFound
	}
	return copyIntent(i), nil
}

func (m *MemoryRepository) GetOpenIntentByKey(_ context.Context, key string) (*d.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.openBy(func(i *d.PaymentIntent) bool { return i.IdempotencyKey == key }); i != nil {
		return copyIntent(i), nil
	}
	return nil, d.ErrIntentNotFound
}

func (m *MemoryRepository) GetOpenIntentByHash(_ context.Context, userID, hash string) (*d.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.openBy(func(i *d.PaymentIntent) bool { return i.UserID == userID && i.RequestHash == hash }); i != nil {
		return copyIntent(i), nil
	}
	return nil, d.ErrIntentNotFound
}

func (m *MemoryRepository) casMiss(i *d.PaymentIntent) error {
	if i.State.IsTerminal() {
		return fmt.Errorf("%w: %s", d.ErrAlreadyTerminal, i.State)
	}
	return fmt.Errorf("%w: intent is %s", d.ErrStaleState, i.State)
}

func (m *MemoryRepository) TransitionIntent(_ context.Context, id string, from, to d.IntentState) error {
	if !d.CanTransitionTo(from, to) {
		if from.IsTerminal() {
			return d.ErrAlreadyTerminal
		}
		return d.ErrStaleState
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return d.ErrIntentNotFound
	}
	if i.State != from {
		return m.casMiss(i)
	}
	i.State = to
	i.UpdatedAt = m.clock.Now()
	return nil
}

func (m *MemoryRepository) SetGatewayReference(_ context.Context, id, ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return "", d.ErrIntentNotFound
	}
	if i.GatewayReference == "" {
		i.GatewayReference = ref
		i.UpdatedAt = m.clock.Now()
	}
	return i.GatewayReference, nil
}

func (m *MemoryRepository) TouchIntent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return d.ErrIntentNotFound
	}
	if !i.State.IsOpen() {
		return m.casMiss(i)
	}
	i.UpdatedAt = m.clock.Now()
	return nil
}

func (m *MemoryRepository) RecordVerificationFailure(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return 0, d.ErrIntentNotFound
	}
	if i.State != d.IntentStateVerifying {
		return 0, m.casMiss(i)
	}
	i.VerificationAttempts++
	i.UpdatedAt = m.clock.Now()
	return i.VerificationAttempts, nil
}

func (m *MemoryRepository) FinalizeIntent(_ context.Context, intentID, paymentRef string, order *d.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FinalizeErr != nil {
		return m.FinalizeErr
	}
	i, ok := m.intents[intentID]
	if !ok {
		return d.ErrIntentNotFound
	}
	if i.State != d.IntentStateVerifying {
		return m.casMiss(i)
	}
	for _, o := range m.orders {
		if o.PaymentIntentID == intentID {
			return r.ErrDuplicateOrder
		}
	}

	i.State = d.IntentStateFinalized
	i.OrderID = order.ID
	i.PaymentRef = paymentRef
	i.UpdatedAt = m.clock.Now()
	stored := *order
	m.orders[order.ID] = &stored
	m.events = append(m.events, &r.OutboxEvent{ID: len(m.events) + 1, AggregateId: order.ID, EventType: r.EventOrderFinalized})
	m.FinalizeCalls++
	return nil
}

func (m *MemoryRepository) ExpireStaleIntents(_ context.Context, idleBefore time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, i := range m.intents {
		if i.State.IsOpen() && i.UpdatedAt.Before(idleBefore) {
			i.State = d.IntentStateExpired
			i.UpdatedAt = m.clock.Now()
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MemoryRepository) GetOrderByID(_ context.Context, id string) (*d.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, d.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

func (m *MemoryRepository) GetOrderByIntentID(_ context.Context, intentID string) (*d.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentIntentID == intentID {
			c := *o
			return &c, nil
		}
	}
	return nil, d.ErrOrderNotFound
}

func (m *MemoryRepository) ListActiveOrders(_ context.Context, merchantID string) ([]*d.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := make([]*d.Order, 0)
	for _, o := range m.orders {
		if o.MerchantID == merchantID && o.Status.IsActive() {
			c := *o
			orders = append(orders, &c)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

func (m *MemoryRepository) UpdateOrderStatus(_ context.Context, id string, from, to d.OrderStatus) (*d.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, d.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, d.ErrStaleState
	}
	o.Status = to
	o.UpdatedAt = m.clock.Now()
	c := *o
	return &c, nil
}

func (m *MemoryRepository) GetMerchant(_ context.Context, id string) (*d.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mer, ok := m.merchants[id]
	if !ok {
		return nil, d.ErrMerchantNotFound
	}
	return &mer, nil
}

func (m *MemoryRepository) UpsertMerchant(_ context.Context, mer d.Merchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merchants[mer.ID] = mer
	return nil
}

func (m *MemoryRepository) GetMenuItems(_ context.Context, merchantID string, ids []string) ([]d.MenuItem, error) {
	if m.GetMenuErr != nil {
		return nil, m.GetMenuErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []d.MenuItem
	for _, id := range ids {
		if it, ok := m.menu[id]; ok && it.MerchantID == merchantID {
			items = append(items, it)
		}
	}
	return items, nil
}

func (m *MemoryRepository) UpsertMenuItem(_ context.Context, item d.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menu[item.ID] = item
	return nil
}

func (m *MemoryRepository) GetUnprocessedEvents(_ context.Context, limit int) ([]*r.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

func (m *MemoryRepository) MarkEventAsProcessed(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.events {
		if e.ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryRepository) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// MockGateway implements g.OrderCreator and counts gateway orders.
type MockGateway struct {
	mu    sync.Mutex
	Calls int
	Err   error
}

func (m *MockGateway) CreateOrder(_ context.Context, req g.OrderRequest) (*g.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return &g.Order{
		ID:               fmt.Sprintf("order_%d", m.Calls),
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         req.Currency,
		Receipt:          req.Receipt,
		Status:           "created",
	}, nil
}

func (m *MockGateway) KeyID() string {
	return "rzp_test_key"
}

func (m *MockGateway) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// FailingCache implements idempotency.Cache and always errors.
type FailingCache struct{}

func (FailingCache) Reserve(context.Context, string, string) (idempotency.Reservation, error) {
	return idempotency.Reservation{}, fmt.Errorf("cache down")
}

func (FailingCache) Release(context.Context, string, string) error {
	return fmt.Errorf("cache down")
}
