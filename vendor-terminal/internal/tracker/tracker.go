package tracker

import (
	"sort"
	"sync"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
)

type State int

const (
	Clean State = iota
	// Pending: a local change is shown and its server write is in flight.
	Pending
	// Reconciling: a fresher snapshot arrived while Pending; the patch is overlaid on it.
	Reconciling
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Reconciling:
		return "reconciling"
	}
	return "clean"
}

// Patch is a partial order update applied optimistically.
type Patch struct {
	Status d.OrderStatus
}

func (p Patch) apply(o d.Order) d.Order {
	if p.Status != "" {
		o.Status = p.Status
	}
	return o
}

// Notification reports a local change that was rolled back.
type Notification struct {
	OrderID   string
	Attempted d.OrderStatus
	Restored  d.OrderStatus
	Err       error
	At        time.Time
}

// Token identifies one optimistic change; late results for an older token are ignored.
type Token uint64

type mutation struct {
	token Token
	patch Patch
	// base is the server's view without the patch: the pre-mutation order,
	// replaced by each fresher snapshot that arrives while the write is in flight.
	base  d.Order
	state State
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithNotifier is called, outside the lock, for every rollback.
func WithNotifier(fn func(Notification)) Option {
	return func(t *Tracker) { t.notify = fn }
}

// Tracker holds a terminal's local view of its orders and the optimistic
// changes applied on top of it. One Tracker per terminal; it is safe for concurrent use.
type Tracker struct {
	mu            sync.Mutex
	view          map[string]d.Order
	pending       map[string]*mutation
	notifications []Notification
	next          Token

	now    func() time.Time
	notify func(Notification)
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		view:    make(map[string]d.Order),
		pending: make(map[string]*mutation),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply shows patch on orderID immediately and records it until Resolve is called.
func (t *Tracker) Apply(orderID string, patch Patch) (Token, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.view[orderID]
	if !ok {
		return 0, ErrUnknownOrder
	}
	if _, busy := t.pending[orderID]; busy {
		return 0, ErrMutationPending
	}
	if patch == (Patch{}) || patch.Status == current.Status {
		return 0, ErrEmptyPatch
	}

	t.next++
	t.pending[orderID] = &mutation{
		token: t.next,
		patch: patch,
		base:  cloneOrder(current),
		state: Pending,
	}
	t.view[orderID] = patch.apply(cloneOrder(current))
	return t.next, nil
}

// Resolve settles the write for token. On success the patch is dropped and
// confirmed (when the server returned it) becomes the view; on failure the
// full server-side order is restored and a notification is recorded.
func (t *Tracker) Resolve(orderID string, token Token, writeErr error, confirmed *d.Order) {
	t.mu.Lock()
	m, ok := t.pending[orderID]
	if !ok || m.token != token {
		t.mu.Unlock()
		return
	}
	delete(t.pending, orderID)

	if writeErr == nil {
		if confirmed != nil {
			t.view[orderID] = cloneOrder(*confirmed)
		}
		t.mu.Unlock()
		return
	}

	t.view[orderID] = m.base
	n := Notification{
		OrderID:   orderID,
		Attempted: m.patch.Status,
		Restored:  m.base.Status,
		Err:       writeErr,
		At:        t.now(),
	}
	t.notifications = append(t.notifications, n)
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify(n)
	}
}

// Merge replaces the view with a server snapshot of the active orders. Orders
// with a change in flight keep showing it on top of their fresh server state.
func (t *Tracker) Merge(snapshot []d.Order) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := make(map[string]d.Order, len(snapshot))
	for _, o := range snapshot {
		o = cloneOrder(o)
		if m, ok := t.pending[o.ID]; ok {
			m.base = o
			m.state = Reconciling
			fresh[o.ID] = m.patch.apply(cloneOrder(o))
			continue
		}
		fresh[o.ID] = o
	}
	for id, m := range t.pending {
		if _, ok := fresh[id]; !ok {
			// not in the snapshot, e.g. the pending change completed it
			fresh[id] = t.view[id]
			m.state = Reconciling
		}
	}
	t.view = fresh
}

// Orders returns the visible view, oldest first.
func (t *Tracker) Orders() []d.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]d.Order, 0, len(t.view))
	for _, o := range t.view {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *Tracker) Order(orderID string) (d.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.view[orderID]
	return cloneOrder(o), ok
}

func (t *Tracker) State(orderID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.pending[orderID]; ok {
		return m.state
	}
	return Clean
}

// DrainNotifications returns and clears the recorded rollbacks.
func (t *Tracker) DrainNotifications() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.notifications
	t.notifications = nil
	return out
}

func cloneOrder(o d.Order) d.Order {
	if o.Items != nil {
		o.Items = append([]d.OrderItem(nil), o.Items...)
	}
	return o
}
