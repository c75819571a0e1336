package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// CleanupInterval is how often expired entries are dropped.
const CleanupInterval = time.Minute

type entry struct {
	key       string
	createdAt time.Time
}

// MemoryCache is a process-local Cache. Create one per session and Close it when the session ends.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	newKey  func() string
	sfg     singleflight.Group

	stopCleanup chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

type MemoryOption func(*MemoryCache)

func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

func WithKeyGenerator(gen func() string) MemoryOption {
	return func(c *MemoryCache) { c.newKey = gen }
}

func NewMemoryCache(ttl time.Duration, opts ...MemoryOption) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &MemoryCache{
		entries:     make(map[string]entry),
		ttl:         ttl,
		now:         time.Now,
		newKey:      func() string { return uuid.New().String() },
		stopCleanup: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

func (c *MemoryCache) Reserve(_ context.Context, scope, hash string) (Reservation, error) {
	if hash == "" {
		return Reservation{}, ErrEmptyHash
	}
	id := cacheKey(scope, hash)

	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && !c.expired(e) {
		return Reservation{Key: e.key, Reused: true, CreatedAt: e.createdAt}, nil
	}

	// collapse concurrent double-taps into one mint; only the caller whose
	// function ran can have minted the key
	leader := false
	v, _, _ := c.sfg.Do(id, func() (interface{}, error) {
		leader = true
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries[id]; ok && !c.expired(e) {
			return Reservation{Key: e.key, Reused: true, CreatedAt: e.createdAt}, nil
		}
		e := entry{key: c.newKey(), createdAt: c.now()}
		c.entries[id] = e
		return Reservation{Key: e.key, CreatedAt: e.createdAt}, nil
	})
	res := v.(Reservation)
	if !leader {
		res.Reused = true
	}
	return res, nil
}

func (c *MemoryCache) Release(_ context.Context, scope, hash string) error {
	c.mu.Lock()
	delete(c.entries, cacheKey(scope, hash))
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
	c.wg.Wait()
}

func (c *MemoryCache) expired(e entry) bool {
	return !c.now().Before(e.createdAt.Add(c.ttl))
}

func (c *MemoryCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.dropExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *MemoryCache) dropExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, id)
		}
	}
}
