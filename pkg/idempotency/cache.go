package idempotency

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds how long an identical cart maps to the same key.
const DefaultTTL = 15 * time.Minute

var ErrEmptyHash = errors.New("request hash is empty")

type Reservation struct {
	Key       string
	Reused    bool
	CreatedAt time.Time
}

// Cache maps a request hash to a previously issued idempotency key.
// It is best effort: losing entries only means the intent store dedupes instead.
type Cache interface {
	// Reserve returns the unexpired key for hash, or mints and stores a new one.
	Reserve(ctx context.Context, scope, hash string) (Reservation, error)
	// Release forgets the entry so an identical cart can be ordered again.
	Release(ctx context.Context, scope, hash string) error
}
