package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares reservations across service replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, now: time.Now}
}

func (r *RedisCache) Reserve(ctx context.Context, scope, hash string) (Reservation, error) {
	if hash == "" {
		return Reservation{}, ErrEmptyHash
	}
	key := cacheKey(scope, hash)
	now := r.now().UTC()
	minted := uuid.New().String()

	ok, err := r.client.SetNX(ctx, key, encodeEntry(minted, now), r.ttl).Result()
	if err != nil {
		return Reservation{}, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return Reservation{Key: minted, CreatedAt: now}, nil
	}

	data, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the minted key is as good as any
		if err := r.client.Set(ctx, key, encodeEntry(minted, now), r.ttl).Err(); err != nil {
			return Reservation{}, fmt.Errorf("redis set failed: %w", err)
		}
		return Reservation{Key: minted, CreatedAt: now}, nil
	}
	if err != nil {
		return Reservation{}, fmt.Errorf("redis get failed: %w", err)
	}

	existing, createdAt, err := decodeEntry(data)
	if err != nil {
		return Reservation{}, err
	}
	return Reservation{Key: existing, Reused: true, CreatedAt: createdAt}, nil
}

func (r *RedisCache) Release(ctx context.Context, scope, hash string) error {
	if err := r.client.Del(ctx, cacheKey(scope, hash)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(scope, hash string) string {
	return fmt.Sprintf("idem:%s:%s", scope, hash)
}

func encodeEntry(key string, createdAt time.Time) string {
	return key + "|" + strconv.FormatInt(createdAt.UnixMilli(), 10)
}

func decodeEntry(s string) (string, time.Time, error) {
	key, ms, ok := strings.Cut(s, "|")
	if !ok {
		return "", time.Time{}, fmt.Errorf("malformed idempotency entry %q", s)
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed idempotency entry %q: %w", s, err)
	}
	return key, time.UnixMilli(n).UTC(), nil
}
