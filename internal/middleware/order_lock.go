package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrderLocker gives refund flows mutual exclusion per order number.
// Acquire returns false when another holder has the key.
type OrderLocker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisOrderLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (l *redisOrderLocker) Acquire(ctx context.Context, key string) (bool, error) {
	// TTL bounds how long a crashed holder can block the order.
	return l.client.SetNX(ctx, l.prefix+":"+key, "1", l.ttl).Result()
}

func (l *redisOrderLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+":"+key).Err()
}

type memoryOrderLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	ttl  time.Duration
}

func newMemoryOrderLocker(ttl time.Duration) *memoryOrderLocker {
	return &memoryOrderLocker{
		held: make(map[string]time.Time),
		ttl:  ttl,
	}
}

func (l *memoryOrderLocker) Acquire(_ context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if exp, ok := l.held[key]; ok && exp.After(now) {
		return false, nil
	}
	l.held[key] = now.Add(l.ttl)
	return true, nil
}

func (l *memoryOrderLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// NewOrderLocker builds a Redis-backed locker and falls back to in-memory
// when Redis is unreachable.
func NewOrderLocker(addr, pass string, db int, ttl time.Duration) (OrderLocker, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if addr == "" {
		return newMemoryOrderLocker(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return newMemoryOrderLocker(ttl), err
	}

	return &redisOrderLocker{
		client: client,
		prefix: "pay:lock",
		ttl:    ttl,
	}, nil
}
