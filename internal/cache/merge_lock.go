package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// MergeLock serializes merge runs per topic. Two concurrent merges for the
// same topic would both delete-then-insert; the second acquirer is rejected
// instead. The TTL guards against a crashed holder.
type MergeLock struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewMergeLock(client *redisv9.Client, ttl time.Duration) *MergeLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MergeLock{client: client, ttl: ttl}
}

// Acquire takes the per-topic lock; ok is false when another merge holds it.
func (l *MergeLock) Acquire(ctx context.Context, topicID uint) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(topicID), "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire merge lock failed: %w", err)
	}
	return ok, nil
}

// Release frees the lock. Safe to call even if the TTL already expired.
func (l *MergeLock) Release(ctx context.Context, topicID uint) error {
	if err := l.client.Del(ctx, l.key(topicID)).Err(); err != nil {
		return fmt.Errorf("release merge lock failed: %w", err)
	}
	return nil
}

func (l *MergeLock) key(topicID uint) string {
	return fmt.Sprintf("merge:lock:%d", topicID)
}
