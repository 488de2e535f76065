package alerts

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenKeyPrefix = "alerts:seen:"

// RedisSeenStore keeps seen news links in Redis with a TTL, so a restarted
// process does not re-alert on the feed items it already handled.
type RedisSeenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSeenStore connects to redisURL and verifies the connection.
func NewRedisSeenStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisSeenStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisSeenStore{client: client, ttl: ttl}, nil
}

// SeenAndRecord uses SET NX so check-and-record is a single round trip.
func (r *RedisSeenStore) SeenAndRecord(ctx context.Context, link string) (bool, error) {
	added, err := r.client.SetNX(ctx, seenKey(link), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record seen link: %w", err)
	}
	return !added, nil
}

// Size counts seen keys with SCAN; intended for status endpoints only.
func (r *RedisSeenStore) Size(ctx context.Context) (int64, error) {
	var n int64
	iter := r.client.Scan(ctx, 0, seenKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan seen keys: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection.
func (r *RedisSeenStore) Close() error {
	return r.client.Close()
}

func seenKey(link string) string {
	hash := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%s%x", seenKeyPrefix, hash[:16])
}
