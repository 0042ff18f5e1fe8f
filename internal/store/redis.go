package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const (
	activityTTL    = 24 * time.Hour
	activityMaxLen = 500
)

// ActivityItem is one entry in the observer activity feed.
type ActivityItem struct {
	ID          string `json:"id"` // ULID, time-ordered
	Type        string `json:"type"`
	Description string `json:"description"`
	AgentName   string `json:"agent_name,omitempty"`
	Timestamp   int64  `json:"ts"` // Unix ms
}

// RedisStore handles Redis operations: rate limiting counters and the
// best-effort observer activity feed. All callers must tolerate a nil
// RedisStore; the platform runs without Redis, just without these features.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for middleware that needs pipelines.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// rateLimitKey returns the key for a caller's counter on an endpoint family.
func rateLimitKey(bucket, caller string) string {
	return fmt.Sprintf("ratelimit:%s:%s", bucket, caller)
}

// IncrRateLimit bumps a fixed-window counter and returns the new count.
// The window TTL is set when the counter is created.
func (s *RedisStore) IncrRateLimit(ctx context.Context, bucket, caller string, window time.Duration) (int64, error) {
	key := rateLimitKey(bucket, caller)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// activityKey is the sorted set holding recent platform activity.
const activityKey = "activity:feed"

// PushActivity appends an item to the activity feed. Best-effort: failures
// are returned but callers are expected to drop them.
func (s *RedisStore) PushActivity(ctx context.Context, item ActivityItem) error {
	if item.ID == "" {
		item.ID = ulid.Make().String()
	}
	if item.Timestamp == 0 {
		item.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, activityKey, redis.Z{
		Score:  float64(item.Timestamp),
		Member: string(data),
	})
	// Keep the feed bounded; old entries also age out via TTL.
	pipe.ZRemRangeByRank(ctx, activityKey, 0, int64(-activityMaxLen-1))
	pipe.Expire(ctx, activityKey, activityTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentActivity returns the newest feed entries, most recent first.
func (s *RedisStore) RecentActivity(ctx context.Context, limit int) ([]ActivityItem, error) {
	if limit <= 0 || limit > activityMaxLen {
		limit = 50
	}

	results, err := s.client.ZRevRange(ctx, activityKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(results))
	for _, data := range results {
		var item ActivityItem
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
