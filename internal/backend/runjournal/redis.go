package runjournal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKey        = "imageset:runs"
	DefaultMaxEntries = 100
)

// RedisJournal keeps summaries as JSON entries in a capped redis list.
type RedisJournal struct {
	client     *redis.Client
	key        string
	maxEntries int64
}

// NewRedisJournal connects to addr and verifies the connection.
func NewRedisJournal(ctx context.Context, addr, key string, maxEntries int) (*RedisJournal, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return newRedisJournal(client, key, maxEntries), nil
}

func newRedisJournal(client *redis.Client, key string, maxEntries int) *RedisJournal {
	if key == "" {
		key = DefaultKey
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &RedisJournal{
		client:     client,
		key:        key,
		maxEntries: int64(maxEntries),
	}
}

func (j *RedisJournal) Record(ctx context.Context, summary RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}

	_, err = j.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, j.key, payload)
		pipe.LTrim(ctx, j.key, 0, j.maxEntries-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record run summary: %w", err)
	}
	return nil
}

func (j *RedisJournal) Recent(ctx context.Context, n int) ([]RunSummary, error) {
	if n <= 0 {
		return []RunSummary{}, nil
	}

	entries, err := j.client.LRange(ctx, j.key, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run summaries: %w", err)
	}

	summaries := make([]RunSummary, 0, len(entries))
	for i, entry := range entries {
		var s RunSummary
		if err := json.Unmarshal([]byte(entry), &s); err != nil {
			return nil, fmt.Errorf("failed to decode run summary %d: %w", i, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func (j *RedisJournal) Close() error {
	return j.client.Close()
}
