package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hakim/reconaug/internal/config"
)

const redisStreamMaxLen = 10000

// streamClient is the subset of *redis.Client the sink uses
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisSink mirrors snapshots into a Redis stream so other processes can
// follow scan progress.
type RedisSink struct {
	client streamClient
	stream string
}

// NewRedisSink connects to cfg.Addr and verifies the connection.
func NewRedisSink(ctx context.Context, cfg config.RedisConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	stream := cfg.Stream
	if stream == "" {
		stream = "reconaug:jobs"
	}
	return &RedisSink{client: client, stream: stream}, nil
}

// Publish appends snap to the stream. The full snapshot travels as JSON
// beside a few flat fields for consumers that only need status.
func (s *RedisSink) Publish(ctx context.Context, snap Snapshot) error {
	values, err := streamValues(snap)
	if err != nil {
		return err
	}

	_, err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: redisStreamMaxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("XADD failed: %w", err)
	}
	return nil
}

func streamValues(snap Snapshot) (map[string]interface{}, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return map[string]interface{}{
		"job_id":   snap.ID,
		"kind":     string(snap.Kind),
		"target":   snap.Target,
		"status":   string(snap.Status),
		"progress": strconv.Itoa(snap.Progress),
		"complete": strconv.FormatBool(snap.Complete),
		"snapshot": string(payload),
	}, nil
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}
