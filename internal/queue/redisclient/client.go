package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// Ping checks redis connectivity

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

const (
	dedupTTL     = 24 * time.Hour
	heartbeatTTL = 30 * time.Second
)

// MarkNotificationSent records that a notification for this job has gone out.
// Returns false when another worker already sent it (SETNX semantics), which
// keeps retried jobs from emailing the same person twice.
func (c *Client) MarkNotificationSent(ctx context.Context, jobType, jobID string) (bool, error) {
	key := fmt.Sprintf("notified:%s:%s", jobType, jobID)

	ok, err := c.redisdb.SetNX(ctx, key, "1", dedupTTL).Result()

	if err != nil {
		return false, fmt.Errorf("notification dedup: %w", err)
	}

	return ok, nil
}

// Heartbeat publishes worker liveness with a short TTL so stale workers age
// out on their own.
func (c *Client) Heartbeat(ctx context.Context, workerID string) error {
	key := "worker:heartbeat:" + workerID

	return c.redisdb.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), heartbeatTTL).Err()
}
