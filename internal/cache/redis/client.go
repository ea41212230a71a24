package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpbot/backend/internal/storage/models"
	"github.com/helpbot/backend/pkg/logger"
)

// Client caches popular-record lists so greeting/help/no-match paths do
// not hit SQLite on every request. Every method degrades to a miss or a
// logged warning on failure; the engine treats the cache as optional.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cache initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func popularKey(limit int) string {
	return fmt.Sprintf("popular:%d", limit)
}

func (c *Client) GetPopular(ctx context.Context, limit int) ([]models.KnowledgeRecord, bool) {
	data, err := c.client.Get(ctx, popularKey(limit)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Warn("Popular cache read failed", zap.Error(err))
		return nil, false
	}

	var records []models.KnowledgeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn("Popular cache entry corrupt", zap.Error(err))
		return nil, false
	}

	logger.Debug("Popular cache hit", zap.Int("limit", limit))
	return records, true
}

func (c *Client) SetPopular(ctx context.Context, limit int, records []models.KnowledgeRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		logger.Warn("Failed to marshal popular records", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, popularKey(limit), data, c.ttl).Err(); err != nil {
		logger.Warn("Popular cache write failed", zap.Error(err))
	}
}

// Invalidate drops all cached popular lists, e.g. after a feedback write
// changes the ranking inputs.
func (c *Client) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, "popular:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Cache invalidation scan failed", zap.Error(err))
	}
}
