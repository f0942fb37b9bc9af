package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectRedis opens a Redis client from a URL and verifies connectivity,
// retrying briefly so the service survives Redis coming up a moment later
// in a compose stack.
func ConnectRedis(ctx context.Context, redisURL string, logger *zap.Logger) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return client, nil
		}
		logger.Warn("redis not ready, retrying",
			zap.Int("attempt", attempt), zap.Error(lastErr))

		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("ping redis: %w", lastErr)
}
