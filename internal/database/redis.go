package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/identity/internal/config"
)

// redisClientName identifies this service in CLIENT LIST on shared servers.
const redisClientName = "identity-frontend"

// NewRedis connects to the Redis instance that holds the session revocation
// list and the rate limiter counters. The server must answer a ping before
// the client is returned.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = redisClientName
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", opts.Addr, err)
	}

	slog.Debug("redis ready", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	return client, nil
}
