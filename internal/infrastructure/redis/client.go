package redis

import (
	"context"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/orderdesk/internal/config"
)

// Lease commands are single round trips; a slow Redis should surface as a
// failed lock attempt rather than a hung request.
const leaseCommandTimeout = time.Second

// NewClient connects to the Redis instance holding audit leases.
// Explicit password and db settings override the URL.
func NewClient(ctx context.Context, cfg config.RedisConfig, clientName string, logger *zap.Logger) (*goRedis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.ClientName = clientName
	opts.ReadTimeout = leaseCommandTimeout
	opts.WriteTimeout = leaseCommandTimeout

	client := goRedis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	logger.Info("redis ready", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client, nil
}
