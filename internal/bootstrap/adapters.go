package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sprintdeck/sprintdeck-go/config"
	"github.com/sprintdeck/sprintdeck-go/internal/adapters/tokenstore"
	"github.com/sprintdeck/sprintdeck-go/internal/observability/statsd"
	"github.com/sprintdeck/sprintdeck-go/internal/ports"
)

// NewTokenStore constructs the configured token store backend.
//
//nolint:ireturn // the backend is selected at runtime from config.
func NewTokenStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (ports.TokenStore, error) {
	switch cfg.TokenStore.Backend {
	case config.TokenStoreFile:
		path := cfg.TokenStore.Path
		if path == "" {
			var err error
			path, err = tokenstore.DefaultPath()
			if err != nil {
				return nil, fmt.Errorf("resolve token path: %w", err)
			}
		}
		return tokenstore.NewFileStore(path)

	case config.TokenStoreRedis:
		client, err := connectRedis(ctx, cfg.TokenStore.Redis, logger)
		if err != nil {
			return nil, err
		}
		return tokenstore.NewRedisStoreWithKey(client, cfg.TokenStore.Key), nil

	case config.TokenStoreMemory:
		return tokenstore.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown token store backend: %q", cfg.TokenStore.Backend)
	}
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close redis after ping failure", "error", cerr)
		}
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}

	logger.InfoContext(ctx, "connected to redis token store", "addr", cfg.Addr)
	return client, nil
}

// NewMetricsSink constructs the StatsD sink, or nil when metrics are disabled.
func NewMetricsSink(cfg *config.AppConfig, logger *slog.Logger) (*statsd.Client, error) {
	if !cfg.Observability.Metrics.IsEnabled() {
		return nil, nil
	}
	return statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  cfg.Observability.Metrics.StatsdPrefix,
		Logger:  logger,
	})
}
