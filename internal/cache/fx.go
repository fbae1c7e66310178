package cache

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/karat/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyPrefix = "karat:"

var Module = fx.Module("cache",
	fx.Provide(NewRedisClient),
	fx.Provide(NewStore),
)

// NewRedisClient returns nil when no redis address is configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	if !cfg.Redis.Enabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func NewStore(client *redis.Client, log *zap.Logger) Store {
	if client == nil {
		log.Info("cache backend selected", zap.String("backend", "memory"))
		return NewMemoryStore()
	}
	log.Info("cache backend selected", zap.String("backend", "redis"))
	return NewRedisStore(client, keyPrefix)
}
