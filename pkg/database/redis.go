package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yourusername/promptgame-api/internal/config"
	"github.com/yourusername/promptgame-api/pkg/logger"
)

// Режимы подключения к Redis
const (
	RedisModeSingle   = "single"
	RedisModeSentinel = "sentinel"
	RedisModeCluster  = "cluster"
)

// RedisOptions собирает опции клиента из конфигурации и проверяет режим.
// Пустой режим означает single.
func RedisOptions(cfg config.RedisConfig) (string, *redis.UniversalOptions, error) {
	addrs := cfg.Addrs
	if len(addrs) == 0 && cfg.Addr != "" {
		addrs = []string{cfg.Addr}
	}
	if len(addrs) == 0 {
		return "", nil, fmt.Errorf("redis configuration error: addrs or addr must be provided")
	}

	mode := cfg.Mode
	if mode == "" {
		mode = RedisModeSingle
	}

	opts := &redis.UniversalOptions{
		Addrs:           addrs,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoff) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoff) * time.Millisecond,
	}

	switch mode {
	case RedisModeSingle, RedisModeCluster:
	case RedisModeSentinel:
		if cfg.MasterName == "" {
			return "", nil, fmt.Errorf("redis sentinel mode requires master_name")
		}
		opts.MasterName = cfg.MasterName
	default:
		return "", nil, fmt.Errorf("unsupported redis mode: %s", mode)
	}
	return mode, opts, nil
}

// NewRedisClient создаёт клиента в заданном режиме и проверяет соединение.
// Время проверки ограничивается ctx.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	mode, opts, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	switch mode {
	case RedisModeSentinel:
		client = redis.NewFailoverClient(opts.Failover())
	case RedisModeCluster:
		client = redis.NewClusterClient(opts.Cluster())
	default:
		// single использует первый адрес
		client = redis.NewClient(opts.Simple())
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (mode: %s, addrs: %v): %w", mode, opts.Addrs, err)
	}

	logger.Log.Info("[Redis] Connected", zap.String("mode", mode), zap.Strings("addrs", opts.Addrs))
	return client, nil
}
