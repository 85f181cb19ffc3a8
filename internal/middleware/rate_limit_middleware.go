package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yourusername/promptgame-api/internal/config"
	"github.com/yourusername/promptgame-api/pkg/logger"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests - максимальное количество запросов за Window
	MaxRequests int
	// Window - временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix - префикс для ключей в Redis
	KeyPrefix string
}

// StartRateLimitConfig - лимит на старт игры
func StartRateLimitConfig(cfg config.RateLimitConfig) RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: cfg.StartPerMin,
		Window:      window(cfg),
		KeyPrefix:   "rl:start",
	}
}

// SubmitRateLimitConfig - лимит на отправку этапов (каждая отправка вызывает модель эмбеддингов)
func SubmitRateLimitConfig(cfg config.RateLimitConfig) RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: cfg.SubmitPerMin,
		Window:      window(cfg),
		KeyPrefix:   "rl:submit",
	}
}

func window(cfg config.RateLimitConfig) time.Duration {
	if cfg.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(cfg.WindowSeconds) * time.Second
}

// WindowCounter считает запросы в фиксированном окне
type WindowCounter interface {
	// Hit увеличивает счётчик ключа и возвращает его значение и остаток окна
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisWindowCounter - счётчик окна на Redis INCR + EXPIRE.
// Ключ без TTL получает окно при каждом обращении, поэтому счётчик не может остаться навсегда.
type RedisWindowCounter struct {
	redisClient redis.UniversalClient
}

// NewRedisWindowCounter создает счётчик на основе Redis
func NewRedisWindowCounter(redisClient redis.UniversalClient) *RedisWindowCounter {
	return &RedisWindowCounter{redisClient: redisClient}
}

func (r *RedisWindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := r.redisClient.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	count, ttl := incr.Val(), ttlCmd.Val()
	// -1: ключ без TTL. Это первый запрос окна или прошлый EXPIRE не выполнился.
	if ttl < 0 {
		if err := r.redisClient.Expire(ctx, key, window).Err(); err != nil {
			logger.Log.Warn("[RateLimiter] Failed to set TTL", zap.String("key", key), zap.Error(err))
		}
		ttl = window
	}
	return count, ttl, nil
}

// RateLimiter создаёт middleware для rate limiting
type RateLimiter struct {
	counter WindowCounter
	enabled bool
}

// NewRateLimiter создает новый RateLimiter. При enabled=false middleware пропускает все запросы.
func NewRateLimiter(counter WindowCounter, enabled bool) *RateLimiter {
	return &RateLimiter{counter: counter, enabled: enabled}
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// Ключ формируется из IP + endpoint path.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.enabled || cfg.MaxRequests <= 0 {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		path := c.FullPath() // шаблон маршрута, например "/api/session/:id/submit_stage"
		if path == "" {
			path = c.Request.URL.Path
		}
		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, clientIP, path)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, ttl, err := rl.counter.Hit(ctx, key, cfg.Window)
		if err != nil {
			// При ошибке Redis пропускаем запрос (fail-open), но логируем
			logger.Log.Warn("[RateLimiter] Redis error, allowing request", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		retryAfter := int(ttl.Seconds())
		if retryAfter <= 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > cfg.MaxRequests {
			logger.Log.Info("[RateLimiter] Rate limit exceeded",
				zap.String("ip", clientIP), zap.String("path", path),
				zap.Int64("count", count), zap.Int("limit", cfg.MaxRequests))

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
