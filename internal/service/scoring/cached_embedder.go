package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/promptgame-api/internal/domain/repository"
	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
	"github.com/yourusername/promptgame-api/pkg/logger"
)

// CachedEmbedder хранит эмбеддинги в кеше, ключ - sha256(model|text).
// Ошибки кеша не прерывают подсчёт, запрос просто уходит в модель.
type CachedEmbedder struct {
	inner  Embedder
	cache  repository.CacheRepository
	ttl    time.Duration
	prefix string
}

// NewCachedEmbedder оборачивает embedder кешем
func NewCachedEmbedder(inner Embedder, cache repository.CacheRepository, ttl time.Duration, prefix string) *CachedEmbedder {
	if prefix == "" {
		prefix = "emb"
	}
	return &CachedEmbedder{inner: inner, cache: cache, ttl: ttl, prefix: prefix}
}

// Model возвращает имя модели обёрнутого embedder
func (c *CachedEmbedder) Model() string {
	return c.inner.Model()
}

// CacheKey формирует ключ кеша для текста
func (c *CachedEmbedder) CacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.inner.Model() + "|" + text))
	return c.prefix + ":" + hex.EncodeToString(sum[:])
}

// Embed возвращает эмбеддинги, запрашивая у модели только отсутствующие в кеше
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		var vec []float64
		err := c.cache.GetJSON(c.CacheKey(text), &vec)
		if err == nil && len(vec) > 0 {
			out[i] = vec
			continue
		}
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			logger.Log.Warn("[Scorer] Ошибка чтения кеша эмбеддингов", zap.Error(err))
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, vec := range vectors {
		out[missIdx[j]] = vec
		if err := c.cache.SetJSON(c.CacheKey(missTexts[j]), vec, c.ttl); err != nil {
			logger.Log.Warn("[Scorer] Не удалось сохранить эмбеддинг в кеш", zap.Error(err))
		}
	}
	return out, nil
}
