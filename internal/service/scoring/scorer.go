package scoring

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
	"github.com/yourusername/promptgame-api/pkg/monitoring"
)

// Scorer оценивает сходство промпта игрока с исходным промптом изображения
type Scorer struct {
	embedder Embedder
}

// NewScorer создает новый Scorer
func NewScorer(embedder Embedder) *Scorer {
	return &Scorer{embedder: embedder}
}

// Score возвращает балл 0..100 (две цифры после запятой).
// Если после нормализации одна из строк пуста, модель не вызывается и балл равен 0.
func (s *Scorer) Score(ctx context.Context, userPrompt, originalPrompt string) (float64, error) {
	start := time.Now()

	u, o := Normalize(userPrompt), Normalize(originalPrompt)
	if u == "" || o == "" {
		monitoring.ScorerDuration.WithLabelValues("empty").Observe(time.Since(start).Seconds())
		return 0, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{u, o})
	if err != nil {
		monitoring.ScorerDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return 0, fmt.Errorf("embed prompts: %w", err)
	}
	if len(vectors) != 2 {
		monitoring.ScorerDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return 0, fmt.Errorf("%w: embed prompts: expected 2 vectors, got %d", apperrors.ErrUnavailable, len(vectors))
	}
	// Разная размерность значит, что модель или кеш эмбеддингов настроены неверно
	if len(vectors[0]) == 0 || len(vectors[0]) != len(vectors[1]) {
		monitoring.ScorerDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return 0, fmt.Errorf("%w: embedding dimensions differ: %d vs %d",
			apperrors.ErrUnavailable, len(vectors[0]), len(vectors[1]))
	}

	monitoring.ScorerDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return ToScore(Cosine(vectors[0], vectors[1])), nil
}
