package scoring

import "context"

// Embedder вычисляет эмбеддинги предложений фиксированной моделью.
// Возвращаемый срез соответствует texts по индексам.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
}
