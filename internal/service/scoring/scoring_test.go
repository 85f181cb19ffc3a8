package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/promptgame-api/internal/config"
	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
)

// ============================================================================
// Моки
// ============================================================================

// MockEmbedder реализует Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float64), args.Error(1)
}

func (m *MockEmbedder) Model() string {
	return "test-model"
}

// memoryCache - простая реализация repository.CacheRepository в памяти
type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}}
}

func (c *memoryCache) Set(key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value.(string)
	return nil
}

func (c *memoryCache) Get(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return v, nil
}

func (c *memoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Increment(string) (int64, error) { return 0, nil }

func (c *memoryCache) SetJSON(key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(key, string(b), ttl)
}

func (c *memoryCache) GetJSON(key string, dest interface{}) error {
	v, err := c.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(v), dest)
}

func (c *memoryCache) SetNX(key string, value interface{}, ttl time.Duration) (bool, error) {
	if _, err := c.Get(key); err == nil {
		return false, nil
	}
	return true, c.Set(key, value.(string), ttl)
}

// ============================================================================
// Нормализация и косинус
// ============================================================================

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"A Red  Fox!", "a red fox"},
		{"  cyber-punk, city @ night ", "cyber punk city night"},
		{"café", "caf"},
		{"!!!", ""},
		{"", ""},
		{"tab\tand\nnewline", "tab and newline"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestCosineAndToScore(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-1, 0}), 1e-6)
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{0, 0}), "нулевой вектор не даёт NaN")

	assert.Equal(t, 100.0, ToScore(1.2))
	assert.Equal(t, 0.0, ToScore(-0.3))
	assert.Equal(t, 73.46, ToScore(0.734567))
	assert.Equal(t, 0.0, ToScore(Cosine(nil, nil)))
}

// ============================================================================
// Scorer
// ============================================================================

func TestScorer_Score(t *testing.T) {
	emb := new(MockEmbedder)
	emb.On("Embed", mock.Anything, []string{"a red fox", "a red fox in snow"}).
		Return([][]float64{{1, 0}, {1, 0}}, nil).Once()

	score, err := NewScorer(emb).Score(context.Background(), "A red FOX!", "a red fox, in snow")

	require.NoError(t, err)
	assert.InDelta(t, 100.0, score, 0.01)
	emb.AssertExpectations(t)
}

func TestScorer_Score_Deterministic(t *testing.T) {
	emb := new(MockEmbedder)
	emb.On("Embed", mock.Anything, mock.Anything).Return([][]float64{{0.3, 0.4, 0.5}, {0.5, 0.1, 0.2}}, nil)
	s := NewScorer(emb)

	first, err := s.Score(context.Background(), "sunset", "dawn")
	require.NoError(t, err)
	second, err := s.Score(context.Background(), "sunset", "dawn")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first, 0.0)
	assert.LessOrEqual(t, first, 100.0)
}

func TestScorer_Score_EmptyAfterNormalization(t *testing.T) {
	emb := new(MockEmbedder)
	s := NewScorer(emb)

	score, err := s.Score(context.Background(), "?!...", "a castle")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)

	score, err = s.Score(context.Background(), "a castle", "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)

	emb.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestScorer_Score_ModelError(t *testing.T) {
	emb := new(MockEmbedder)
	emb.On("Embed", mock.Anything, mock.Anything).Return(nil, apperrors.ErrUnavailable)

	_, err := NewScorer(emb).Score(context.Background(), "cat", "dog")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
}

func TestScorer_Score_DimensionMismatch(t *testing.T) {
	testCases := []struct {
		name    string
		vectors [][]float64
	}{
		{"разная длина", [][]float64{{1, 0, 0}, {1, 0}}},
		{"пустой вектор", [][]float64{{}, {}}},
		{"один вектор", [][]float64{{1, 0}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			emb := new(MockEmbedder)
			emb.On("Embed", mock.Anything, mock.Anything).Return(tc.vectors, nil)

			score, err := NewScorer(emb).Score(context.Background(), "a red fox", "a red fox in snow")

			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
			assert.Equal(t, 0.0, score)
		})
	}
}

// ============================================================================
// HTTPEmbedder
// ============================================================================

func TestHTTPEmbedder_Embed(t *testing.T) {
	var gotAuth string
	var gotReq embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		// Порядок в ответе перемешан: клиент должен упорядочить по index
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(config.ScorerConfig{
		BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "mini", TimeoutSec: 5, RatePerSecond: 100, Burst: 5,
	})

	vecs, err := e.Embed(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "mini", gotReq.Model)
	assert.Equal(t, []string{"first", "second"}, gotReq.Input)
	assert.Equal(t, "mini", e.Model())
}

func TestHTTPEmbedder_Embed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(config.ScorerConfig{BaseURL: srv.URL, Model: "mini", TimeoutSec: 5})
	_, err := e.Embed(context.Background(), []string{"x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPEmbedder_Embed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(config.ScorerConfig{BaseURL: srv.URL, Model: "mini", TimeoutSec: 5})
	_, err := e.Embed(context.Background(), []string{"a", "b"})

	assert.ErrorContains(t, err, "1 vectors for 2 inputs")
}

func TestHTTPEmbedder_Embed_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	e := NewHTTPEmbedder(config.ScorerConfig{BaseURL: url, Model: "mini", TimeoutSec: 1})
	_, err := e.Embed(context.Background(), []string{"a"})

	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
}

// ============================================================================
// CachedEmbedder
// ============================================================================

func TestCachedEmbedder_UsesCacheForKnownTexts(t *testing.T) {
	inner := new(MockEmbedder)
	cache := newMemoryCache()
	ce := NewCachedEmbedder(inner, cache, time.Hour, "emb")

	inner.On("Embed", mock.Anything, []string{"a cat", "a dog"}).Return([][]float64{{1, 0}, {0, 1}}, nil).Once()
	first, err := ce.Embed(context.Background(), []string{"a cat", "a dog"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, first)

	// Второй вызов: "a dog" уже в кеше, в модель уходит только новый текст
	inner.On("Embed", mock.Anything, []string{"a bird"}).Return([][]float64{{0.5, 0.5}}, nil).Once()
	second, err := ce.Embed(context.Background(), []string{"a bird", "a dog"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 0.5}, {0, 1}}, second)

	inner.AssertExpectations(t)
}

func TestCachedEmbedder_CacheKey(t *testing.T) {
	ce := NewCachedEmbedder(new(MockEmbedder), newMemoryCache(), time.Hour, "")

	key := ce.CacheKey("a cat")
	assert.Regexp(t, `^emb:[0-9a-f]{64}$`, key)
	assert.Equal(t, key, ce.CacheKey("a cat"))
	assert.NotEqual(t, key, ce.CacheKey("a dog"))
}

func TestCachedEmbedder_PropagatesModelError(t *testing.T) {
	inner := new(MockEmbedder)
	inner.On("Embed", mock.Anything, mock.Anything).Return(nil, apperrors.ErrUnavailable)

	_, err := NewCachedEmbedder(inner, newMemoryCache(), time.Hour, "emb").Embed(context.Background(), []string{"x"})

	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
}
