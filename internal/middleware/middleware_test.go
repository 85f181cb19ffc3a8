package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/promptgame-api/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockWindowCounter реализует WindowCounter
type MockWindowCounter struct {
	mock.Mock
}

func (m *MockWindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	args := m.Called(key, window)
	return args.Get(0).(int64), args.Get(1).(time.Duration), args.Error(2)
}

func TestExtractUUIDParam(t *testing.T) {
	router := gin.New()
	router.GET("/session/:id", ExtractUUIDParam("id", "sessionID"), func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet("sessionID").(string))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/session/6F1C1D2E-3A4B-4C5D-8E9F-0A1B2C3D4E5F", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "6f1c1d2e-3a4b-4c5d-8e9f-0a1b2c3d4e5f", w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/session/42", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid id")
}

func newLimitedRouter(counter WindowCounter, enabled bool, cfg RateLimitConfig) *gin.Engine {
	router := gin.New()
	router.POST("/api/start", NewRateLimiter(counter, enabled).Limit(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	counter := new(MockWindowCounter)
	cfg := StartRateLimitConfig(config.RateLimitConfig{StartPerMin: 3, WindowSeconds: 60})
	counter.On("Hit", mock.MatchedBy(func(k string) bool { return k == "rl:start:192.0.2.1:/api/start" }), time.Minute).
		Return(int64(2), 40*time.Second, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/start", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	newLimitedRouter(counter, true, cfg).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "40", w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	counter := new(MockWindowCounter)
	cfg := SubmitRateLimitConfig(config.RateLimitConfig{SubmitPerMin: 2})
	counter.On("Hit", mock.Anything, time.Minute).Return(int64(3), 15*time.Second, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/start", nil)
	newLimitedRouter(counter, true, cfg).ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "15", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")
}

func TestRateLimiter_FailOpenAndDisabled(t *testing.T) {
	counter := new(MockWindowCounter)
	counter.On("Hit", mock.Anything, mock.Anything).Return(int64(0), time.Duration(0), errors.New("redis down"))
	cfg := RateLimitConfig{MaxRequests: 1, Window: time.Minute, KeyPrefix: "rl:test"}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/start", nil)
	newLimitedRouter(counter, true, cfg).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	disabled := new(MockWindowCounter)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/api/start", nil)
	newLimitedRouter(disabled, false, cfg).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	disabled.AssertNotCalled(t, "Hit", mock.Anything, mock.Anything)
}

func newTestRedisCounter(t *testing.T) (*RedisWindowCounter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisWindowCounter(client), mr
}

func TestRedisWindowCounter_FirstHitStartsWindow(t *testing.T) {
	counter, mr := newTestRedisCounter(t)
	ctx := context.Background()

	count, ttl, err := counter.Hit(ctx, "rl:test:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, ttl)
	assert.Equal(t, time.Minute, mr.TTL("rl:test:1"))

	// Повторный запрос не продлевает окно
	mr.FastForward(20 * time.Second)
	count, ttl, err = counter.Hit(ctx, "rl:test:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 40*time.Second, ttl)
}

func TestRedisWindowCounter_RestoresMissingTTL(t *testing.T) {
	counter, mr := newTestRedisCounter(t)
	ctx := context.Background()

	// Счётчик остался без TTL после неудачного EXPIRE
	require.NoError(t, mr.Set("rl:test:2", "50"))
	assert.Equal(t, time.Duration(0), mr.TTL("rl:test:2"))

	count, ttl, err := counter.Hit(ctx, "rl:test:2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), count)
	assert.Equal(t, time.Minute, ttl)
	assert.Equal(t, time.Minute, mr.TTL("rl:test:2"))

	mr.FastForward(time.Minute)
	assert.False(t, mr.Exists("rl:test:2"), "окно должно истечь")

	count, _, err = counter.Hit(ctx, "rl:test:2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRateLimiter_StaleCounterUnblocksAfterWindow(t *testing.T) {
	counter, mr := newTestRedisCounter(t)
	cfg := RateLimitConfig{MaxRequests: 1, Window: time.Minute, KeyPrefix: "rl:test"}
	router := newLimitedRouter(counter, true, cfg)

	require.NoError(t, mr.Set("rl:test:192.0.2.1:/api/start", "10"))

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/api/start", nil)
		req.RemoteAddr = "192.0.2.1:4321"
		router.ServeHTTP(w, req)
		return w
	}

	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusOK, send().Code)
}
