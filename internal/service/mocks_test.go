package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
	"github.com/yourusername/promptgame-api/internal/domain/repository"
)

// ============================================================================
// Моки репозиториев и зависимостей сервисов
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id string) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByDisplayName(displayName string) (*entity.User, error) {
	args := m.Called(displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

// MockSessionRepository реализует repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) CreateWithImages(session *entity.Session, images []entity.SessionImage) error {
	args := m.Called(session, images)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(id string) (*entity.Session, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepository) GetActiveByUser(userID string) (*entity.Session, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepository) HasFinishedSession(userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) GetStageImages(sessionID string, stage entity.Stage) ([]entity.SessionImage, error) {
	args := m.Called(sessionID, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SessionImage), args.Error(1)
}

func (m *MockSessionRepository) GetAllImages(sessionID string) ([]entity.SessionImage, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SessionImage), args.Error(1)
}

func (m *MockSessionRepository) ApplyStageResult(sessionID string, update repository.StageUpdate) (*repository.StageCommit, error) {
	args := m.Called(sessionID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.StageCommit), args.Error(1)
}

func (m *MockSessionRepository) GetLeaderboard(limit, offset int) ([]repository.LeaderboardEntry, int64, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]repository.LeaderboardEntry), args.Get(1).(int64), args.Error(2)
}

// MockImageRepository реализует repository.ImageRepository
type MockImageRepository struct {
	mock.Mock
}

func (m *MockImageRepository) Create(image *entity.Image) error {
	args := m.Called(image)
	return args.Error(0)
}

func (m *MockImageRepository) CreateBatch(images []entity.Image) error {
	args := m.Called(images)
	return args.Error(0)
}

func (m *MockImageRepository) GetByID(id string) (*entity.Image, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Image), args.Error(1)
}

func (m *MockImageRepository) List(filters repository.ImageFilters, limit, offset int) ([]entity.Image, int64, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Image), args.Get(1).(int64), args.Error(2)
}

func (m *MockImageRepository) SetActive(id string, active bool) error {
	args := m.Called(id, active)
	return args.Error(0)
}

func (m *MockImageRepository) CountActiveByLevel() (map[entity.Level]int64, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entity.Level]int64), args.Error(1)
}

func (m *MockImageRepository) PickRandomActive(tx *gorm.DB, level entity.Level, limit int) ([]entity.Image, error) {
	args := m.Called(level, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Image), args.Error(1)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepository) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepository) Increment(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// MockScorer реализует PromptScorer
type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(ctx context.Context, userPrompt, originalPrompt string) (float64, error) {
	args := m.Called(userPrompt, originalPrompt)
	return args.Get(0).(float64), args.Error(1)
}

// staticURLs реализует ImageURLResolver для тестов
type staticURLs struct{}

func (staticURLs) ImageURL(_ context.Context, filePath string) string {
	return "/static/" + filePath
}

// MockInvalidator реализует LeaderboardInvalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate() {
	m.Called()
}
