package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/promptgame-api/internal/domain/repository"
	"github.com/yourusername/promptgame-api/internal/handler/dto"
	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
	"github.com/yourusername/promptgame-api/pkg/logger"
)

const (
	DefaultLeaderboardPageSize = 50
	MaxLeaderboardPageSize     = 100

	leaderboardVersionKey = "leaderboard:version"
	exportBatchSize       = 500
)

// LeaderboardService отдаёт лидерборд завершённых сессий с кешированием страниц
type LeaderboardService struct {
	sessionRepo repository.SessionRepository
	cacheRepo   repository.CacheRepository
	cacheTTL    time.Duration
}

// NewLeaderboardService создает новый LeaderboardService. cacheTTL <= 0 отключает кеш.
func NewLeaderboardService(sessionRepo repository.SessionRepository, cacheRepo repository.CacheRepository, cacheTTL time.Duration) *LeaderboardService {
	return &LeaderboardService{sessionRepo: sessionRepo, cacheRepo: cacheRepo, cacheTTL: cacheTTL}
}

// GetLeaderboard возвращает страницу лидерборда.
// Порядок: total_score по убыванию, при равенстве завершённые выше выбывших, затем по времени старта.
func (s *LeaderboardService) GetLeaderboard(page, pageSize int) (*dto.PaginatedLeaderboardResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultLeaderboardPageSize
	} else if pageSize > MaxLeaderboardPageSize {
		pageSize = MaxLeaderboardPageSize
	}
	offset := (page - 1) * pageSize

	cacheKey := ""
	if s.cacheTTL > 0 {
		cacheKey = fmt.Sprintf("leaderboard:v%s:%d:%d", s.version(), page, pageSize)
		var cached dto.PaginatedLeaderboardResponse
		err := s.cacheRepo.GetJSON(cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Log.Warn("[LeaderboardService] Ошибка чтения кеша", zap.Error(err))
		}
	}

	entries, total, err := s.sessionRepo.GetLeaderboard(pageSize, offset)
	if err != nil {
		logger.Log.Error("[LeaderboardService] Ошибка при получении лидерборда из репозитория", zap.Error(err))
		return nil, err
	}

	response := &dto.PaginatedLeaderboardResponse{
		Entries: toLeaderboardDTOs(entries, offset),
		Total:   total,
		Page:    page,
		PerPage: pageSize,
	}

	if cacheKey != "" {
		if err := s.cacheRepo.SetJSON(cacheKey, response, s.cacheTTL); err != nil {
			logger.Log.Warn("[LeaderboardService] Не удалось сохранить страницу в кеш", zap.Error(err))
		}
	}
	return response, nil
}

// GetAll возвращает весь лидерборд для экспорта
func (s *LeaderboardService) GetAll() ([]dto.LeaderboardEntryDTO, error) {
	var all []dto.LeaderboardEntryDTO
	for offset := 0; ; offset += exportBatchSize {
		entries, total, err := s.sessionRepo.GetLeaderboard(exportBatchSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, toLeaderboardDTOs(entries, offset)...)
		if len(entries) < exportBatchSize || int64(offset+len(entries)) >= total {
			break
		}
	}
	return all, nil
}

// Invalidate сбрасывает закешированные страницы, меняя версию ключей
func (s *LeaderboardService) Invalidate() {
	if s.cacheTTL <= 0 {
		return
	}
	if _, err := s.cacheRepo.Increment(leaderboardVersionKey); err != nil {
		logger.Log.Warn("[LeaderboardService] Не удалось сбросить кеш лидерборда", zap.Error(err))
	}
}

func (s *LeaderboardService) version() string {
	v, err := s.cacheRepo.Get(leaderboardVersionKey)
	if err != nil {
		return "0"
	}
	return v
}

func toLeaderboardDTOs(entries []repository.LeaderboardEntry, offset int) []dto.LeaderboardEntryDTO {
	out := make([]dto.LeaderboardEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = dto.LeaderboardEntryDTO{
			Rank:         offset + i + 1,
			SessionID:    e.SessionID,
			DisplayName:  e.DisplayName,
			TotalScore:   e.TotalScore,
			State:        e.State,
			EliminatedAt: e.EliminatedAt,
			CreatedAt:    e.CreatedAt,
			CompletedAt:  e.CompletedAt,
		}
	}
	return out
}
