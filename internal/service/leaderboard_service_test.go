package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
	"github.com/yourusername/promptgame-api/internal/domain/repository"
	"github.com/yourusername/promptgame-api/internal/handler/dto"
	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
)

func leaderboardEntries(n int) []repository.LeaderboardEntry {
	out := make([]repository.LeaderboardEntry, n)
	for i := range out {
		out[i] = repository.LeaderboardEntry{
			SessionID:   "s",
			DisplayName: "pilot",
			TotalScore:  float64(200 - i),
			State:       entity.SessionStateCompleted,
		}
	}
	return out
}

func TestGetLeaderboard_PaginationDefaults(t *testing.T) {
	sessions := new(MockSessionRepository)
	cache := new(MockCacheRepository)
	svc := NewLeaderboardService(sessions, cache, 0)

	sessions.On("GetLeaderboard", 50, 0).Return(leaderboardEntries(2), int64(2), nil).Once()
	resp, err := svc.GetLeaderboard(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 50, resp.PerPage)
	assert.Equal(t, int64(2), resp.Total)
	assert.Equal(t, 1, resp.Entries[0].Rank)
	assert.Equal(t, 2, resp.Entries[1].Rank)

	// page_size ограничен сотней, ранг учитывает смещение
	sessions.On("GetLeaderboard", 100, 200).Return(leaderboardEntries(1), int64(201), nil).Once()
	resp, err = svc.GetLeaderboard(3, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, resp.PerPage)
	assert.Equal(t, 201, resp.Entries[0].Rank)

	cache.AssertNotCalled(t, "GetJSON", mock.Anything, mock.Anything)
	sessions.AssertExpectations(t)
}

func TestGetLeaderboard_CacheHit(t *testing.T) {
	sessions := new(MockSessionRepository)
	cache := new(MockCacheRepository)
	svc := NewLeaderboardService(sessions, cache, 30*time.Second)

	cache.On("Get", "leaderboard:version").Return("7", nil)
	cache.On("GetJSON", "leaderboard:v7:1:50", mock.AnythingOfType("*dto.PaginatedLeaderboardResponse")).
		Run(func(args mock.Arguments) {
			dest := args.Get(1).(*dto.PaginatedLeaderboardResponse)
			dest.Total = 42
			dest.Page = 1
			dest.PerPage = 50
		}).Return(nil)

	resp, err := svc.GetLeaderboard(1, 50)

	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.Total)
	sessions.AssertNotCalled(t, "GetLeaderboard", mock.Anything, mock.Anything)
}

func TestGetLeaderboard_CacheMissStoresPage(t *testing.T) {
	sessions := new(MockSessionRepository)
	cache := new(MockCacheRepository)
	svc := NewLeaderboardService(sessions, cache, 30*time.Second)

	cache.On("Get", "leaderboard:version").Return("", apperrors.ErrNotFound)
	cache.On("GetJSON", "leaderboard:v0:2:10", mock.Anything).Return(apperrors.ErrNotFound)
	sessions.On("GetLeaderboard", 10, 10).Return(leaderboardEntries(3), int64(13), nil)
	cache.On("SetJSON", "leaderboard:v0:2:10", mock.AnythingOfType("*dto.PaginatedLeaderboardResponse"), 30*time.Second).Return(nil)

	resp, err := svc.GetLeaderboard(2, 10)

	require.NoError(t, err)
	assert.Len(t, resp.Entries, 3)
	assert.Equal(t, 11, resp.Entries[0].Rank)
	cache.AssertExpectations(t)
}

func TestGetLeaderboard_RepoError(t *testing.T) {
	sessions := new(MockSessionRepository)
	svc := NewLeaderboardService(sessions, new(MockCacheRepository), 0)
	sessions.On("GetLeaderboard", 50, 0).Return(nil, int64(0), errors.New("db down"))

	_, err := svc.GetLeaderboard(1, 50)

	assert.EqualError(t, err, "db down")
}

func TestLeaderboard_Invalidate(t *testing.T) {
	cache := new(MockCacheRepository)
	cache.On("Increment", "leaderboard:version").Return(int64(8), nil).Once()

	NewLeaderboardService(new(MockSessionRepository), cache, time.Minute).Invalidate()
	cache.AssertExpectations(t)

	// Без кеша ничего не делает
	disabled := new(MockCacheRepository)
	NewLeaderboardService(new(MockSessionRepository), disabled, 0).Invalidate()
	disabled.AssertNotCalled(t, "Increment", mock.Anything)
}

func TestLeaderboard_GetAllPagesThroughRepository(t *testing.T) {
	sessions := new(MockSessionRepository)
	sessions.On("GetLeaderboard", exportBatchSize, 0).Return(leaderboardEntries(exportBatchSize), int64(exportBatchSize+2), nil).Once()
	sessions.On("GetLeaderboard", exportBatchSize, exportBatchSize).Return(leaderboardEntries(2), int64(exportBatchSize+2), nil).Once()

	all, err := NewLeaderboardService(sessions, new(MockCacheRepository), 0).GetAll()

	require.NoError(t, err)
	require.Len(t, all, exportBatchSize+2)
	assert.Equal(t, exportBatchSize+2, all[len(all)-1].Rank)
	sessions.AssertExpectations(t)
}
