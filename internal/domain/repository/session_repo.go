package repository

import (
	"time"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
)

// ScoredImage - оценённый ответ игрока на одно изображение этапа
type ScoredImage struct {
	SessionImageID string
	UserPrompt     string
	Score          float64
	Points         int
}

// StageUpdate описывает запись результата этапа и перехода сессии
type StageUpdate struct {
	// Stage - этап, на который пришли ответы. Если к моменту записи сессия
	// уже не на этом этапе, запись отклоняется с ErrConflict.
	Stage  entity.Stage
	Scored []ScoredImage

	NextStage entity.Stage
	NextState entity.SessionState

	// Заполняются только при выбывании
	EliminatedAt         *string
	EliminatedImageOrder *int
}

// StageCommit - агрегаты сессии после записи этапа
type StageCommit struct {
	ImagesCompleted int
	TotalPoints     int
	Session         *entity.Session
}

// LeaderboardEntry - строка лидерборда
type LeaderboardEntry struct {
	SessionID    string              `gorm:"column:session_id"`
	DisplayName  string              `gorm:"column:display_name"`
	TotalScore   float64             `gorm:"column:total_score"`
	State        entity.SessionState `gorm:"column:state"`
	EliminatedAt *string             `gorm:"column:eliminated_at"`
	CreatedAt    time.Time           `gorm:"column:created_at"`
	CompletedAt  *time.Time          `gorm:"column:completed_at"`
}

// SessionRepository определяет методы для работы с игровыми сессиями
type SessionRepository interface {
	// CreateWithImages создаёт сессию и все её назначения изображений в одной транзакции
	CreateWithImages(session *entity.Session, images []entity.SessionImage) error
	GetByID(id string) (*entity.Session, error)
	GetActiveByUser(userID string) (*entity.Session, error)
	HasFinishedSession(userID string) (bool, error)
	// GetStageImages возвращает изображения этапа вместе с записями каталога, по stage_order
	GetStageImages(sessionID string, stage entity.Stage) ([]entity.SessionImage, error)
	// GetAllImages возвращает все изображения сессии вместе с записями каталога, по stage_order
	GetAllImages(sessionID string) ([]entity.SessionImage, error)
	// ApplyStageResult атомарно сохраняет ответы этапа и переход сессии
	ApplyStageResult(sessionID string, update StageUpdate) (*StageCommit, error)
	GetLeaderboard(limit, offset int) ([]LeaderboardEntry, int64, error)
}
