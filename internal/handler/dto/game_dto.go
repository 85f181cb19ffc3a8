package dto

import (
	"time"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
)

// StartRequest - запрос на старт или возобновление игры
type StartRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// StageImageDTO - изображение текущего этапа без исходного промпта
type StageImageDTO struct {
	SessionImageID string       `json:"session_image_id"`
	ImageID        string       `json:"image_id"`
	ImageURL       string       `json:"image_url"`
	Level          entity.Level `json:"level"`
	StageOrder     int          `json:"stage_order"`
	StageName      entity.Stage `json:"stage_name"`
}

// StageImagesResponse - ответ start и next_stage
type StageImagesResponse struct {
	SessionID    string          `json:"session_id"`
	CurrentStage entity.Stage    `json:"current_stage"`
	Resumed      bool            `json:"resumed"`
	Images       []StageImageDTO `json:"images"`
}

// SubmitItem - ответ игрока на одно изображение
type SubmitItem struct {
	SessionImageID string `json:"session_image_id"`
	UserPrompt     string `json:"user_prompt"`
}

// SubmitStageRequest - ответы на все изображения этапа
type SubmitStageRequest struct {
	Items []SubmitItem `json:"items" binding:"required"`
}

// MatchDTO - оценка одного ответа этапа
type MatchDTO struct {
	StageOrder int          `json:"stage_order"` // позиция внутри этапа, с 1
	Level      entity.Level `json:"level"`
	Score      float64      `json:"score"`
	Points     int          `json:"points"`
}

// StageResultResponse - результат отправки этапа
type StageResultResponse struct {
	NextStage          entity.Stage `json:"next_stage"`
	Passed             bool         `json:"passed"`
	ImagesCompleted    int          `json:"images_completed"`
	TotalScore         *float64     `json:"total_score,omitempty"`
	EliminatedAt       *string      `json:"eliminated_at,omitempty"`
	EliminatedPrompt   *string      `json:"eliminated_prompt,omitempty"`
	EliminatedImageURL *string      `json:"eliminated_image_url,omitempty"`
	Matches            []MatchDTO   `json:"matches"`
}

// StatusImageDTO - изображение сессии в ответе статуса
type StatusImageDTO struct {
	SessionImageID string       `json:"session_image_id"`
	ImageID        string       `json:"image_id"`
	ImageURL       string       `json:"image_url"`
	Level          entity.Level `json:"level"`
	StageName      entity.Stage `json:"stage_name"`
	StageOrder     int          `json:"stage_order"`
	UserPrompt     *string      `json:"user_prompt"`
	Score          *float64     `json:"score"`
	Points         *int         `json:"points"`
}

// StatusResponse - полное состояние сессии
type StatusResponse struct {
	SessionID       string              `json:"session_id"`
	State           entity.SessionState `json:"state"`
	CurrentStage    entity.Stage        `json:"current_stage"`
	TotalScore      *float64            `json:"total_score"`
	ImagesCompleted int                 `json:"images_completed"`
	EliminatedAt    *string             `json:"eliminated_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	Images          []StatusImageDTO    `json:"images"`
}

// LeaderboardEntryDTO - строка лидерборда
type LeaderboardEntryDTO struct {
	Rank         int                 `json:"rank"`
	SessionID    string              `json:"session_id"`
	DisplayName  string              `json:"display_name"`
	TotalScore   float64             `json:"total_score"`
	State        entity.SessionState `json:"state"`
	EliminatedAt *string             `json:"eliminated_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

// PaginatedLeaderboardResponse - страница лидерборда
type PaginatedLeaderboardResponse struct {
	Entries []LeaderboardEntryDTO `json:"entries"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"per_page"`
}
