package entity

import (
	"fmt"
	"time"
)

// Session - одно прохождение игры пользователем
type Session struct {
	ID                   string       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               string       `gorm:"type:uuid;not null;index" json:"user_id"`
	State                SessionState `gorm:"type:varchar(16);not null;default:'active';index" json:"state"`
	CurrentStage         Stage        `gorm:"type:varchar(10);not null;default:'easy'" json:"current_stage"`
	TotalScore           *float64     `gorm:"type:numeric(6,2)" json:"total_score"` // Заполняется при завершении или выбывании
	ImagesCompleted      int          `gorm:"not null;default:0" json:"images_completed"`
	EliminatedAt         *string      `gorm:"size:20" json:"eliminated_at"` // "easy-1", "medium-2", ...
	EliminatedStage      *Stage       `gorm:"type:varchar(10)" json:"eliminated_stage,omitempty"`
	EliminatedImageOrder *int         `json:"eliminated_image_order,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName определяет имя таблицы для GORM
func (Session) TableName() string {
	return "sessions"
}

// IsActive возвращает true, если в сессии ещё можно отвечать
func (s *Session) IsActive() bool {
	return s.State == SessionStateActive
}

// FormatEliminatedAt формирует метку точки выбывания вида "<stage>-<index>".
// index - позиция изображения внутри этапа, начиная с 1.
func FormatEliminatedAt(stage Stage, index int) string {
	return fmt.Sprintf("%s-%d", stage, index)
}

// SessionImage - привязка изображения каталога к сессии на конкретной позиции.
// Уровень и этап копируются в момент назначения.
type SessionImage struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  string     `gorm:"type:uuid;not null;uniqueIndex:uniq_session_stage_order" json:"session_id"`
	ImageID    string     `gorm:"type:uuid;not null" json:"image_id"`
	Level      Level      `gorm:"type:varchar(10);not null" json:"level"`
	StageName  Stage      `gorm:"type:varchar(10);not null" json:"stage_name"`
	StageOrder int        `gorm:"not null;uniqueIndex:uniq_session_stage_order" json:"stage_order"` // Глобальный порядок 1..N
	UserPrompt *string    `gorm:"type:text" json:"user_prompt"`
	Score      *float64   `gorm:"type:numeric(5,2)" json:"score"`
	Points     *int       `json:"points"`
	CreatedAt  time.Time  `json:"created_at"`
	ScoredAt   *time.Time `json:"scored_at,omitempty"`

	Image *Image `gorm:"foreignKey:ImageID" json:"image,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (SessionImage) TableName() string {
	return "session_images"
}

// IsScored возвращает true, если игрок уже отправил промпт для изображения
func (si *SessionImage) IsScored() bool {
	return si.Score != nil
}
