package entity

import (
	"strings"
	"time"
)

// MaxDisplayNameLength - максимальная длина отображаемого имени игрока
const MaxDisplayNameLength = 80

// User представляет игрока. Игрок идентифицируется только уникальным отображаемым именем.
type User struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName string    `gorm:"size:80;not null;uniqueIndex" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// NormalizeDisplayName обрезает пробелы по краям имени
func NormalizeDisplayName(name string) string {
	return strings.TrimSpace(name)
}
