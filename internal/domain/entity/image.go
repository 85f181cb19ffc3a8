package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap - пользовательский тип для работы с JSONB объектами
type JSONMap map[string]interface{}

// Scan реализует интерфейс sql.Scanner для JSONMap
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte or string")
	}

	if len(bytes) == 0 {
		*m = JSONMap{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для JSONMap
func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil // пустой объект вместо null
	}
	return json.Marshal(m)
}

// Image - изображение из каталога с исходным промптом генерации
type Image struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	Level          Level     `gorm:"type:varchar(10);not null;index:idx_images_level_active" json:"level"`
	FilePath       string    `gorm:"type:text;not null" json:"file_path"`
	OriginalPrompt string    `gorm:"type:text;not null" json:"-"` // Скрыто от клиента до выбывания
	NegativePrompt *string   `gorm:"type:text" json:"negative_prompt,omitempty"`
	GeneratorModel *string   `gorm:"size:120" json:"generator_model,omitempty"`
	Seed           *int64    `json:"seed,omitempty"`
	Meta           JSONMap   `gorm:"type:jsonb;not null;default:'{}'" json:"meta"`
	Active         bool      `gorm:"not null;default:true;index:idx_images_level_active" json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Image) TableName() string {
	return "images"
}
