package repository

import (
	"github.com/yourusername/promptgame-api/internal/domain/entity"
	"gorm.io/gorm"
)

// ImageFilters содержит фильтры для списка изображений каталога
type ImageFilters struct {
	Level      *entity.Level
	ActiveOnly bool
}

// ImageRepository определяет методы для работы с каталогом изображений
type ImageRepository interface {
	Create(image *entity.Image) error
	CreateBatch(images []entity.Image) error
	GetByID(id string) (*entity.Image, error)
	List(filters ImageFilters, limit, offset int) ([]entity.Image, int64, error)
	SetActive(id string, active bool) error
	CountActiveByLevel() (map[entity.Level]int64, error)
	// PickRandomActive выбирает limit случайных активных изображений уровня.
	// tx может быть nil, тогда используется основное соединение.
	PickRandomActive(tx *gorm.DB, level entity.Level, limit int) ([]entity.Image, error)
}
