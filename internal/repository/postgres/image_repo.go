package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
	"github.com/yourusername/promptgame-api/internal/domain/repository"
	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
)

// ImageRepo реализует repository.ImageRepository
type ImageRepo struct {
	db *gorm.DB
}

// NewImageRepo создает новый репозиторий каталога изображений
func NewImageRepo(db *gorm.DB) *ImageRepo {
	return &ImageRepo{db: db}
}

// Create добавляет изображение в каталог
func (r *ImageRepo) Create(image *entity.Image) error {
	return r.db.Create(image).Error
}

// CreateBatch добавляет изображения пачками в одной транзакции
func (r *ImageRepo) CreateBatch(images []entity.Image) error {
	if len(images) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(images, 100).Error
	})
}

// GetByID возвращает изображение по ID
func (r *ImageRepo) GetByID(id string) (*entity.Image, error) {
	var image entity.Image
	err := r.db.Where("id = ?", id).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &image, nil
}

// List возвращает изображения каталога с фильтрами и общим количеством
func (r *ImageRepo) List(filters repository.ImageFilters, limit, offset int) ([]entity.Image, int64, error) {
	var images []entity.Image
	var total int64

	query := r.db.Model(&entity.Image{})
	if filters.Level != nil {
		query = query.Where("level = ?", *filters.Level)
	}
	if filters.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("level ASC, created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&images).Error
	if err != nil {
		return nil, 0, err
	}
	return images, total, nil
}

// SetActive включает или выключает изображение в выдаче
func (r *ImageRepo) SetActive(id string, active bool) error {
	result := r.db.Model(&entity.Image{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: image %s", apperrors.ErrNotFound, id)
	}
	return nil
}

// CountActiveByLevel возвращает количество активных изображений по уровням
func (r *ImageRepo) CountActiveByLevel() (map[entity.Level]int64, error) {
	var rows []struct {
		Level entity.Level
		Count int64
	}
	err := r.db.Model(&entity.Image{}).
		Select("level, COUNT(*) AS count").
		Where("active = ?", true).
		Group("level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entity.Level]int64, len(rows))
	for _, row := range rows {
		counts[row.Level] = row.Count
	}
	return counts, nil
}

// PickRandomActive выбирает limit случайных активных изображений уровня
func (r *ImageRepo) PickRandomActive(tx *gorm.DB, level entity.Level, limit int) ([]entity.Image, error) {
	db := r.db
	if tx != nil {
		db = tx
	}

	var images []entity.Image
	err := db.Where("level = ? AND active = ?", level, true).
		Order("RANDOM()").
		Limit(limit).
		Find(&images).Error
	return images, err
}
