package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
	"github.com/yourusername/promptgame-api/internal/domain/repository"
	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
	"github.com/yourusername/promptgame-api/pkg/logger"
)

// Колонки файла импорта каталога. Обязательны level, file_path, original_prompt.
var catalogColumns = []string{"level", "file_path", "original_prompt", "negative_prompt", "generator_model", "seed", "meta"}

// ImageUploader загружает файл изображения в хранилище и возвращает его file_path
type ImageUploader interface {
	UploadImage(ctx context.Context, level, localPath string) (string, error)
}

// CatalogService управляет каталогом изображений
type CatalogService struct {
	imageRepo repository.ImageRepository
	uploader  ImageUploader
}

// NewCatalogService создает новый CatalogService
func NewCatalogService(imageRepo repository.ImageRepository, uploader ImageUploader) *CatalogService {
	return &CatalogService{imageRepo: imageRepo, uploader: uploader}
}

// ImportFile импортирует изображения из .csv или .xlsx.
// Если uploadDir не пуст, файлы изображений берутся из него и загружаются в хранилище.
func (s *CatalogService) ImportFile(ctx context.Context, path, uploadDir string) (int, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSVRows(path)
	case ".xlsx":
		rows, err = readXLSXRows(path)
	default:
		return 0, fmt.Errorf("%w: unsupported catalog file %q (expected .csv or .xlsx)", apperrors.ErrValidation, path)
	}
	if err != nil {
		return 0, err
	}

	images, err := ParseCatalogRows(rows)
	if err != nil {
		return 0, err
	}

	if uploadDir != "" {
		for i := range images {
			localPath := filepath.Join(uploadDir, filepath.FromSlash(images[i].FilePath))
			objectName, err := s.uploader.UploadImage(ctx, string(images[i].Level), localPath)
			if err != nil {
				return 0, err
			}
			images[i].FilePath = objectName
		}
	}

	if err := s.imageRepo.CreateBatch(images); err != nil {
		return 0, fmt.Errorf("save catalog images: %w", err)
	}
	logger.Log.Info("[CatalogService] Каталог импортирован", zap.String("file", path), zap.Int("images", len(images)))
	return len(images), nil
}

// ParseCatalogRows разбирает строки таблицы (первая строка - заголовок) в изображения каталога
func ParseCatalogRows(rows [][]string) ([]entity.Image, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: catalog file has no data rows", apperrors.ErrValidation)
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range catalogColumns[:3] {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: catalog header is missing column %q", apperrors.ErrValidation, required)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	images := make([]entity.Image, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		if isBlankRow(row) {
			continue
		}

		level := entity.Level(strings.ToLower(cell(row, "level")))
		if !level.IsValid() {
			return nil, fmt.Errorf("%w: row %d: unknown level %q", apperrors.ErrValidation, line, cell(row, "level"))
		}
		img := entity.Image{
			ID:             uuid.NewString(),
			Level:          level,
			FilePath:       cell(row, "file_path"),
			OriginalPrompt: cell(row, "original_prompt"),
			Meta:           entity.JSONMap{},
			Active:         true,
		}
		if img.FilePath == "" || img.OriginalPrompt == "" {
			return nil, fmt.Errorf("%w: row %d: file_path and original_prompt are required", apperrors.ErrValidation, line)
		}
		if v := cell(row, "negative_prompt"); v != "" {
			img.NegativePrompt = &v
		}
		if v := cell(row, "generator_model"); v != "" {
			img.GeneratorModel = &v
		}
		if v := cell(row, "seed"); v != "" {
			seed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: invalid seed %q", apperrors.ErrValidation, line, v)
			}
			img.Seed = &seed
		}
		if v := cell(row, "meta"); v != "" {
			if err := json.Unmarshal([]byte(v), &img.Meta); err != nil {
				return nil, fmt.Errorf("%w: row %d: meta must be a JSON object: %v", apperrors.ErrValidation, line, err)
			}
		}
		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("%w: catalog file has no data rows", apperrors.ErrValidation)
	}
	return images, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %v", apperrors.ErrValidation, err)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: xlsx file has no sheets", apperrors.ErrValidation)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return rows, nil
}

// List возвращает изображения каталога с фильтрами
func (s *CatalogService) List(level *entity.Level, activeOnly bool, limit, offset int) ([]entity.Image, int64, error) {
	if level != nil && !level.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown level %q", apperrors.ErrValidation, *level)
	}
	if limit < 1 {
		limit = 50
	}
	return s.imageRepo.List(repository.ImageFilters{Level: level, ActiveOnly: activeOnly}, limit, offset)
}

// SetActive включает или выключает изображение. Выключенные не попадают в новые сессии.
func (s *CatalogService) SetActive(id string, active bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid image id %q", apperrors.ErrValidation, id)
	}
	return s.imageRepo.SetActive(id, active)
}

// ActiveCounts возвращает количество активных изображений по уровням
func (s *CatalogService) ActiveCounts() (map[entity.Level]int64, error) {
	return s.imageRepo.CountActiveByLevel()
}
