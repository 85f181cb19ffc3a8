package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/yourusername/promptgame-api/internal/config"
	"github.com/yourusername/promptgame-api/pkg/logger"
)

// StorageProvider - хранилище файлов изображений каталога
type StorageProvider interface {
	// UploadFile копирует локальный файл в хранилище под именем objectName
	UploadFile(ctx context.Context, objectName, localPath, contentType string) error
	// URL возвращает адрес, по которому клиент может получить изображение
	URL(ctx context.Context, objectName string) string
}

// LocalStorageProvider хранит изображения в каталоге, который раздаётся как статика
type LocalStorageProvider struct {
	Dir          string
	PublicPrefix string
}

func (p *LocalStorageProvider) UploadFile(ctx context.Context, objectName, localPath, contentType string) error {
	dst := filepath.Join(p.Dir, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	// Файл уже лежит в каталоге статики
	if abs(localPath) == abs(dst) {
		return nil
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

func (p *LocalStorageProvider) URL(_ context.Context, objectName string) string {
	prefix := strings.TrimRight(p.PublicPrefix, "/")
	return prefix + "/" + strings.TrimLeft(objectName, "/")
}

func abs(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}

// MinioStorageProvider хранит изображения в бакете MinIO/S3 и отдаёт presigned URL
type MinioStorageProvider struct {
	Bucket string
	Expiry time.Duration
	Client *minio.Client
}

func NewMinioStorageProvider(cfg config.StorageConfig) (*MinioStorageProvider, error) {
	// С известным регионом presigned URL подписывается без запроса к серверу
	region := cfg.MinioRegion
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	expiry := time.Duration(cfg.URLExpiryMin) * time.Minute
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &MinioStorageProvider{Bucket: cfg.MinioBucket, Expiry: expiry, Client: client}, nil
}

func (p *MinioStorageProvider) UploadFile(ctx context.Context, objectName, localPath, contentType string) error {
	_, err := p.Client.FPutObject(ctx, p.Bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (p *MinioStorageProvider) URL(ctx context.Context, objectName string) string {
	u, err := p.Client.PresignedGetObject(ctx, p.Bucket, objectName, p.Expiry, url.Values{})
	if err != nil {
		logger.Log.Warn("[Storage] Не удалось подписать URL изображения",
			zap.String("object", objectName), zap.Error(err))
		return "/" + p.Bucket + "/" + objectName
	}
	return u.String()
}

// StorageService выдаёт URL изображений и загружает файлы каталога
type StorageService struct {
	Provider StorageProvider
}

// NewStorageService выбирает провайдера по storage.type
func NewStorageService(cfg config.StorageConfig) (*StorageService, error) {
	var provider StorageProvider
	switch cfg.Type {
	case "minio":
		p, err := NewMinioStorageProvider(cfg)
		if err != nil {
			return nil, err
		}
		provider = p
	case "", "local":
		provider = &LocalStorageProvider{Dir: cfg.LocalDir, PublicPrefix: cfg.PublicPrefix}
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
	return &StorageService{Provider: provider}, nil
}

// ImageURL возвращает адрес изображения по его file_path
func (s *StorageService) ImageURL(ctx context.Context, filePath string) string {
	return s.Provider.URL(ctx, filePath)
}

// UploadImage загружает локальный файл и возвращает имя объекта (file_path в каталоге)
func (s *StorageService) UploadImage(ctx context.Context, level, localPath string) (string, error) {
	objectName := path.Join(level, filepath.Base(localPath))
	if err := s.Provider.UploadFile(ctx, objectName, localPath, contentTypeByExt(localPath)); err != nil {
		return "", fmt.Errorf("upload %s: %w", localPath, err)
	}
	return objectName, nil
}

func contentTypeByExt(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
