package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/promptgame-api/internal/config"
)

func TestLocalStorage_URL(t *testing.T) {
	svc, err := NewStorageService(config.StorageConfig{Type: "local", LocalDir: "static", PublicPrefix: "/static/"})
	require.NoError(t, err)

	assert.Equal(t, "/static/easy/fox.png", svc.ImageURL(context.Background(), "easy/fox.png"))
	assert.Equal(t, "/static/easy/fox.png", svc.ImageURL(context.Background(), "/easy/fox.png"))
}

func TestLocalStorage_UploadImage(t *testing.T) {
	staticDir := t.TempDir()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "fox.png")
	require.NoError(t, os.WriteFile(src, []byte("png-bytes"), 0o644))

	svc, err := NewStorageService(config.StorageConfig{Type: "local", LocalDir: staticDir, PublicPrefix: "/static"})
	require.NoError(t, err)

	objectName, err := svc.UploadImage(context.Background(), "easy", src)

	require.NoError(t, err)
	assert.Equal(t, "easy/fox.png", objectName)
	data, err := os.ReadFile(filepath.Join(staticDir, "easy", "fox.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestNewStorageService_Minio(t *testing.T) {
	svc, err := NewStorageService(config.StorageConfig{
		Type: "minio", MinioEndpoint: "localhost:9000", MinioAccessID: "id", MinioSecret: "secret",
		MinioBucket: "images", URLExpiryMin: 15,
	})
	require.NoError(t, err)

	p, ok := svc.Provider.(*MinioStorageProvider)
	require.True(t, ok)
	assert.Equal(t, "images", p.Bucket)
	assert.Equal(t, 15.0, p.Expiry.Minutes())

	// Подпись URL выполняется локально, без обращения к серверу
	url := svc.ImageURL(context.Background(), "hard/city.png")
	assert.Contains(t, url, "/images/hard/city.png")
	assert.Contains(t, url, "X-Amz-Signature=")
}

func TestNewStorageService_Unsupported(t *testing.T) {
	_, err := NewStorageService(config.StorageConfig{Type: "ftp"})
	assert.ErrorContains(t, err, "unsupported storage type")
}

func TestContentTypeByExt(t *testing.T) {
	assert.Equal(t, "image/png", contentTypeByExt("a.PNG"))
	assert.Equal(t, "image/jpeg", contentTypeByExt("a.jpeg"))
	assert.Equal(t, "application/octet-stream", contentTypeByExt("a.bin"))
}
