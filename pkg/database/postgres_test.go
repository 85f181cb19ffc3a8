package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormLogger "gorm.io/gorm/logger"
)

func TestParseGormLogLevel(t *testing.T) {
	assert.Equal(t, gormLogger.Silent, ParseGormLogLevel("silent"))
	assert.Equal(t, gormLogger.Error, ParseGormLogLevel("ERROR"))
	assert.Equal(t, gormLogger.Info, ParseGormLogLevel("info"))
	assert.Equal(t, gormLogger.Warn, ParseGormLogLevel("warn"))
	assert.Equal(t, gormLogger.Warn, ParseGormLogLevel(""))
}

func TestMigrationsSourceURL(t *testing.T) {
	assert.Equal(t, "file://migrations", MigrationsSourceURL(""))
	assert.Equal(t, "file:///srv/app/migrations", MigrationsSourceURL("/srv/app/migrations"))
}
