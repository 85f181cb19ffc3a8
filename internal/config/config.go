package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Game      GameConfig      `mapstructure:"game"`
	Scorer    ScorerConfig    `mapstructure:"scorer"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // секунды
	WriteTimeout int    `mapstructure:"write_timeout"` // секунды
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	DBName        string `mapstructure:"dbname"`
	SSLMode       string `mapstructure:"sslmode"`
	LogLevel      string `mapstructure:"log_level"` // silent, error, warn, info
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Для 'single' используется первый адрес.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // миллисекунды
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // миллисекунды
}

// StageRules - правила одного этапа игры
type StageRules struct {
	Count     int     `mapstructure:"count"`     // количество изображений на этапе
	Threshold float64 `mapstructure:"threshold"` // минимальный балл сходства для прохождения
	Weight    int     `mapstructure:"weight"`    // максимум очков за одно изображение
}

// GameConfig содержит правила игры по этапам
type GameConfig struct {
	Easy   StageRules `mapstructure:"easy"`
	Medium StageRules `mapstructure:"medium"`
	Hard   StageRules `mapstructure:"hard"`

	// StartLockTTL - время блокировки повторного старта одного игрока (секунды)
	StartLockTTL int `mapstructure:"start_lock_ttl"`
	// LeaderboardCacheTTL - время жизни кеша страниц лидерборда (секунды)
	LeaderboardCacheTTL int `mapstructure:"leaderboard_cache_ttl"`
}

// ScorerConfig содержит настройки сервиса эмбеддингов (OpenAI-совместимый /embeddings)
type ScorerConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	TimeoutSec     int     `mapstructure:"timeout_sec"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"` // 0 - без ограничения
	Burst          int     `mapstructure:"burst"`
	CacheTTLHours  int     `mapstructure:"cache_ttl_hours"` // 0 - кеш эмбеддингов выключен
	CacheKeyPrefix string  `mapstructure:"cache_key_prefix"`
}

// StorageConfig содержит настройки хранилища изображений
type StorageConfig struct {
	Type          string `mapstructure:"type"` // local или minio
	LocalDir      string `mapstructure:"local_dir"`
	PublicPrefix  string `mapstructure:"public_prefix"` // URL-префикс для локальных файлов
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_id"`
	MinioSecret   string `mapstructure:"minio_secret"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	MinioRegion   string `mapstructure:"minio_region"`
	URLExpiryMin  int    `mapstructure:"url_expiry_min"` // срок жизни presigned URL
}

// RateLimitConfig содержит настройки ограничения частоты игровых запросов
type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	StartPerMin   int  `mapstructure:"start_per_min"`
	SubmitPerMin  int  `mapstructure:"submit_per_min"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

// LogConfig содержит настройки логирования
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // пусто - только stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// CORSConfig содержит список разрешённых источников фронтенда
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения для lib/pq и golang-migrate
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Timeout возвращает таймаут запроса к сервису эмбеддингов
func (s *ScorerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// CacheTTL возвращает время жизни кешированных эмбеддингов
func (s *ScorerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLHours) * time.Hour
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 30)

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.log_level", "warn")
	vip.SetDefault("database.migrations_dir", "migrations")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")

	// Правила игры: максимум 20 + 2*40 + 2*50 = 200 очков
	vip.SetDefault("game.easy.count", 1)
	vip.SetDefault("game.easy.threshold", 70.0)
	vip.SetDefault("game.easy.weight", 20)
	vip.SetDefault("game.medium.count", 2)
	vip.SetDefault("game.medium.threshold", 75.0)
	vip.SetDefault("game.medium.weight", 40)
	vip.SetDefault("game.hard.count", 2)
	vip.SetDefault("game.hard.threshold", 85.0)
	vip.SetDefault("game.hard.weight", 50)
	vip.SetDefault("game.start_lock_ttl", 10)
	vip.SetDefault("game.leaderboard_cache_ttl", 30)

	vip.SetDefault("scorer.base_url", "http://localhost:8081/v1")
	vip.SetDefault("scorer.model", "sentence-transformers/all-MiniLM-L6-v2")
	vip.SetDefault("scorer.timeout_sec", 10)
	vip.SetDefault("scorer.rate_per_second", 20.0)
	vip.SetDefault("scorer.burst", 10)
	vip.SetDefault("scorer.cache_ttl_hours", 168)
	vip.SetDefault("scorer.cache_key_prefix", "emb")

	vip.SetDefault("storage.type", "local")
	vip.SetDefault("storage.local_dir", "static")
	vip.SetDefault("storage.public_prefix", "/static")
	vip.SetDefault("storage.url_expiry_min", 60)
	vip.SetDefault("storage.minio_region", "us-east-1")

	vip.SetDefault("rate_limit.enabled", true)
	vip.SetDefault("rate_limit.start_per_min", 10)
	vip.SetDefault("rate_limit.submit_per_min", 30)
	vip.SetDefault("rate_limit.window_seconds", 60)

	vip.SetDefault("log.level", "info")
	vip.SetDefault("log.max_size_mb", 100)
	vip.SetDefault("log.max_backups", 5)
	vip.SetDefault("log.max_age_days", 30)

	vip.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	setDefaults(vip)

	// 2. Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("scorer.base_url", "SCORER_BASE_URL")
	vip.BindEnv("scorer.api_key", "SCORER_API_KEY")
	vip.BindEnv("scorer.model", "SCORER_MODEL")

	vip.BindEnv("storage.type", "STORAGE_TYPE")
	vip.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	vip.BindEnv("storage.minio_access_id", "MINIO_ACCESS_ID")
	vip.BindEnv("storage.minio_secret", "MINIO_SECRET")
	vip.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("log.level", "LOG_LEVEL")
	vip.BindEnv("log.file", "LOG_FILE")

	// 3. Читаем файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_ADDRS приходит из окружения одной строкой через запятую
	if len(cfg.Redis.Addrs) == 1 && strings.Contains(cfg.Redis.Addrs[0], ",") {
		cfg.Redis.Addrs = strings.Split(cfg.Redis.Addrs[0], ",")
	}

	// 5. Проверка обязательных параметров
	if err := cfg.Validate(os.Getenv("GIN_MODE")); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные параметры и правила игры
func (c *Config) Validate(ginMode string) error {
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	// В release-режиме пароль БД обязателен
	if ginMode == "release" && c.Database.Password == "" {
		return fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
	}
	if c.Scorer.BaseURL == "" || c.Scorer.Model == "" {
		return fmt.Errorf("scorer base_url and model are required (check SCORER_BASE_URL, SCORER_MODEL env vars)")
	}

	stages := map[string]StageRules{"easy": c.Game.Easy, "medium": c.Game.Medium, "hard": c.Game.Hard}
	for name, rules := range stages {
		if rules.Count < 1 {
			return fmt.Errorf("game.%s.count must be at least 1, got %d", name, rules.Count)
		}
		if rules.Threshold < 0 || rules.Threshold > 100 {
			return fmt.Errorf("game.%s.threshold must be within [0, 100], got %.2f", name, rules.Threshold)
		}
		if rules.Weight < 0 {
			return fmt.Errorf("game.%s.weight must not be negative, got %d", name, rules.Weight)
		}
	}

	switch c.Storage.Type {
	case "local":
	case "minio":
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioBucket == "" {
			return fmt.Errorf("minio storage requires minio_endpoint and minio_bucket")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	return nil
}
