package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourusername/promptgame-api/internal/config"
	"github.com/yourusername/promptgame-api/internal/domain/entity"
	"github.com/yourusername/promptgame-api/internal/handler"
	"github.com/yourusername/promptgame-api/internal/middleware"
	pgRepo "github.com/yourusername/promptgame-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/promptgame-api/internal/repository/redis"
	"github.com/yourusername/promptgame-api/internal/service"
	"github.com/yourusername/promptgame-api/internal/service/game"
	"github.com/yourusername/promptgame-api/internal/service/scoring"
	"github.com/yourusername/promptgame-api/pkg/database"
	"github.com/yourusername/promptgame-api/pkg/logger"
	"github.com/yourusername/promptgame-api/pkg/monitoring"
)

func main() {
	// .env необязателен: в Docker переменные приходят из окружения
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Init(logger.Options{Level: "info"}).Fatal("Failed to load config", zap.Error(err))
	}

	isProduction := os.Getenv("GIN_MODE") == "release"
	log := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Production: isProduction,
	})
	defer logger.Sync()
	log.Info("Конфигурация загружена", zap.String("path", configPath))

	// PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), cfg.Database.LogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsDir); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Redis
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := database.NewRedisClient(redisCtx, cfg.Redis)
	redisCancel()
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Репозитории
	userRepo := pgRepo.NewUserRepo(db)
	imageRepo := pgRepo.NewImageRepo(db)
	sessionRepo := pgRepo.NewSessionRepo(db)
	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Fatal("Failed to initialize CacheRepo", zap.Error(err))
	}

	// Оценка промптов: HTTP-клиент модели эмбеддингов с кешем в Redis
	var embedder scoring.Embedder = scoring.NewHTTPEmbedder(cfg.Scorer)
	if ttl := cfg.Scorer.CacheTTL(); ttl > 0 {
		embedder = scoring.NewCachedEmbedder(embedder, cacheRepo, ttl, cfg.Scorer.CacheKeyPrefix)
	}
	scorer := scoring.NewScorer(embedder)

	storageService, err := service.NewStorageService(cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Сервисы
	rules := game.NewRules(cfg.Game)
	leaderboardService := service.NewLeaderboardService(sessionRepo, cacheRepo,
		time.Duration(cfg.Game.LeaderboardCacheTTL)*time.Second)
	sessionService := service.NewSessionService(
		userRepo, sessionRepo, imageRepo, cacheRepo,
		scorer, storageService, leaderboardService, rules,
		time.Duration(cfg.Game.StartLockTTL)*time.Second,
	)

	if counts, err := imageRepo.CountActiveByLevel(); err != nil {
		log.Warn("Не удалось проверить каталог изображений", zap.Error(err))
	} else {
		for _, stage := range entity.PlayableStages() {
			level := stage.Level()
			need := rules.Count(stage)
			if counts[level] < int64(need) {
				log.Warn("В каталоге недостаточно активных изображений, новые сессии не будут созданы",
					zap.String("level", string(level)), zap.Int64("active", counts[level]), zap.Int("required", need))
			}
		}
	}

	// Обработчики
	gameHandler := handler.NewGameHandler(sessionService)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
	rateLimiter := middleware.NewRateLimiter(middleware.NewRedisWindowCounter(redisClient), cfg.RateLimit.Enabled)

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery(), gin.Logger(), monitoring.MetricsMiddleware())

	// В production не доверяем прокси-заголовкам (защита от IP spoofing в rate limiter)
	trusted := []string{"127.0.0.1", "::1"}
	if isProduction {
		trusted = nil
	}
	if err := router.SetTrustedProxies(trusted); err != nil {
		log.Warn("Failed to set trusted proxies", zap.Error(err))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Локальные изображения каталога
	if cfg.Storage.Type == "local" {
		router.Static(cfg.Storage.PublicPrefix, cfg.Storage.LocalDir)
	}

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "ok", "redis": "ok"}
		code := http.StatusOK
		if sqlDB, err := database.GetSQLDB(db); err != nil || sqlDB.PingContext(ctx) != nil {
			status["database"], status["status"], code = "unavailable", "degraded", http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			status["redis"], status["status"], code = "unavailable", "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	api := router.Group("/api")
	{
		api.POST("/start", rateLimiter.Limit(middleware.StartRateLimitConfig(cfg.RateLimit)), gameHandler.Start)

		sessionGroup := api.Group("/session/:id", middleware.ExtractUUIDParam("id", "sessionID"))
		{
			sessionGroup.GET("/next_stage", gameHandler.NextStage)
			sessionGroup.POST("/submit_stage",
				rateLimiter.Limit(middleware.SubmitRateLimitConfig(cfg.RateLimit)), gameHandler.SubmitStage)
			sessionGroup.GET("/status", gameHandler.Status)
		}

		api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		api.GET("/leaderboard/export", leaderboardHandler.ExportLeaderboard)
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		log.Warn("Error closing Redis client", zap.Error(err))
	}

	log.Info("Server exited properly")
}
