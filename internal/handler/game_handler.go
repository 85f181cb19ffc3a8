package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/promptgame-api/internal/handler/dto"
	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
	"github.com/yourusername/promptgame-api/pkg/logger"
)

// GameService - операции игровой сессии, которые нужны обработчикам
type GameService interface {
	Start(ctx context.Context, displayName string) (*dto.StageImagesResponse, error)
	NextStage(ctx context.Context, sessionID string) (*dto.StageImagesResponse, error)
	SubmitStage(ctx context.Context, sessionID string, items []dto.SubmitItem) (*dto.StageResultResponse, error)
	Status(ctx context.Context, sessionID string) (*dto.StatusResponse, error)
}

// GameHandler обрабатывает запросы игровой сессии
type GameHandler struct {
	gameService GameService
}

// NewGameHandler создает новый GameHandler
func NewGameHandler(gameService GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// Start начинает игру или возобновляет активную сессию
// POST /api/start
func (h *GameHandler) Start(c *gin.Context) {
	var req dto.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: display_name is required"})
		return
	}

	resp, err := h.gameService.Start(c.Request.Context(), req.DisplayName)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// NextStage возвращает изображения текущего этапа
// GET /api/session/:id/next_stage
func (h *GameHandler) NextStage(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(string)

	resp, err := h.gameService.NextStage(c.Request.Context(), sessionID)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitStage принимает промпты для всех изображений текущего этапа
// POST /api/session/:id/submit_stage
func (h *GameHandler) SubmitStage(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(string)

	var req dto.SubmitStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: items are required"})
		return
	}

	resp, err := h.gameService.SubmitStage(c.Request.Context(), sessionID, req.Items)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Status возвращает состояние сессии со всеми изображениями
// GET /api/session/:id/status
func (h *GameHandler) Status(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(string)

	resp, err := h.gameService.Status(c.Request.Context(), sessionID)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleGameError сопоставляет ошибки сервисов со статусами HTTP
func handleGameError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found."})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnavailable):
		logger.Log.Error("[GameHandler] Dependency unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
	default:
		logger.Log.Error("[GameHandler] Internal server error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
