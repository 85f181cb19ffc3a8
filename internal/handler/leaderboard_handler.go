package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
	"github.com/yourusername/promptgame-api/internal/handler/dto"
	"github.com/yourusername/promptgame-api/pkg/logger"
)

// LeaderboardService - чтение лидерборда
type LeaderboardService interface {
	GetLeaderboard(page, pageSize int) (*dto.PaginatedLeaderboardResponse, error)
	GetAll() ([]dto.LeaderboardEntryDTO, error)
}

// LeaderboardHandler обрабатывает запросы лидерборда
type LeaderboardHandler struct {
	leaderboardService LeaderboardService
}

// NewLeaderboardHandler создает новый LeaderboardHandler
func NewLeaderboardHandler(leaderboardService LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// GetLeaderboard возвращает страницу лидерборда
// GET /api/leaderboard?page=1&page_size=50
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page_size"})
		return
	}

	resp, err := h.leaderboardService.GetLeaderboard(page, pageSize)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportLeaderboard выгружает весь лидерборд в CSV или Excel
// GET /api/leaderboard/export?format=csv|xlsx
func (h *LeaderboardHandler) ExportLeaderboard(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported format, use csv or xlsx"})
		return
	}

	entries, err := h.leaderboardService.GetAll()
	if err != nil {
		handleGameError(c, err)
		return
	}

	filename := fmt.Sprintf("leaderboard_%s", time.Now().Format("2006-01-02"))
	if format == "xlsx" {
		h.exportXLSX(c, entries, filename)
		return
	}
	h.exportCSV(c, entries, filename)
}

var exportHeaders = []string{"Rank", "Player", "Score", "Result", "Eliminated at", "Started", "Completed"}

func exportRow(e dto.LeaderboardEntryDTO) []string {
	eliminatedAt := ""
	if e.EliminatedAt != nil {
		eliminatedAt = *e.EliminatedAt
	}
	completedAt := ""
	if e.CompletedAt != nil {
		completedAt = e.CompletedAt.UTC().Format(time.RFC3339)
	}
	result := "Eliminated"
	if e.State == entity.SessionStateCompleted {
		result = "Completed"
	}
	return []string{
		strconv.Itoa(e.Rank),
		sanitizeForExcel(e.DisplayName),
		strconv.FormatFloat(e.TotalScore, 'f', -1, 64),
		result,
		eliminatedAt,
		e.CreatedAt.UTC().Format(time.RFC3339),
		completedAt,
	}
}

// exportCSV выгружает лидерборд в CSV с правильным экранированием спецсимволов
func (h *LeaderboardHandler) exportCSV(c *gin.Context, entries []dto.LeaderboardEntryDTO, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for _, e := range entries {
		writer.Write(exportRow(e))
	}
}

// exportXLSX выгружает лидерборд в Excel через StreamWriter
func (h *LeaderboardHandler) exportXLSX(c *gin.Context, entries []dto.LeaderboardEntryDTO, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Leaderboard"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		logger.Log.Error("[LeaderboardHandler] Ошибка создания StreamWriter", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		logger.Log.Warn("[LeaderboardHandler] Ошибка записи заголовков", zap.Error(err))
	}

	for i, e := range entries {
		cells := exportRow(e)
		row := make([]interface{}, len(cells))
		for j, v := range cells {
			row[j] = v
		}
		// Числовые колонки пишем числами, чтобы по ним работала сортировка
		row[0] = e.Rank
		row[2] = e.TotalScore

		cell := fmt.Sprintf("A%d", i+2)
		if err := sw.SetRow(cell, row); err != nil {
			logger.Log.Warn("[LeaderboardHandler] Ошибка записи строки", zap.Int("row", i+2), zap.Error(err))
		}
	}

	if err := sw.Flush(); err != nil {
		logger.Log.Error("[LeaderboardHandler] Ошибка при Flush", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		logger.Log.Error("[LeaderboardHandler] Ошибка записи Excel в response", zap.Error(err))
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
