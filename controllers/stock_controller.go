package controllers

import (
	"net/http"
	"strconv"
	"time"

	"stock_data_backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StockController handles the read endpoints over profiles, price
// series and sync history. These are thin queries: all data is
// produced by the background pipeline.
type StockController struct {
	db *gorm.DB
}

// NewStockController creates a new stock controller
func NewStockController(db *gorm.DB) *StockController {
	return &StockController{db: db}
}

// GetStocks returns a paginated list of stock profiles
// GET /api/v1/stocks?page=1&page_size=50&active=true
func (sc *StockController) GetStocks(c *gin.Context) {
	page, pageSize := pagination(c)

	query := sc.db.Model(&models.StockProfile{})
	if c.Query("active") == "true" {
		query = query.Where("is_actively_trading = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count stocks"})
		return
	}

	var stocks []models.StockProfile
	err := query.Order("symbol ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&stocks).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stocks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      stocks,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetStock returns a single stock profile by symbol
// GET /api/v1/stocks/:symbol
func (sc *StockController) GetStock(c *gin.Context) {
	symbol := c.Param("symbol")

	var stock models.StockProfile
	if err := sc.db.Where("symbol = ?", symbol).First(&stock).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stock"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stock})
}

// GetMinuteBars returns intraday minute bars for a symbol, ascending
// GET /api/v1/stocks/:symbol/minute-bars?since=2024-06-03T09:30:00Z&limit=500
func (sc *StockController) GetMinuteBars(c *gin.Context) {
	symbol := c.Param("symbol")
	limit := clampLimit(c.DefaultQuery("limit", "500"))

	query := sc.db.Where("symbol = ?", symbol)
	if since, ok := parseSince(c.Query("since")); ok {
		query = query.Where("time >= ?", since)
	}

	var bars []models.MinuteBar
	if err := query.Order("time ASC").Limit(limit).Find(&bars).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch minute bars"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bars, "count": len(bars)})
}

// GetDailyIndicators returns daily price+indicator rows for a symbol
// GET /api/v1/stocks/:symbol/daily-indicators?since=2024-01-01T00:00:00Z
func (sc *StockController) GetDailyIndicators(c *gin.Context) {
	symbol := c.Param("symbol")
	limit := clampLimit(c.DefaultQuery("limit", "500"))

	query := sc.db.Where("symbol = ?", symbol)
	if since, ok := parseSince(c.Query("since")); ok {
		query = query.Where("time >= ?", since)
	}

	var rows []models.DailyIndicator
	if err := query.Order("time ASC").Limit(limit).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch daily indicators"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

// GetSyncRuns returns recent pipeline pass history, newest first
// GET /api/v1/sync/runs?limit=50
func (sc *StockController) GetSyncRuns(c *gin.Context) {
	limit := clampLimit(c.DefaultQuery("limit", "50"))

	var runs []models.SyncRun
	if err := sc.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs, "count": len(runs)})
}

// pagination reads and clamps page/page_size query params
func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return page, pageSize
}

// clampLimit parses a row limit, capped at 5000
func clampLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 500
	}
	if limit > 5000 {
		return 5000
	}
	return limit
}

// parseSince parses an RFC3339 lower bound if present
func parseSince(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return since, true
}
