package routes

import (
	"stock_data_backend/controllers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB) {
	stockController := controllers.NewStockController(db)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Stock routes
		stocks := api.Group("/stocks")
		{
			stocks.GET("", stockController.GetStocks)
			stocks.GET("/:symbol", stockController.GetStock)
			stocks.GET("/:symbol/minute-bars", stockController.GetMinuteBars)
			stocks.GET("/:symbol/daily-indicators", stockController.GetDailyIndicators)
		}

		// Sync pipeline history
		sync := api.Group("/sync")
		{
			sync.GET("/runs", stockController.GetSyncRuns)
		}
	}
}
