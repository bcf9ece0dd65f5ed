package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"geoestate/server/internal/engine"
	"geoestate/server/internal/queue"
)

func SetupRoutes(router *gin.Engine, eng *engine.Engine, q *queue.ListingQueue, logger *logrus.Logger) {
	handler := NewHandler(eng, q, logger)

	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/properties/nearby", handler.GetNearbyProperties)
		api.GET("/properties/search", handler.SearchProperties)
		api.POST("/properties", handler.CreateProperty)
		api.GET("/properties/:id/comparables", handler.GetComparables)
		api.POST("/properties/:id/investment", handler.EvaluateInvestment)
		api.GET("/neighborhoods", handler.GetNeighborhoods)
		api.GET("/neighborhoods/:name/stats", handler.GetNeighborhoodStats)
		api.POST("/search/polygon", handler.SearchByPolygon)
		api.GET("/analytics/heatmap", handler.GetHeatmap)
	}
}
