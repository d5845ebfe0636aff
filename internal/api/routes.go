package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"neighborfit/server/internal/metrics"
)

// NewRouter builds the engine with CORS, request metrics and every route.
func NewRouter(handler *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware(), cors.New(corsConfig(allowedOrigins)))

	SetupRoutes(router, handler)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/neighborhoods", handler.ListNeighborhoods)
		api.POST("/neighborhoods", handler.CreateNeighborhood)
		api.POST("/neighborhoods/filter", handler.FilterNeighborhoods)
		api.POST("/neighborhoods/import", handler.ImportNeighborhoods)
		api.POST("/neighborhoods/update-coordinates", handler.UpdateCoordinates)
		api.GET("/neighborhoods/top/:dimension", handler.TopByDimension)
		api.GET("/neighborhoods/search", handler.SearchNeighborhoods)
		api.GET("/neighborhoods/bounds", handler.FindInBounds)
		api.GET("/neighborhoods/location", handler.FindByLocation)
		api.GET("/neighborhoods/stats", handler.GetStatistics)
		api.GET("/neighborhoods/geojson", handler.GetGeoJSON)
		api.GET("/neighborhoods/:id", handler.GetNeighborhood)
		api.PUT("/neighborhoods/:id", handler.UpdateNeighborhood)
		api.PATCH("/neighborhoods/:id/scores", handler.UpdateScores)
		api.DELETE("/neighborhoods/:id", handler.DeactivateNeighborhood)
	}
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
		cfg.AllowCredentials = true
	}
	return cfg
}
