// Package api exposes the forecast service over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cryptoForecast/internal/api/handlers"
	"cryptoForecast/internal/api/middleware"
	"cryptoForecast/internal/ports"
)

// Config holds router settings.
type Config struct {
	Env            string   // "production" switches gin to release mode
	AllowedOrigins []string // CORS origins, "*" when empty
}

// NewRouter builds the gin engine with every route and middleware attached.
// metricsHandler is mounted on /metrics when non-nil.
func NewRouter(
	cfg Config,
	svc handlers.ForecastService,
	logger ports.Logger,
	recorder middleware.HTTPRecorder,
	metricsHandler http.Handler,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger, recorder))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	forecastHandler := handlers.NewForecastHandler(svc)

	api := router.Group("/api/v1")
	{
		api.GET("/symbols", forecastHandler.ListSymbols)
		api.GET("/history/:symbol", forecastHandler.GetHistory)
		api.GET("/forecast/:symbol", forecastHandler.GetForecast)
		api.GET("/forecast/:symbol/csv", forecastHandler.DownloadForecast)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	})
	return router
}
