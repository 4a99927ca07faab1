// Package api serves aggregated training results over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eisim-progress/internal/aggregate"
	"eisim-progress/internal/api/handlers"
	"eisim-progress/internal/api/middleware"
	"eisim-progress/internal/data"
	"eisim-progress/internal/logger"
)

// Options configures the HTTP server.
type Options struct {
	ResultsDir     string
	Parser         *aggregate.Parser
	Cache          *data.ResultsCache
	CacheKey       string
	Window         int
	AllowedOrigins []string
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	log := logger.OrNop(opts.Logger)
	router := gin.New()
	router.Use(middleware.Logger(log.Named("http")))
	router.Use(middleware.ErrorHandler(log))

	results := handlers.NewResultsHandler(handlers.ResultsConfig{
		Dir:      opts.ResultsDir,
		Parser:   opts.Parser,
		Cache:    opts.Cache,
		CacheKey: opts.CacheKey,
		Window:   opts.Window,
		Logger:   log.Named("results"),
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.GET("/results", results.GetResults)
		api.GET("/scenarios/:name", results.GetScenario)
		api.GET("/scenarios/:name/trend", results.GetTrend)
		api.GET("/scenarios/:name/rank", results.RankAgents)
		api.POST("/reload", results.Reload)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}

// NewHandler returns the router wrapped in CORS handling.
func NewHandler(opts Options) http.Handler {
	return middleware.CORS(NewRouter(opts), opts.AllowedOrigins)
}
