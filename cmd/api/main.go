package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"eisim-progress/internal/aggregate"
	"eisim-progress/internal/api"
	"eisim-progress/internal/config"
	"eisim-progress/internal/data"
	"eisim-progress/internal/logger"
	"eisim-progress/internal/metrics"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (default $"+config.EnvConfigFile+")")
	flag.Parse()

	cfg, err := config.LoadUnchecked(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	// Backwards compatible with the API_PORT variable of earlier deployments.
	if port := os.Getenv("API_PORT"); port != "" {
		cfg.API.Port = port
	}
	if err := cfg.ValidateAPI(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(os.Stderr, cfg.Log.Level)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewManager(metrics.WithRegistry(registry))

	parser := aggregate.NewParser(
		aggregate.WithMarker(cfg.Input.LogFolderMarker),
		aggregate.WithColumns(cfg.Input.CumulativeColumn, cfg.Input.PriceColumn),
		aggregate.WithWorkers(cfg.Parser.Workers),
		aggregate.WithLogger(log.Named("aggregate")),
		aggregate.WithMetrics(m),
	)

	var cache *data.ResultsCache
	if cfg.API.CacheTTL > 0 {
		cache = data.NewResultsCache(cfg.API.CacheTTL)
		go cache.RunCleanup(ctx, cfg.API.CacheTTL)
	}

	handler := api.NewHandler(api.Options{
		ResultsDir: cfg.API.ResultsDir,
		Parser:     parser,
		Cache:      cache,
		CacheKey: data.GenerateCacheKey(data.CacheKeyParams{
			Dir:              cfg.API.ResultsDir,
			Marker:           cfg.Input.LogFolderMarker,
			CumulativeColumn: cfg.Input.CumulativeColumn,
			PriceColumn:      cfg.Input.PriceColumn,
		}),
		Window:         cfg.Trend.WindowSize,
		AllowedOrigins: cfg.API.AllowedOrigins,
		Gatherer:       registry,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.API.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(context.Background(), "shutdown", logger.Error(err))
		}
	}()

	log.Info(ctx, "starting API server",
		logger.String("addr", srv.Addr),
		logger.String("results_dir", cfg.API.ResultsDir))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}
