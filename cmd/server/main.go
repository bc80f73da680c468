package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/bdavis/diamond-dfs/internal/api"
	"github.com/bdavis/diamond-dfs/internal/api/middleware"
	"github.com/bdavis/diamond-dfs/internal/estimators"
	"github.com/bdavis/diamond-dfs/internal/identity"
	"github.com/bdavis/diamond-dfs/internal/projections"
	"github.com/bdavis/diamond-dfs/internal/providers"
	"github.com/bdavis/diamond-dfs/internal/services"
	"github.com/bdavis/diamond-dfs/pkg/config"
	"github.com/bdavis/diamond-dfs/pkg/database"
	applog "github.com/bdavis/diamond-dfs/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	logger := applog.InitLogger("", cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	cacheService := services.NewCacheService(redisClient)

	// Identity resolution
	store := identity.NewStore(db, logger)
	registry := identity.NewRegistry(store, logger)
	resolver := identity.NewResolver(registry, logger)

	// Providers
	statsClient := providers.NewStatsAPIClient(providers.StatsAPIOptions{
		BaseURL:          cfg.StatsAPIBaseURL,
		Timeout:          cfg.StatsAPITimeout,
		RateLimit:        cfg.StatsAPIRateLimit,
		CacheTTL:         cfg.StatsCacheTTL,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		BreakerTimeout:   cfg.CircuitBreakerTimeout,
	}, cacheService, logger)
	salaryClient := providers.NewSalaryFeedClient(cfg.SalaryAPIBaseURL, logger)

	// Projection pipeline
	estimatorSet := estimators.NewSet(statsClient, logger)
	multipliers := projections.Multipliers{
		BatterCeiling:  cfg.BatterCeilingMult,
		BatterFloor:    cfg.BatterFloorMult,
		PitcherCeiling: cfg.PitcherCeilingMult,
		PitcherFloor:   cfg.PitcherFloorMult,
	}
	aggregator := projections.NewAggregator(estimatorSet, multipliers, cfg.EstimatorTimeout, logger)

	collector := services.NewCollectorService(db, cacheService, logger, salaryClient, resolver, registry, store, aggregator, cfg.CurrentSeason, cfg.StrictMatchThreshold)
	if cfg.EnableBackgroundJobs {
		if err := collector.Start(cfg.CollectionSchedule); err != nil {
			logrus.Errorf("Failed to start collector: %v", err)
		}
		defer collector.Stop()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, cacheService, collector, resolver, registry, cfg.MatchThreshold, cfg.StrictMatchThreshold)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
