package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edtech-market-scout/internal/scout/config"
	delivery "edtech-market-scout/internal/scout/delivery/http"
	"edtech-market-scout/internal/scout/repository"
	"edtech-market-scout/internal/scout/service"
	"edtech-market-scout/pkg/logger"
	"edtech-market-scout/pkg/postgres"
	"edtech-market-scout/pkg/redis"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the API service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting API Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(db.DB)
	logRepo := repository.NewSessionLogRepository(db.DB)
	companyRepo := repository.NewSessionCompanyRepository(db.DB)
	trendRepo := repository.NewTrendRepository(db.DB)
	aiRepo := repository.NewOpenAIRepository(cfg, appLogger)
	searchRepo := repository.NewTavilySearchRepository(cfg, appLogger)

	// Initialize services
	dispatcher := service.NewRedisDispatcher(cfg, appLogger, redisClient.Client)
	discoverySvc := service.NewDiscoveryService(cfg, appLogger, aiRepo, searchRepo)
	profilerSvc := service.NewProfilerService(cfg, appLogger, aiRepo, searchRepo, companyRepo)
	trendSvc := service.NewTrendService(cfg, appLogger, aiRepo, trendRepo)
	orchestrator := service.NewOrchestrator(cfg, appLogger, dispatcher, discoverySvc, profilerSvc, trendSvc, sessionRepo, logRepo, companyRepo)
	sessionSvc := service.NewSessionService(appLogger, sessionRepo, logRepo, companyRepo, trendRepo)

	// Start the stalled-session reaper
	reaper := service.NewReaper(cfg, appLogger, sessionRepo, logRepo)
	if err := reaper.Start(); err != nil {
		appLogger.Fatal("Failed to start reaper", logger.ErrorField(err))
	}
	defer reaper.Stop()

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	apiV1 := e.Group("/api/v1")
	if cfg.API.APIKey != "" {
		apiV1.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.API.APIKey, nil
			},
		}))
	}

	sessionHandler := delivery.NewSessionHandler(orchestrator, sessionSvc, appLogger)
	sessionHandler.RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "api-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-api.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing api-service CLI: %s\n", err)
		os.Exit(1)
	}
}
