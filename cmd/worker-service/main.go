package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/internal/scout/delivery/consumer"
	"edtech-market-scout/internal/scout/repository"
	"edtech-market-scout/internal/scout/service"
	"edtech-market-scout/pkg/common"
	"edtech-market-scout/pkg/logger"
	"edtech-market-scout/pkg/postgres"
	"edtech-market-scout/pkg/redis"

	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the worker service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
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

	appLogger.Info("Starting Worker Service", logger.Field("name", cfg.App.Name))

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

	// Create the consumer group if it doesn't exist
	// MKSTREAM creates the stream if it doesn't exist
	if err := redisClient.XGroupCreateMkStream(context.Background(), common.RedisStreamScoutSession, common.RedisStreamGroup, "0").Err(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
		}
	}

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

	// Start the consumer
	redisConsumer := consumer.NewRedisConsumer(cfg, redisClient.Client, orchestrator, appLogger)
	redisConsumer.Start(ctx)

	<-ctx.Done()

	appLogger.Info("Shutting down worker...")
	redisConsumer.Stop()
	appLogger.Info("Worker exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "worker-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-worker.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing worker-service CLI: %s\n", err)
		os.Exit(1)
	}
}
