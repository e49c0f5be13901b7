package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spamguardian/spam-guardian/internal/adapter/http/router"
	"github.com/spamguardian/spam-guardian/internal/adapter/repository/postgres"
	"github.com/spamguardian/spam-guardian/internal/adapter/repository/redis"
	"github.com/spamguardian/spam-guardian/internal/domain/repository"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/artifact"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/cache"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/config"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/database"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/logger"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/metrics"
	"github.com/spamguardian/spam-guardian/internal/pipeline"
	"github.com/spamguardian/spam-guardian/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	m := metrics.New(prometheus.DefaultRegisterer)

	store, err := artifact.NewStoreFromConfig(&cfg.Artifacts, m, log)
	if err != nil {
		return fmt.Errorf("failed to configure artifact source: %w", err)
	}
	loader := pipeline.NewLoader(pipeline.LoaderConfig{
		ModelPath:      cfg.Artifacts.ModelPath(),
		VectorizerPath: cfg.Artifacts.VectorizerPath(),
		Fetcher:        store,
	}, log)

	// Verdict history (optional)
	var (
		db          *gorm.DB
		verdictRepo repository.VerdictRepository
	)
	if cfg.Database.Enabled {
		db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Error("Failed to connect to database", zap.Error(err))
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("Connected to database")

		if err := database.AutoMigrate(db); err != nil {
			log.Error("Failed to run migrations", zap.Error(err))
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Database migrations completed")
		verdictRepo = postgres.NewVerdictRepository(db)
	}

	// Verdict cache (optional, continue without it)
	var (
		redisClient  *goredis.Client
		verdictCache repository.VerdictCache
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
			redisClient = nil
		} else {
			log.Info("Connected to Redis")
			verdictCache = redis.NewVerdictCache(redisClient, redis.DefaultKeyPrefix, cfg.Cache.TTL)
		}
	}

	classifyUC := usecase.NewClassifyUsecase(
		usecase.LoaderProvider{Loader: loader},
		verdictRepo,
		verdictCache,
		m,
		usecase.ClassifyOptions{MaxBatchSize: cfg.Classify.MaxBatchSize},
		log,
	)

	// Setup router
	r := router.Setup(router.Dependencies{
		DB:         db,
		Redis:      redisClient,
		ClassifyUC: classifyUC,
		Model:      loader,
		Gatherer:   prometheus.DefaultGatherer,
		Logger:     log,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	// Start server in goroutine
	go func() {
		log.Info("Starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Load the pipeline while the server answers health probes
	go func() {
		if _, err := loader.Load(ctx); err != nil {
			log.Error("Failed to load classification pipeline", zap.Error(err))
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case runErr = <-errCh:
		log.Error("Shutting down after fatal error", zap.Error(runErr))
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := database.Close(db); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Info("Server exited")
	return runErr
}
