package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/auth"
	"github.com/SAP-F-2025/exam-attempt-service/internal/cache"
	"github.com/SAP-F-2025/exam-attempt-service/internal/config"
	"github.com/SAP-F-2025/exam-attempt-service/internal/events"
	"github.com/SAP-F-2025/exam-attempt-service/internal/handlers"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-attempt-service/internal/services"
	"github.com/SAP-F-2025/exam-attempt-service/internal/utils"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
	"github.com/SAP-F-2025/exam-attempt-service/pkg"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.LogError(err, "Server stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger) error {
	log := logger.Slog()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := pkg.Migrate(db); err != nil {
		return err
	}

	cacheService := cache.NewNoopCache()
	if cfg.CacheEnabled {
		client, err := pkg.NewRedisClient(cfg)
		if err != nil {
			// the exam list falls back to the database
			logger.Warn("Redis unavailable, caching disabled", "error", err)
		} else {
			defer client.Close()
			cacheService = cache.NewRedisCache(client, log)
		}
	}

	publisher, err := cfg.Events.CreateEventPublisher(log)
	if err != nil {
		logger.Error("Failed to create event publisher, falling back to mock", "error", err)
		publisher = events.NewMockEventPublisher(log)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	repo := postgres.NewRepository(db)
	v := validator.New()
	if cfg.UsesDevSecret() {
		logger.Warn("JWT_SECRET is not set, signing tokens with the development secret")
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	attemptService := services.NewAttemptService(repo, publisher, v, log)
	examService := services.NewExamService(repo, cacheService, cfg.CacheTTL, publisher, v, log)
	questionService := services.NewQuestionService(repo, v, log)
	importExportService := services.NewImportExportService(repo, v, log)
	authService := services.NewAuthService(repo, tokens, v, log)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		cancel()
		if err != nil {
			return err
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handlers.NewHandlerManager(handlers.Dependencies{
		Auth:           handlers.NewAuthHandler(authService, logger),
		Attempts:       handlers.NewAttemptHandler(attemptService, logger),
		Exams:          handlers.NewExamHandler(examService, importExportService, logger),
		Questions:      handlers.NewQuestionHandler(questionService, importExportService, logger),
		Tokens:         tokens,
		Health:         repo,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	}).SetupRoutes(router)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", utils.RequestIDHeader},
		ExposedHeaders:   []string{utils.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
