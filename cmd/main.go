package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/snakr/snakr-api/auth"
	"github.com/snakr/snakr-api/config"
	"github.com/snakr/snakr-api/db"
	"github.com/snakr/snakr-api/events"
	"github.com/snakr/snakr-api/handlers"
	"github.com/snakr/snakr-api/middleware"
	"github.com/snakr/snakr-api/repositories"
	api "github.com/snakr/snakr-api/routes"
	"github.com/snakr/snakr-api/services"
	"github.com/snakr/snakr-api/storage"
)

const (
	expirySweepInterval    = time.Hour        // помечает просроченные приглашения
	limiterCleanupInterval = 5 * time.Minute  // чистит истёкшие окна rate limiter'а
	shutdownTimeout        = 15 * time.Second // предел graceful shutdown
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Хранилище изображений чеков (Cloudflare R2). Без конфигурации R2
	// сервис работает, но загрузка чеков отвечает 422.
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewR2Uploader(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured, receipt uploads disabled")
	}

	// WebSocket Hub для live-ленты событий
	wsHub := events.NewHub(logger)
	go wsHub.Run()
	logger.Info("event feed hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	householdRepo := repositories.NewPostgresHouseholdRepository(dbConn)
	memberRepo := repositories.NewPostgresMemberRepository(dbConn)
	invitationRepo := repositories.NewPostgresInvitationRepository(dbConn)
	itemRepo := repositories.NewPostgresItemRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	receiptRepo := repositories.NewPostgresReceiptRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	accessService := services.NewAccessService(memberRepo)
	emailService := services.NewEmailService(cfg, logger)
	eventService := services.NewEventService(eventRepo, accessService, wsHub, logger)
	householdService := services.NewHouseholdService(householdRepo, memberRepo, accessService, logger)
	invitationService := services.NewInvitationService(
		invitationRepo,
		householdRepo,
		memberRepo,
		userRepo,
		accessService,
		emailService,
		cfg.WebAppURL,
		logger,
	)
	itemService := services.NewItemService(itemRepo, accessService, eventService, logger)
	receiptService := services.NewReceiptService(receiptRepo, accessService, uploader, eventService, logger)
	logger.Info("services initialized")

	// Проверка токенов и rate limiter
	verifier := auth.NewVerifier(cfg.JWTSecretKey)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	// Инициализация обработчиков HTTP
	handlers.Init(logger, cfg.IsDevelopment())
	routeHandlers := api.Handlers{
		Health:     handlers.NewHealthHandler(dbConn),
		Household:  handlers.NewHouseholdHandler(householdService),
		Invitation: handlers.NewInvitationHandler(invitationService),
		Item:       handlers.NewItemHandler(itemService),
		Event:      handlers.NewEventHandler(eventService, accessService, wsHub, logger),
		Receipt:    handlers.NewReceiptHandler(receiptService),
	}

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg, verifier, limiter, logger, routeHandlers)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(rootCtx)

	group.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Фоновая зачистка просроченных приглашений. Операция идемпотентна,
	// поэтому сбой одного прохода просто переносит работу на следующий.
	group.Go(func() error {
		ticker := time.NewTicker(expirySweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := invitationRepo.ExpireOverdue(ctx)
				if err != nil {
					logger.Error("invitation expiry sweep failed", slog.Any("error", err))
					continue
				}
				if n > 0 {
					logger.Info("invitations marked as expired", slog.Int64("count", n))
				}
			}
		}
	})

	group.Go(func() error {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	})

	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return err
		}
		logger.Info("server shutdown complete")
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("application exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}
