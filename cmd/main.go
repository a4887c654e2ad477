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

	"github.com/kuanyshev/lastman-system/cache"
	"github.com/kuanyshev/lastman-system/config"
	"github.com/kuanyshev/lastman-system/db"
	"github.com/kuanyshev/lastman-system/handlers"
	"github.com/kuanyshev/lastman-system/live"
	"github.com/kuanyshev/lastman-system/middleware"
	"github.com/kuanyshev/lastman-system/models"
	"github.com/kuanyshev/lastman-system/repositories"
	api "github.com/kuanyshev/lastman-system/routes"
	"github.com/kuanyshev/lastman-system/services"
	"github.com/kuanyshev/lastman-system/storage"
)

const (
	pickLockInterval = 30 * time.Second
	gameweekInterval = 15 * time.Minute
	resultsInterval  = 2 * time.Minute
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

	// Инициализация загрузчика файлов (Cloudflare R2)
	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	competitionRepo := repositories.NewPostgresCompetitionRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	pickRepo := repositories.NewPostgresPickRepository(dbConn)
	fixtureRepo := repositories.NewPostgresFixtureRepository(dbConn)
	gameweekRepo := repositories.NewPostgresGameweekRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	paymentRepo := repositories.NewPostgresPaymentRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	roundCache := cache.NewTTLRoundCache(cfg.RoundCacheTTL)
	roundService := services.NewRoundService(
		roundRepo,
		competitionRepo,
		gameweekRepo,
		fixtureRepo,
		teamRepo,
		roundCache,
		services.ClassifierConfig{
			Window:  cfg.SelectionWindow,
			Horizon: cfg.SelectionHorizon,
		},
	)
	pickService := services.NewPickService(
		pickRepo,
		roundRepo,
		competitionRepo,
		gameweekRepo,
		teamRepo,
		wsHub,
		logger,
	)
	resultService := services.NewResultService(
		dbConn, // For elimination + mark-processed transactions
		fixtureRepo,
		gameweekRepo,
		competitionRepo,
		roundRepo,
		teamRepo,
		pickRepo,
		wsHub,
		logger,
	)
	gameweekService := services.NewGameweekService(dbConn, gameweekRepo, competitionRepo, wsHub, logger)
	competitionService := services.NewCompetitionService(competitionRepo, paymentRepo, roundService, cloudflareUploader, logger)
	teamService := services.NewTeamService(teamRepo, cloudflareUploader, logger)
	logger.Info("Services initialized")

	// Запуск планировщиков фоновых задач
	startScheduler(logger, "pick lock", pickLockInterval, func(ctx context.Context) error {
		_, err := pickService.LockExpiredPicks(ctx)
		return err
	})
	startScheduler(logger, "results", resultsInterval, func(ctx context.Context) error {
		_, err := resultService.ProcessResults(ctx)
		if errors.Is(err, services.ErrJobAlreadyRunning) {
			return nil
		}
		return err
	})
	startScheduler(logger, "gameweek status", gameweekInterval, func(ctx context.Context) error {
		return updateActiveGameweeks(ctx, logger, competitionRepo, gameweekService)
	})

	// Инициализация обработчиков HTTP
	authenticator := middleware.NewAuthenticator(cfg.JWTSecretKey)
	competitionHandler := handlers.NewCompetitionHandler(competitionService)
	roundHandler := handlers.NewRoundHandler(roundService)
	pickHandler := handlers.NewPickHandler(pickService)
	teamHandler := handlers.NewTeamHandler(teamService)
	cronHandler := handlers.NewCronHandler(gameweekService, resultService, pickService)
	liveHandler := handlers.NewLiveHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authenticator,
		cfg.CronSecret,
		competitionHandler,
		roundHandler,
		pickHandler,
		teamHandler,
		cronHandler,
		liveHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}

// startScheduler запускает периодическую задачу: один прогон сразу на
// старте, дальше по тикеру.
func startScheduler(logger *slog.Logger, name string, interval time.Duration, run func(ctx context.Context) error) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		logger.Info("scheduler started", slog.String("job", name), slog.Duration("interval", interval))

		if err := run(context.Background()); err != nil {
			logger.Error("scheduler: initial run failed", slog.String("job", name), slog.Any("error", err))
		}

		for range ticker.C {
			if err := run(context.Background()); err != nil {
				logger.Error("scheduler: periodic run failed", slog.String("job", name), slog.Any("error", err))
			}
		}
	}()
}

// updateActiveGameweeks обновляет флаги игровых недель каждой пары
// лига/сезон, встречающейся среди активных соревнований.
func updateActiveGameweeks(ctx context.Context, logger *slog.Logger, competitionRepo repositories.CompetitionRepository, gameweekService services.GameweekService) error {
	status := models.CompetitionActive
	competitions, err := competitionRepo.List(ctx, repositories.ListCompetitionsFilter{Status: &status})
	if err != nil {
		return err
	}

	type leagueSeason struct{ leagueID, season int }
	seen := make(map[leagueSeason]bool)
	for _, competition := range competitions {
		key := leagueSeason{competition.LeagueID, competition.Season}
		if seen[key] {
			continue
		}
		seen[key] = true

		// Ошибка одной пары не прерывает обход остальных.
		if _, err := gameweekService.UpdateGameweekStatus(ctx, key.leagueID, key.season); err != nil {
			if errors.Is(err, services.ErrJobAlreadyRunning) {
				continue
			}
			logger.Error("Failed to update gameweek status",
				slog.Int("league_id", key.leagueID),
				slog.Int("season", key.season),
				slog.Any("error", err),
			)
		}
	}
	return nil
}
