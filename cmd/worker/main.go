package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"travelbooking/internal/config"
	"travelbooking/internal/database"
	"travelbooking/internal/domain"
	"travelbooking/internal/google"
	"travelbooking/internal/logging"
	"travelbooking/internal/metrics"
	"travelbooking/internal/models"
	"travelbooking/internal/notify"
	"travelbooking/internal/payment"
	"travelbooking/internal/repository"
	"travelbooking/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, polling the database only")
			_ = redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	gateway, err := payment.New(cfg.Payment, logging.Component(&logger, "payment"))
	if err != nil {
		logger.Error().Err(err).Msg("init payment gateway")
		return err
	}

	alerts := initAlerts(cfg, &logger)
	tasks := worker.NewTaskWorker(db, redisClient, worker.OptionsFromConfig(cfg.Worker, alerts), logging.Component(&logger, "worker"))
	tasks.RegisterBookingHandlers(db, gateway)
	if sheetsService := initGoogleSheets(ctx, cfg, &logger); sheetsService != nil {
		tasks.Handle(models.TaskTypeSheetsSync, worker.SheetsSyncHandler(db, sheetsService))
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup"))
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Str("queue", cfg.Worker.QueueKey).Bool("redis", redisClient != nil).Msg("Task worker started")
	tasks.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "worker-main").Logger()
	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("create database directory")
		return err
	}
	if cfg.Backup.Enabled {
		if err := os.MkdirAll(cfg.Backup.StoragePath, 0o755); err != nil {
			logger.Error().Err(err).Msg("create backup directory")
			return err
		}
	}
	return nil
}

// initAlerts returns nil when no bot is configured; the worker then only logs failures.
func initAlerts(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.AdminChatIDs) == 0 {
		return nil
	}
	notifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminChatIDs, cfg.Telegram.Debug,
		logging.Component(logger, "telegram"))
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, task failures will only be logged")
		return nil
	}
	return notifier
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		logger.Info().Msg("google sheets not configured, sheets_sync tasks will be failed")
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed")
		return nil
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets row cache warm-up failed")
	}

	logger.Info().Msg("Google Sheets service initialized")
	return sheetsService
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
