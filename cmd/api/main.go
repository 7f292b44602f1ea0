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
	"syscall"
	"time"

	"travelbooking/internal/api"
	"travelbooking/internal/auth"
	"travelbooking/internal/config"
	"travelbooking/internal/database"
	"travelbooking/internal/domain"
	"travelbooking/internal/events"
	"travelbooking/internal/export"
	"travelbooking/internal/google"
	"travelbooking/internal/logging"
	"travelbooking/internal/metrics"
	"travelbooking/internal/models"
	"travelbooking/internal/notify"
	"travelbooking/internal/payment"
	"travelbooking/internal/repository"
	"travelbooking/internal/service"
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
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	gateway, err := payment.New(cfg.Payment, logging.Component(&logger, "payment"))
	if err != nil {
		logger.Error().Err(err).Msg("init payment gateway")
		return err
	}

	bus := events.NewEventBus(logging.Component(&logger, "events"))
	notifier := initNotifier(ctx, cfg, bus, &logger)

	tasks := worker.NewTaskWorker(db, redisClient, worker.OptionsFromConfig(cfg.Worker, notifier), logging.Component(&logger, "worker"))
	tasks.RegisterBookingHandlers(db, gateway)
	sheetsService := initGoogleSheets(ctx, cfg, &logger)
	if sheetsService != nil {
		tasks.Handle(models.TaskTypeSheetsSync, worker.SheetsSyncHandler(db, sheetsService))
	}
	if cfg.Worker.InProcess {
		go tasks.Start(ctx)
	}

	gate := auth.NewGate(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	svc := api.Services{
		Users:    service.NewUserService(db, gate, cfg.Auth.BcryptCost, logging.Component(&logger, "users")),
		Packages: service.NewPackageService(db, logging.Component(&logger, "packages")),
		Bookings: service.NewBookingService(service.BookingDeps{
			Ledger:   db,
			Bookings: db,
			Packages: db,
			Users:    db,
			Gateway:  gateway,
			Events:   bus,
			Tasks:    tasks,
		}, service.BookingOptions{
			AdminOverrideIgnoresStock: cfg.Booking.AdminOverrideIgnoresStock,
			Currency:                  cfg.Payment.Currency,
			SyncSheets:                sheetsService != nil,
		}, logging.Component(&logger, "bookings")),
		Analytics: service.NewAnalyticsService(db, db, logging.Component(&logger, "analytics")),
		Exporter:  export.NewExporter(cfg.Exports.Path, logging.Component(&logger, "export")),
	}

	idem := initIdempotencyStore(redisClient, &logger)
	httpServer := api.NewHTTPServer(cfg.API, svc, gate, idem, logging.Component(&logger, "http"))

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, svc, gate, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
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
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if cfg.Seed.PackagesFile == "" {
		return db, nil
	}
	packages, err := database.LoadPackagesFile(cfg.Seed.PackagesFile)
	if err != nil {
		db.Close()
		logger.Error().Err(err).Str("packages_file", cfg.Seed.PackagesFile).Msg("load package catalog")
		return nil, err
	}
	if _, _, err := db.SeedPackages(ctx, packages); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initIdempotencyStore prefers redis and falls back to process memory while it is down.
func initIdempotencyStore(redisClient *redis.Client, logger *zerolog.Logger) domain.IdempotencyStore {
	memory := repository.NewMemoryStore()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverStore(repository.NewRedisStore(redisClient), memory, logging.Component(logger, "idempotency"))
}

func initNotifier(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) domain.Notifier {
	if cfg.Telegram.BotToken == "" {
		return nil
	}
	notifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminChatIDs, cfg.Telegram.Debug,
		logging.Component(logger, "telegram"))
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return nil
	}
	notifier.Subscribe(bus)
	go notifier.Run(ctx)
	return notifier
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Bool("grpc", grpcServer != nil).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
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
