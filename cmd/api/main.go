package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"timesheets/internal/cache"
	"timesheets/internal/config"
	"timesheets/internal/csrf"
	"timesheets/internal/handlers"
	"timesheets/internal/jobs"
	"timesheets/internal/log"
	"timesheets/internal/notify"
	"timesheets/internal/security"
	"timesheets/internal/server"
	"timesheets/internal/service"
	"timesheets/internal/storage"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a config file (defaults to ./config.yaml)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	db, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, rate limiting disabled")
			redisClient = nil
		}
	}

	publisher, closePublisher := newPublisher(cfg, redisClient, logger)
	notifier := notify.NewNotifier(publisher, logger)

	var receipts service.ReceiptStore
	if cfg.Storage.Endpoint != "" {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBuckets(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure buckets failed")
		}
		receipts = objectStore
	} else {
		logger.Warn().Msg("storage endpoint not set, receipt uploads disabled")
	}

	if cfg.Security.JWTAccessSecret == "" || cfg.Security.CSRFSecret == "" {
		logger.Warn().Msg("security secrets are empty, do not run like this outside development")
	}
	issuer := security.NewTokenIssuer(cfg.Security.JWTAccessSecret, cfg.Security.JWTAccessTTL)
	refreshTokens := service.NewRefreshTokenStore(db.refreshTokens, cfg.Security.RefreshTTL)
	guard := csrf.NewGuard(cfg.Security.CSRFSecret, cfg.Security.CSRFTTL)

	authService := service.NewAuthService(service.AuthDeps{
		Identities: db.identities,
		Directory:  db.directory,
		Refresh:    refreshTokens,
		Resets:     db.resetTokens,
		Issuer:     issuer,
		Hasher:     security.NewPasswordHasher(security.DefaultArgon2Params),
		Notifier:   notifier,
		ResetTTL:   cfg.Security.ResetTTL,
	}, logger)
	workOrders := service.NewWorkOrderService(service.WorkOrderDeps{
		Orders:         db.orders,
		Expenses:       db.expenses,
		Identities:     db.identities,
		Directory:      db.directory,
		Receipts:       receipts,
		Notifier:       notifier,
		MaxReceiptSize: cfg.Storage.MaxReceiptSize,
	}, logger)

	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		logger.Fatal().Err(err).Msg("failed to bootstrap admin")
	}

	registry := jobs.NewRegistry(logger.With().Str("component", "jobs").Logger())
	if err := jobs.RegisterHousekeeping(registry, cfg.Jobs, jobs.Housekeeping{
		RefreshTokens: refreshTokens,
		ResetTokens:   authService,
		CSRF:          guard,
		Reminders:     workOrders,
	}, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to register jobs")
	}

	handlerSet := handlers.NewHandlerSet(logger, handlers.Deps{
		Config:       cfg,
		Auth:         authService,
		WorkOrders:   workOrders,
		Directory:    service.NewDirectoryService(db.directory),
		Issuer:       issuer,
		Guard:        guard,
		Jobs:         registry,
		DatabasePing: db.ping,
		Cache:        redisClient,
	})
	httpServer, err := server.NewHTTPServer(cfg, logger, handlerSet)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build http server")
	}

	registry.Start()

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, registry, notifier, func() {
		closePublisher()
		db.close()
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("redis close error")
			}
		}
	})
}

// newPublisher falls back to logging events when the configured transport
// cannot be reached.
func newPublisher(cfg *config.AppConfig, redisClient *redis.Client, logger zerolog.Logger) (notify.Publisher, func()) {
	switch cfg.Notifications.Transport {
	case config.TransportRedis:
		if redisClient != nil {
			return notify.NewRedisStreamPublisher(redisClient, cfg.Notifications.Stream), func() {}
		}
		logger.Warn().Msg("redis unavailable, notifications will only be logged")
	case config.TransportAMQP:
		publisher, err := notify.NewAMQPPublisher(cfg.Notifications.AMQPURL, cfg.Notifications.Queue)
		if err == nil {
			return publisher, func() {
				if err := publisher.Close(); err != nil {
					logger.Error().Err(err).Msg("rabbitmq close error")
				}
			}
		}
		logger.Warn().Err(err).Msg("rabbitmq unavailable, notifications will only be logged")
	}
	return notify.NewLogPublisher(logger), func() {}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, registry *jobs.Registry, notifier *notify.Notifier, closeResources func()) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-registry.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("jobs still running at shutdown")
	}

	notifier.Wait()
	closeResources()

	logger.Info().Msg("server exited cleanly")
}
