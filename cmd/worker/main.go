package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"timesheets/internal/cache"
	"timesheets/internal/config"
	"timesheets/internal/log"
	"timesheets/internal/queue"
	"timesheets/internal/tasks"
)

type consumer interface {
	Start(ctx context.Context) error
}

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a config file (defaults to ./config.yaml)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor := tasks.NewProcessor(logger, tasks.NewLogDeliverer(logger))

	var source consumer
	switch cfg.Notifications.Transport {
	case config.TransportRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer client.Close()

		source = queue.NewStreamConsumer(client, queue.StreamOptions{
			Stream:        cfg.Notifications.Stream,
			Group:         cfg.Worker.Group,
			Consumer:      cfg.Worker.Consumer,
			ClaimInterval: cfg.Worker.ClaimInterval,
			Block:         cfg.Worker.BlockTimeout,
		}, logger, processor)
	case config.TransportAMQP:
		source = queue.NewAMQPConsumer(cfg.Notifications.AMQPURL, cfg.Notifications.Queue, logger, processor)
	default:
		logger.Info().Str("transport", cfg.Notifications.Transport).Msg("transport has no queue to consume, exiting")
		return
	}

	logger.Info().Str("transport", cfg.Notifications.Transport).Msg("notification worker started")
	if err := source.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
		return
	}
	logger.Info().Msg("shutdown signal received")
}
