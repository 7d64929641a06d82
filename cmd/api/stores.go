package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"timesheets/internal/config"
	"timesheets/internal/database"
	"timesheets/internal/repository"
	"timesheets/internal/repository/embedded"
	"timesheets/internal/service"
)

// stores is the persistence layer selected by database.driver.
type stores struct {
	identities    service.IdentityRepository
	directory     service.Directory
	refreshTokens service.RefreshTokenRepository
	resetTokens   service.ResetTokenRepository
	orders        service.WorkOrderRepository
	expenses      service.ExpenseRepository
	ping          func(ctx context.Context) error
	close         func()
}

func openStores(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*stores, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			identities:    repository.NewIdentityRepository(pool),
			directory:     repository.NewDirectoryRepository(pool),
			refreshTokens: repository.NewRefreshTokenRepository(pool),
			resetTokens:   repository.NewResetTokenRepository(pool),
			orders:        repository.NewWorkOrderRepository(pool),
			expenses:      repository.NewExpenseRepository(pool),
			ping:          pool.Ping,
			close:         pool.Close,
		}, nil

	case config.DriverSQLite:
		db, err := database.NewSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		if err := embedded.Migrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		logger.Info().Str("path", cfg.Database.SQLitePath).Msg("using embedded sqlite store")
		return &stores{
			identities:    embedded.NewIdentityRepository(db),
			directory:     embedded.NewDirectoryRepository(db),
			refreshTokens: embedded.NewRefreshTokenRepository(db),
			resetTokens:   embedded.NewResetTokenRepository(db),
			orders:        embedded.NewWorkOrderRepository(db),
			expenses:      embedded.NewExpenseRepository(db),
			ping:          sqlDB.PingContext,
			close:         func() { _ = sqlDB.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
