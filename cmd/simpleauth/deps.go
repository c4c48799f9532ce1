// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/simpleauth/simpleauth/internal/auth"
	authpg "github.com/simpleauth/simpleauth/internal/auth/postgres"
	"github.com/simpleauth/simpleauth/internal/settings"
	"github.com/simpleauth/simpleauth/internal/store"
)

// Deps contains injectable dependencies for the CLI commands. All nil
// fields fall back to their default implementations backed by a real
// PostgreSQL connection.
type Deps struct {
	// DatabaseURLGetter returns the database URL.
	// Default: reads from DATABASE_URL environment variable.
	DatabaseURLGetter func() string

	// MigratorFactory creates a migrator from a database URL.
	// Default: store.NewMigrator.
	MigratorFactory func(url string) (Migrator, error)

	// AdminFactory builds the administrative service. The returned
	// cleanup function releases the connection pool.
	AdminFactory func(ctx context.Context, cfg settings.Settings, logger *slog.Logger) (AdminAPI, func(), error)

	// AuthFactory builds the authentication service for credential checks.
	AuthFactory func(ctx context.Context, cfg settings.Settings, logger *slog.Logger) (AuthAPI, func(), error)

	// SweeperFactory builds the expired-session sweeper.
	SweeperFactory func(ctx context.Context, interval time.Duration, logger *slog.Logger, onSweep func(int64)) (SweepRunner, func(), error)

	// Pinger probes database connectivity for the status command.
	Pinger func(ctx context.Context, url string) error
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// AdminAPI interface wraps the methods used from auth.AdminService.
type AdminAPI interface {
	CreateUser(ctx context.Context, username, secret string, isAdmin bool) (*auth.User, string, error)
	ListUsers(ctx context.Context, skip, limit int) ([]*auth.User, error)
	LockAccount(ctx context.Context, userID ulid.ULID) error
	UnlockAccount(ctx context.Context, userID ulid.ULID) error
	ResetSecret(ctx context.Context, userID ulid.ULID, secret string) (string, error)
	DeleteUser(ctx context.Context, userID ulid.ULID) error
	ListLoginAttempts(ctx context.Context, filter auth.AttemptFilter) ([]*auth.LoginAttempt, error)
	RecentFailureCount(ctx context.Context, userID ulid.ULID) (int, error)
	GetSettings(ctx context.Context) (settings.Settings, error)
	UpdateSettings(ctx context.Context, newSettings settings.Settings) error
}

// AuthAPI interface wraps the methods used from auth.Service.
type AuthAPI interface {
	Login(ctx context.Context, username, secret string, meta auth.ClientMeta) (*auth.Session, string, error)
}

// SweepRunner interface wraps the methods used from auth.Sweeper.
type SweepRunner interface {
	SweepOnce(ctx context.Context) (int64, error)
	Run(ctx context.Context)
}

// withDefaults fills nil fields with production implementations.
func (d *Deps) withDefaults() *Deps {
	if d == nil {
		d = &Deps{}
	}
	if d.DatabaseURLGetter == nil {
		d.DatabaseURLGetter = func() string {
			return os.Getenv("DATABASE_URL")
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if d.AdminFactory == nil {
		d.AdminFactory = d.defaultAdminFactory
	}
	if d.AuthFactory == nil {
		d.AuthFactory = d.defaultAuthFactory
	}
	if d.SweeperFactory == nil {
		d.SweeperFactory = d.defaultSweeperFactory
	}
	if d.Pinger == nil {
		d.Pinger = func(ctx context.Context, url string) error {
			pool, err := store.Connect(ctx, url, slog.Default())
			if err != nil {
				return err
			}
			pool.Close()
			return nil
		}
	}
	return d
}

// requireDatabaseURL reads the database URL or fails with a config error.
func (d *Deps) requireDatabaseURL() (string, error) {
	url := d.DatabaseURLGetter()
	if url == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	return url, nil
}

// connectWithSettings opens a pool and returns the injected settings
// with any stored system settings overlaid on top.
func (d *Deps) connectWithSettings(ctx context.Context, cfg settings.Settings, logger *slog.Logger) (*pgxpool.Pool, settings.Settings, error) {
	url, err := d.requireDatabaseURL()
	if err != nil {
		return nil, cfg, err
	}

	pool, err := store.Connect(ctx, url, logger)
	if err != nil {
		return nil, cfg, err
	}

	effective := overlayStoredSettings(ctx, store.NewPostgresSettingsRepository(pool), cfg, logger)
	return pool, effective, nil
}

// settingsReader is the slice of the settings repository the overlay needs.
type settingsReader interface {
	GetAll(ctx context.Context) (map[string]string, error)
}

// overlayStoredSettings applies stored system settings on top of cfg.
// Falling back to cfg keeps the CLI usable against a partially migrated
// database, but the fallback is never silent.
func overlayStoredSettings(ctx context.Context, repo settingsReader, cfg settings.Settings, logger *slog.Logger) settings.Settings {
	stored, err := repo.GetAll(ctx)
	if err != nil {
		logger.Warn("could not read stored system settings, using configured values", "error", err)
		return cfg
	}
	overlaid, err := settings.FromMap(cfg, stored)
	if err != nil {
		logger.Warn("stored system settings are malformed, using configured values", "error", err)
		return cfg
	}
	return overlaid
}

// defaultAdminFactory connects a pool and assembles the admin service
// with the stored system settings overlaid on the injected base.
func (d *Deps) defaultAdminFactory(ctx context.Context, cfg settings.Settings, logger *slog.Logger) (AdminAPI, func(), error) {
	pool, effective, err := d.connectWithSettings(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	svc, err := auth.NewAdminService(
		authpg.NewTxManager(pool),
		authpg.NewUserRepository(pool),
		authpg.NewLoginAttemptRepository(pool),
		store.NewPostgresSettingsRepository(pool),
		auth.NewArgon2idHasher(effective.Argon2),
		auth.NewPassphraseGenerator(effective),
		effective,
		logger,
	)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return svc, pool.Close, nil
}

// defaultAuthFactory connects a pool and assembles the authentication
// service for one-shot credential verification.
func (d *Deps) defaultAuthFactory(ctx context.Context, cfg settings.Settings, logger *slog.Logger) (AuthAPI, func(), error) {
	pool, effective, err := d.connectWithSettings(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	svc, err := auth.NewService(
		authpg.NewTxManager(pool),
		authpg.NewUserRepository(pool),
		authpg.NewSessionRepository(pool),
		auth.NewArgon2idHasher(effective.Argon2),
		auth.NewPassphraseGenerator(effective),
		effective,
		logger,
	)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return svc, pool.Close, nil
}

// defaultSweeperFactory connects a pool and builds a session sweeper.
func (d *Deps) defaultSweeperFactory(ctx context.Context, interval time.Duration, logger *slog.Logger, onSweep func(int64)) (SweepRunner, func(), error) {
	url, err := d.requireDatabaseURL()
	if err != nil {
		return nil, nil, err
	}

	pool, err := store.Connect(ctx, url, logger)
	if err != nil {
		return nil, nil, err
	}

	sessions := authpg.NewSessionRepository(pool)
	return auth.NewSweeper(sessions, interval, logger, onSweep), pool.Close, nil
}
