// Command workmarket runs the job marketplace: the HTTP API plus the
// verifier, reaper and redo escalator loops selected by SERVICES.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/target/workmarket/config"
	"github.com/target/workmarket/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // process entrypoint
	}
	logger := bootstrap.InitLogger(cfg.Logging)
	if err := run(ctx, logger, &cfg); err != nil {
		logger.ErrorContext(ctx, "workmarket exited", "error", err)
		os.Exit(1) //nolint:forbidigo // process entrypoint
	}
}

// closeStack runs deferred closers in reverse order and logs failures.
type closeStack struct {
	logger *slog.Logger
	items  []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (s *closeStack) push(name string, fn func() error) {
	s.items = append(s.items, namedCloser{name: name, close: fn})
}

func (s *closeStack) closeAll(ctx context.Context) {
	for _, c := range slices.Backward(s.items) {
		if err := c.close(); err != nil {
			s.logger.ErrorContext(ctx, "close failed", "resource", c.name, "error", err)
		}
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) error {
	logger.InfoContext(ctx, "starting workmarket",
		"storage", cfg.Storage.Backend,
		"redis", cfg.Redis.Enabled,
		"auth_mode", cfg.Auth.Mode,
		"services", bootstrap.GetEnabledServices(cfg),
	)
	if err := bootstrap.ValidateServiceConfig(cfg); err != nil {
		return err
	}

	closers := &closeStack{logger: logger}
	defer closers.closeAll(ctx)

	db, rdb, err := connect(ctx, cfg, logger, closers)
	if err != nil {
		return err
	}

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:      cfg,
		DB:          db,
		RedisClient: rdb,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	closers.push("services", services.Close)

	if err := bootstrap.ReplayOnBoot(ctx, cfg, services, logger); err != nil {
		return err
	}

	return bootstrap.RunServicesWithShutdown(ctx, &bootstrap.ServiceOrchestrationConfig{
		Config:      cfg,
		Services:    services,
		DB:          db,
		RedisClient: rdb,
		Logger:      logger,
	})
}

// connect opens postgres when it is the storage backend (migrating it unless
// disabled) and redis when enabled. Either may come back nil.
//
//nolint:ireturn // redis topology decides the concrete client.
func connect(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
	closers *closeStack,
) (*sql.DB, redis.UniversalClient, error) {
	conn := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	var db *sql.DB
	if cfg.Storage.UsesPostgres() {
		var err error
		if db, err = bootstrap.ConnectDB(ctx, conn); err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
		closers.push("database", db.Close)

		if !cfg.Postgres.RunMigrationsOnStart {
			logger.InfoContext(ctx, "skipping database migrations on startup")
		} else if err := bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return nil, nil, err
		}
	}

	if !cfg.Redis.Enabled {
		return db, nil, nil
	}
	rdb, err := bootstrap.ConnectRedis(ctx, conn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closers.push("redis", rdb.Close)
	return db, rdb, nil
}
