package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/target/workmarket/config"
	"github.com/target/workmarket/internal/bootstrap"
)

// app carries what every subcommand needs. Tests swap loadConfig and open.
// A nil logger is replaced by the configured one on first use.
type app struct {
	out        io.Writer
	logger     *slog.Logger
	format     string
	loadConfig func() (config.AppConfig, error)
	open       func(ctx context.Context, a *app, cfg *config.AppConfig) (*session, error)
}

// session is an opened marketplace with its read model rebuilt from the log.
type session struct {
	cfg      *config.AppConfig
	services *bootstrap.ServiceContainer
	closers  []func() error
}

func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a := &app{
		out:        os.Stdout,
		loadConfig: bootstrap.LoadConfig,
		open:       openSession,
	}
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "workmarket-admin",
		Short:         "Operate a workmarket deployment from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&a.format, "output", "o", "table", "output format: table or json")

	root.AddCommand(
		newMigrateCmd(a),
		newReplayCmd(a),
		newStatsCmd(a),
		newBalanceCmd(a),
		newPurgeCmd(a),
		newResettleCmd(a),
		newReapCmd(a),
	)
	return root
}

// config loads configuration and installs the configured logger.
func (a *app) config() (*config.AppConfig, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if a.logger == nil {
		a.logger = bootstrap.InitLogger(cfg.Logging)
	}
	return &cfg, nil
}

// withSession opens the marketplace, runs fn, and closes everything it opened.
func (a *app) withSession(ctx context.Context, fn func(*session) error) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	s, err := a.open(ctx, a, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			a.logger.WarnContext(ctx, "close session", "error", cerr)
		}
	}()
	return fn(s)
}

// openSession connects storage, wires services, and replays the job log so the
// read model matches the durable state.
func openSession(ctx context.Context, a *app, cfg *config.AppConfig) (*session, error) {
	s := &session{cfg: cfg}

	db, rdb, err := connectInfra(ctx, a.logger, cfg)
	if err != nil {
		return nil, err
	}
	if db != nil {
		s.closers = append(s.closers, db.Close)
	}
	if rdb != nil {
		s.closers = append(s.closers, rdb.Close)
	}

	svcs, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:      cfg,
		DB:          db,
		RedisClient: rdb,
		Logger:      a.logger,
	})
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	s.services = svcs
	s.closers = append(s.closers, svcs.Close)

	if _, err := svcs.Market.Replay(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("replay job log: %w", err), s.Close())
	}
	return s, nil
}

// connectInfra connects postgres when it backs storage and redis when enabled.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectInfra(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, redis.UniversalClient, error) {
	dbCfg := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	var db *sql.DB
	if cfg.Storage.UsesPostgres() {
		var err error
		if db, err = bootstrap.ConnectDB(ctx, dbCfg); err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
	}
	if !cfg.Redis.Enabled {
		return db, nil, nil
	}
	rdb, err := bootstrap.ConnectRedis(ctx, dbCfg)
	if err != nil {
		if db != nil {
			err = errors.Join(err, db.Close())
		}
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return db, rdb, nil
}
