package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/workmarket/config"
)

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    *ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// shutdownWaitTimeout bounds HTTP drain when no shutdown timeout is configured.
const shutdownWaitTimeout = 15 * time.Second

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func newBackgroundServices(cfg *ServiceOrchestrationConfig) []backgroundService {
	svcs := cfg.Services
	metrics := svcs.Observability.MetricsSink
	return []backgroundService{
		{
			mode: config.ServiceModeVerifier,
			name: "verifier",
			start: func(ctx context.Context) error {
				return RunVerifier(ctx, svcs.Verifier)
			},
		},
		{
			mode: config.ServiceModeReaper,
			name: "reaper",
			start: func(ctx context.Context) error {
				return RunReaper(ctx, ReaperConfig{
					Market:  svcs.Market,
					Config:  cfg.Config.Reaper,
					Logger:  cfg.Logger,
					Metrics: metrics,
				})
			},
		},
		{
			mode: config.ServiceModeRedoEscalator,
			name: "redo escalator",
			start: func(ctx context.Context) error {
				return RunRedoEscalator(ctx, svcs.Redo)
			},
		},
	}
}

// selectBackground keeps the descriptors whose mode is enabled.
func selectBackground(enabled map[config.ServiceMode]bool, all []backgroundService) []backgroundService {
	out := make([]backgroundService, 0, len(all))
	for _, svc := range all {
		if enabled[svc.mode] {
			out = append(out, svc)
		}
	}
	return out
}

// RunServicesWithShutdown starts the enabled services and blocks until SIGINT,
// SIGTERM, ctx cancellation, or the first service failure. Every service is
// stopped before it returns.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("orchestration config with services is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
		cfg.Logger = logger
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := runDeps{
		logger:          logger,
		backgrounds:     selectBackground(enabled, newBackgroundServices(cfg)),
		shutdownTimeout: cfg.Config.HTTP.ShutdownTimeout,
	}
	if enabled[config.ServiceModeHTTP] {
		server, serveErr, startErr := StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
		if startErr != nil {
			return fmt.Errorf("start http server: %w", startErr)
		}
		run.server = server
		run.serveErr = serveErr
	}

	return runServices(sigCtx, run)
}

type runDeps struct {
	logger          *slog.Logger
	server          *http.Server
	serveErr        <-chan error
	backgrounds     []backgroundService
	shutdownTimeout time.Duration
}

// runServices supervises the HTTP server and background loops in one errgroup.
// The first failure cancels the group context, which stops everything else.
func runServices(ctx context.Context, deps runDeps) error {
	g, gctx := errgroup.WithContext(ctx)

	if deps.server != nil {
		g.Go(func() error {
			var serveErr error
			select {
			case <-gctx.Done():
			case err, ok := <-deps.serveErr:
				if ok && err != nil {
					serveErr = fmt.Errorf("http server failed: %w", err)
				}
			}
			timeout := deps.shutdownTimeout
			if timeout <= 0 {
				timeout = shutdownWaitTimeout
			}
			if err := ShutdownHTTPServer(ShutdownConfig{
				Context: ctx,
				Server:  deps.server,
				Timeout: timeout,
				Logger:  deps.logger,
			}); err != nil && serveErr == nil {
				serveErr = fmt.Errorf("http shutdown: %w", err)
			}
			return serveErr
		})
	}

	for _, svc := range deps.backgrounds {
		g.Go(func() error {
			deps.logger.InfoContext(gctx, "background service started", "service", svc.name, "mode", svc.mode)
			err := svc.start(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			deps.logger.Info(svc.name + " stopped")
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		deps.logger.Error("service error", "error", err)
	} else {
		deps.logger.Info("all services stopped")
	}
	return err
}
