package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/workmarket/config"
	"github.com/target/workmarket/internal/adapters/reaper"
	"github.com/target/workmarket/internal/observability/statsd"
	"github.com/target/workmarket/internal/service"
)

// ReaperConfig contains configuration for the reaper runner.
type ReaperConfig struct {
	Market  *service.MarketService
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// RunReaper starts the stale-claim reaper.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		Market:  cfg.Market,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}
	return runner.Run(ctx)
}

// RunVerifier runs the verifier pool until ctx ends.
func RunVerifier(ctx context.Context, svc *service.VerificationService) error {
	if svc == nil {
		return errors.New("verification service is not configured")
	}
	return svc.Run(ctx)
}

// RunRedoEscalator runs the redo escalation loop until ctx ends.
func RunRedoEscalator(ctx context.Context, svc *service.RedoEscalator) error {
	if svc == nil {
		return errors.New("redo escalator is not configured")
	}
	return svc.Run(ctx)
}
