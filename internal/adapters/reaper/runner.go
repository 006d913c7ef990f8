// Package reaper hosts the upkeep loop as a supervised service.
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/target/workmarket/config"
	"github.com/target/workmarket/internal/observability/statsd"
	"github.com/target/workmarket/internal/service"
)

// RunnerOptions configures a Runner. Target overrides Market, mainly for tests.
type RunnerOptions struct {
	Market  *service.MarketService
	Target  service.ReaperTarget
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Runner owns one ReaperService for the life of the process.
type Runner struct {
	svc    *service.ReaperService
	logger *slog.Logger
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	target := opts.Target
	if target == nil {
		if opts.Market == nil {
			return nil, errors.New("market service is required")
		}
		target = opts.Market
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := service.NewReaperService(service.ReaperServiceOptions{
		Target:  target,
		Config:  opts.Config,
		Logger:  logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Runner{svc: svc, logger: logger.With("component", "reaper_runner")}, nil
}

// Run blocks until ctx ends.
func (r *Runner) Run(ctx context.Context) error {
	started := time.Now()
	r.logger.InfoContext(ctx, "reaper runner started")
	err := r.svc.Run(ctx)
	r.logger.InfoContext(ctx, "reaper runner stopped", "uptime", time.Since(started).Round(time.Second), "error", err)
	return err
}
