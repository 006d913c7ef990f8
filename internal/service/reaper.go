package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/target/workmarket/config"
	obserrors "github.com/target/workmarket/internal/observability/errors"
	"github.com/target/workmarket/internal/observability/metrics"
	"github.com/target/workmarket/internal/observability/statsd"
)

// ReaperTarget is the marketplace surface the reaper maintains.
type ReaperTarget interface {
	ReleaseStaleClaims(ctx context.Context, by string) (int64, error)
	Purge(ctx context.Context, req PurgeRequest) (int64, error)
}

var _ ReaperTarget = (*MarketService)(nil)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Target  ReaperTarget        // Required: marketplace to maintain
	Config  config.ReaperConfig // Required: Interval must be positive
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink
}

// ReaperService runs marketplace upkeep on a fixed interval: stale claims go
// back to open, and with PurgeMaxAge set, old terminal jobs are purged.
type ReaperService struct {
	target  ReaperTarget
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
	tasks   []upkeepTask
}

// upkeepTask is one step of a sweep. run reports how many jobs it touched.
type upkeepTask struct {
	name string // metric tag
	desc string // error and log prefix
	run  func(context.Context) (int64, error)
}

type upkeepResult struct {
	task  upkeepTask
	count int64
	err   error
}

func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Target == nil {
		return nil, errors.New("ReaperTarget is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}
	if opts.Config.Actor == "" {
		opts.Config.Actor = "reaper"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &ReaperService{
		target:  opts.Target,
		config:  opts.Config,
		logger:  logger.With("component", "reaper_service"),
		metrics: opts.Metrics,
	}
	s.tasks = []upkeepTask{
		{name: "release_stale_claims", desc: "release stale claims", run: s.releaseStaleClaims},
		{name: "purge_terminal", desc: "purge terminal jobs", run: s.purgeTerminalJobs},
	}
	return s, nil
}

// MustNewReaperService panics when opts are invalid.
func MustNewReaperService(opts ReaperServiceOptions) *ReaperService {
	svc, err := NewReaperService(opts)
	if err != nil {
		//nolint:forbidigo // startup wiring fails fast
		panic(fmt.Errorf("failed to create ReaperService: %w", err))
	}
	return svc
}

// Run sweeps once after a random delay of up to a tenth of the interval, then
// on every tick until ctx ends. Cancellation is a clean stop and returns nil.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service",
		"interval", s.config.Interval,
		"purge_max_age", s.config.PurgeMaxAge,
	)

	if spread := int64(s.config.Interval / 10); spread > 0 {
		select {
		case <-time.After(time.Duration(rand.Int64N(spread))):
		case <-ctx.Done():
		}
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		s.logSweepError(ctx, s.RunOnce(ctx))
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs every upkeep task once. A failing task does not stop the
// others and their errors are joined. When every failure was a context
// cancellation, context.Canceled is returned alone.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := time.Now()
	results := make([]upkeepResult, 0, len(s.tasks))
	var errs []error
	onlyCanceled := true
	for _, task := range s.tasks {
		count, err := task.run(ctx)
		results = append(results, upkeepResult{task: task, count: count, err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", task.desc, err))
			onlyCanceled = onlyCanceled && isCtxErr(err)
		}
	}
	s.recordSweep(results, time.Since(start))

	switch {
	case len(errs) == 0:
		return nil
	case onlyCanceled:
		return context.Canceled
	default:
		return fmt.Errorf("cleanup failed: %w", errors.Join(errs...))
	}
}

func (s *ReaperService) releaseStaleClaims(ctx context.Context) (int64, error) {
	count, err := s.target.ReleaseStaleClaims(ctx, s.config.Actor)
	if count > 0 {
		s.logger.InfoContext(ctx, "released stale claims", "count", count)
	}
	return count, err
}

func (s *ReaperService) purgeTerminalJobs(ctx context.Context) (int64, error) {
	if s.config.PurgeMaxAge <= 0 {
		return 0, nil
	}
	count, err := s.target.Purge(ctx, PurgeRequest{
		By:        s.config.Actor,
		Reason:    "retention",
		OlderThan: s.config.PurgeMaxAge,
	})
	if count > 0 {
		s.logger.InfoContext(ctx, "purged terminal jobs", "count", count, "max_age", s.config.PurgeMaxAge)
	}
	return count, err
}

// recordSweep emits one reaper.cleanup count for the sweep and one
// reaper.cleanup_operation count per task. Context cancellation is not
// counted as a failure.
func (s *ReaperService) recordSweep(results []upkeepResult, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	var total int64
	var sweepErr error
	for _, r := range results {
		err := r.err
		if isCtxErr(err) {
			err = nil
		}
		total += r.count
		if sweepErr == nil {
			sweepErr = err
		}

		tags := resultTags(r.count, err)
		tags["operation"] = r.task.name
		s.metrics.Count("reaper.cleanup_operation", 1, tags)
		if err == nil && r.count > 0 {
			s.metrics.Count("reaper.jobs_processed", r.count, metrics.CloneTags(tags))
		}
	}

	tags := resultTags(total, sweepErr)
	s.metrics.Count("reaper.cleanup", 1, tags)
	s.metrics.Timing("reaper.cleanup_duration", elapsed, metrics.CloneTags(tags))
	if sweepErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func resultTags(count int64, err error) map[string]string {
	tags := map[string]string{"result": metrics.Result(count, err)}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	return tags
}

func (s *ReaperService) logSweepError(ctx context.Context, err error) {
	switch {
	case err == nil:
	case isCtxErr(err):
		s.logger.DebugContext(ctx, "reaper sweep interrupted", "error", err)
	default:
		s.logger.ErrorContext(ctx, "reaper sweep failed", "error", err)
	}
}

func isCtxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
