package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/target/workmarket/internal/core"
	domainjob "github.com/target/workmarket/internal/domain/job"
	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/domain/verify"
	apperrors "github.com/target/workmarket/internal/errors"
	"github.com/target/workmarket/internal/observability/metrics"
	"github.com/target/workmarket/internal/observability/statsd"
)

// VerificationRecorder persists verifier outcomes. MarketService implements it.
type VerificationRecorder interface {
	RecordVerification(ctx context.Context, jobID string, outcome model.Outcome) (*ReviewResult, error)
}

// VerificationServiceOptions groups dependencies for VerificationService.
type VerificationServiceOptions struct {
	Jobs         core.JobStore        // Required: read model to scan for submitted jobs
	Recorder     VerificationRecorder // Required: appends verify events
	Registry     *verify.Registry     // Required: verifier dispatch
	Notifier     domainjob.Notifier   // Optional: wakes the loop on submitted events
	Concurrency  int                  // Optional: parallel verifications (default 4)
	Timeout      time.Duration        // Optional: wall clock per verification (default 60s)
	PollInterval time.Duration        // Optional: rescan interval (default 5s)
	Logger       *slog.Logger         // Optional: structured logger
	Metrics      statsd.Sink          // Optional: metrics sink
}

// VerificationService runs the verifier registry against submitted jobs off the
// request path, in a bounded pool.
type VerificationService struct {
	jobs     core.JobStore
	recorder VerificationRecorder
	registry *verify.Registry
	notifier domainjob.Notifier
	sem      *semaphore.Weighted
	workers  int
	timeout  time.Duration
	poll     time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// NewVerificationService constructs a new VerificationService.
func NewVerificationService(opts VerificationServiceOptions) (*VerificationService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Recorder == nil {
		return nil, errors.New("VerificationRecorder is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("verifier Registry is required")
	}

	workers := opts.Concurrency
	if workers <= 0 {
		workers = 4
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &VerificationService{
		jobs:     opts.Jobs,
		recorder: opts.Recorder,
		registry: opts.Registry,
		notifier: opts.Notifier,
		sem:      semaphore.NewWeighted(int64(workers)),
		workers:  workers,
		timeout:  timeout,
		poll:     poll,
		logger:   logger.With("component", "verification_service"),
		metrics:  opts.Metrics,
		inflight: make(map[string]struct{}),
	}, nil
}

// MustNewVerificationService constructs a new VerificationService and panics on error.
func MustNewVerificationService(opts VerificationServiceOptions) *VerificationService {
	svc, err := NewVerificationService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create VerificationService: %v", err))
	}
	return svc
}

// Run verifies submitted jobs until ctx is cancelled. It rescans on every
// submitted event and on a fixed interval, so jobs submitted while the process
// was down are picked up after a restart.
func (s *VerificationService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting verification service",
		"workers", s.workers,
		"timeout", s.timeout,
		"verifiers", s.registry.Names(),
	)

	var wake <-chan struct{}
	if s.notifier != nil {
		unsub, ch := s.notifier.Subscribe(model.EventSubmitted)
		defer unsub()
		wake = ch
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	defer s.wg.Wait()

	for {
		if err := s.sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "verification sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "verification service stopping")
			return nil
		case _, ok := <-wake:
			if !ok {
				wake = nil
			}
		case <-ticker.C:
		}
	}
}

// sweep dispatches every submitted job that has no verifier outcome yet.
func (s *VerificationService) sweep(ctx context.Context) error {
	submitted := model.JobStatusSubmitted
	jobs, err := s.jobs.List(ctx, model.JobListOptions{Status: &submitted})
	if err != nil {
		return fmt.Errorf("list submitted jobs: %w", err)
	}
	for _, job := range jobs {
		if job.AutoVerifiedAt != nil || !s.begin(job.ID) {
			continue
		}
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.end(job.ID)
			return err
		}
		s.wg.Add(1)
		go func(job *model.Job) {
			defer s.wg.Done()
			defer s.sem.Release(1)
			defer s.end(job.ID)
			_, err := s.verify(ctx, job)
			if err != nil && !apperrors.Is(err, apperrors.ErrCodeNotSubmitted) && !errors.Is(err, context.Canceled) {
				s.logger.ErrorContext(ctx, "record verification failed", "job_id", job.ID, "error", err)
			}
		}(job)
	}
	return nil
}

// VerifyNow runs verification for one job synchronously, regardless of any
// earlier outcome. It waits for a free worker slot.
func (s *VerificationService) VerifyNow(ctx context.Context, jobID string) (*ReviewResult, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusSubmitted {
		return &ReviewResult{Job: job}, apperrors.Newf(apperrors.ErrCodeNotSubmitted, "job %s is %s", job.ID, job.Status)
	}
	if !s.begin(job.ID) {
		return &ReviewResult{Job: job}, apperrors.Newf(apperrors.ErrCodeConflict, "job %s is already being verified", job.ID)
	}
	defer s.end(job.ID)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	return s.verify(ctx, job)
}

func (s *VerificationService) verify(ctx context.Context, job *model.Job) (*ReviewResult, error) {
	vctx, cancel := context.WithTimeout(ctx, s.timeout)
	start := time.Now()
	outcome := s.runVerifier(vctx, job)
	cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics.EmitVerification(s.metrics, metrics.VerificationMetric{
		Verifier: outcome.VerifierName,
		Outcome:  outcomeLabel(outcome),
		Duration: time.Since(start),
	})
	s.logger.DebugContext(ctx, "verifier finished",
		"job_id", job.ID,
		"verifier", outcome.VerifierName,
		"ok", outcome.OK,
		"duration", time.Since(start),
	)

	return s.recorder.RecordVerification(ctx, job.ID, outcome)
}

// runVerifier runs the registry off the calling goroutine so the deadline on ctx
// holds even for verifiers that never look at it. Running out of time fails the
// submission, except for the external judge where slowness means unavailable.
func (s *VerificationService) runVerifier(ctx context.Context, job *model.Job) model.Outcome {
	done := make(chan model.Outcome, 1)
	go func() {
		done <- s.registry.Run(ctx, job, job.Submission)
	}()

	var outcome model.Outcome
	select {
	case outcome = <-done:
	case <-ctx.Done():
		v, _, matched := s.registry.Select(job)
		outcome = model.Outcome{Matched: matched, VerifierName: "none"}
		if v != nil {
			outcome.VerifierName = v.Name()
		}
		outcome.Note = model.AwaitingHumanReview + ": verifier did not finish"
	}

	if !errors.Is(ctx.Err(), context.DeadlineExceeded) || outcome.OK {
		return outcome
	}
	if outcome.AwaitingReview() && outcome.VerifierName != verify.NameLLMJudge {
		matched := outcome.Matched
		outcome = verify.Fail(outcome.VerifierName,
			fmt.Sprintf("verification timed out after %s", s.timeout), outcome.Evidence)
		outcome.Matched = matched
	}
	outcome.Evidence = withEvidence(outcome.Evidence, "timeout_seconds", s.timeout.Seconds())
	return outcome
}

func (s *VerificationService) begin(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[jobID]; busy {
		return false
	}
	s.inflight[jobID] = struct{}{}
	return true
}

func (s *VerificationService) end(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, jobID)
}

func outcomeLabel(o model.Outcome) string {
	switch {
	case o.OK:
		return "pass"
	case o.AwaitingReview():
		return "awaiting"
	default:
		return "fail"
	}
}

func withEvidence(ev map[string]any, key string, value any) map[string]any {
	if ev == nil {
		ev = make(map[string]any, 1)
	}
	ev[key] = value
	return ev
}
