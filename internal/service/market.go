package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/dedup"
	"github.com/target/workmarket/internal/domain/economy"
	domainjob "github.com/target/workmarket/internal/domain/job"
	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
	"github.com/target/workmarket/internal/observability/metrics"
	"github.com/target/workmarket/internal/observability/statsd"
)

// MarketServiceOptions groups dependencies for MarketService.
type MarketServiceOptions struct {
	Events       core.JobEventRepository // Required: append-only job log
	Store        core.JobStore           // Required: projected read model
	Ledger       *LedgerService          // Required: settlement target
	Guard        *dedup.Guard            // Optional: duplicate guard (defaults applied)
	Broadcaster  core.Broadcaster        // Optional: state change observers
	StalePolicy  *domainjob.StalePolicy  // Optional: enables stale claim recovery
	RewardBounds economy.RewardBounds    // Optional: auto_ratings scaling (defaults applied)
	AutoPenalty  float64                 // Optional: penalty for automatic rejections
	Logger       *slog.Logger            // Optional: structured logger
	Metrics      statsd.Sink             // Optional: metrics sink
	Now          func() time.Time        // Optional: clock override for tests
}

// MarketService turns intents into job events. Every state change goes through
// the event log first; the read model is only ever updated by projecting the
// events that were appended.
type MarketService struct {
	events      core.JobEventRepository
	store       core.JobStore
	ledger      *LedgerService
	guard       *dedup.Guard
	broadcaster core.Broadcaster
	stale       *domainjob.StalePolicy
	bounds      economy.RewardBounds
	autoPenalty float64
	logger      *slog.Logger
	metrics     statsd.Sink
	now         func() time.Time

	locks *keyedMutex
	// createMu serializes the dedup check with the append it guards.
	createMu sync.Mutex
}

// NewMarketService constructs a new MarketService.
func NewMarketService(opts MarketServiceOptions) (*MarketService, error) {
	if opts.Events == nil {
		return nil, errors.New("JobEventRepository is required")
	}
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("LedgerService is required")
	}
	if opts.AutoPenalty < 0 {
		return nil, errors.New("AutoPenalty must not be negative")
	}

	guard := opts.Guard
	if guard == nil {
		guard = dedup.NewGuard(dedup.Options{})
	}
	bounds := opts.RewardBounds
	if bounds == (economy.RewardBounds{}) {
		bounds = economy.DefaultRewardBounds()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	svc := &MarketService{
		events:      opts.Events,
		store:       opts.Store,
		ledger:      opts.Ledger,
		guard:       guard,
		broadcaster: opts.Broadcaster,
		stale:       opts.StalePolicy,
		bounds:      bounds,
		autoPenalty: economy.RoundAmount(opts.AutoPenalty),
		logger:      logger.With("component", "market_service"),
		metrics:     opts.Metrics,
		now:         now,
		locks:       newKeyedMutex(),
	}
	svc.logger.Debug("MarketService initialized",
		"dedup_window", guard.Window(),
		"stale_claim_age", opts.StalePolicy.MaxAge(),
		"auto_penalty", svc.autoPenalty,
	)
	return svc, nil
}

// MustNewMarketService constructs a new MarketService and panics on error.
func MustNewMarketService(opts MarketServiceOptions) *MarketService {
	svc, err := NewMarketService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create MarketService: %v", err))
	}
	return svc
}

// Create publishes a new job after the duplicate guard accepts it.
func (s *MarketService) Create(ctx context.Context, req model.CreateJobRequest) (*model.Job, error) {
	start := time.Now()
	job, err := s.create(ctx, req)
	s.emit("create", start, err)
	return job, err
}

func (s *MarketService) create(ctx context.Context, req model.CreateJobRequest) (*model.Job, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var calc *model.RewardCalc
	if req.RewardMode == model.RewardModeAutoRatings {
		c := economy.ComputeReward(*req.Ratings, s.bounds)
		calc = &c
		req.Reward = c.Reward
	}
	req.Reward = economy.RoundAmount(req.Reward)
	if req.Reward <= 0 {
		return nil, apperrors.InvalidJob("reward", "reward must be at least 0.01")
	}

	if req.ParentJobID != nil {
		if _, err := s.store.Get(ctx, *req.ParentJobID); err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.InvalidJob("parent_job_id", "parent job "+*req.ParentJobID+" not found")
			}
			return nil, fmt.Errorf("load parent: %w", err)
		}
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	now := s.now()
	recent, err := s.recentJobs(ctx, now)
	if err != nil {
		return nil, err
	}
	verdict, err := s.guard.Check(dedup.Proposal{
		Title:     req.Title,
		Body:      req.Body,
		CreatedBy: req.CreatedBy,
	}, recent, now)
	if err != nil {
		return nil, err
	}
	if verdict.Bypassed {
		s.logger.DebugContext(ctx, "duplicate guard bypassed", "archetype", verdict.Archetype, "creator", req.CreatedBy)
	}

	ev, err := model.NewJobEvent(uuid.NewString(), 1, model.EventCreated, req.CreatedBy, model.CreatedData{
		Title:       req.Title,
		Body:        req.Body,
		Reward:      req.Reward,
		CreatedBy:   req.CreatedBy,
		ParentJobID: req.ParentJobID,
		Source:      req.Source,
		Fingerprint: verdict.Fingerprint,
		RewardMode:  req.RewardMode,
		RewardCalc:  calc,
	}, now)
	if err != nil {
		return nil, err
	}
	job, err := s.commit(ctx, nil, ev)
	if err != nil {
		return nil, err
	}

	s.ensureAccount(ctx, job.CreatedBy)
	s.logger.InfoContext(ctx, "job created", "job_id", job.ID, "creator", job.CreatedBy, "reward", job.Reward)
	return job, nil
}

func (s *MarketService) recentJobs(ctx context.Context, now time.Time) ([]*model.Job, error) {
	var (
		jobs []*model.Job
		err  error
	)
	if w := s.guard.Window(); w > 0 {
		jobs, err = s.store.Since(ctx, now.Add(-w))
	} else {
		jobs, err = s.store.List(ctx, model.JobListOptions{})
	}
	if err != nil {
		return nil, fmt.Errorf("load recent jobs: %w", err)
	}
	return jobs, nil
}

// Claim gives agent exclusive hold of an open job. When the claim loses to a
// concurrent writer the returned job is the authoritative post-state.
func (s *MarketService) Claim(ctx context.Context, jobID, agent string) (*model.Job, error) {
	start := time.Now()
	job, err := s.claim(ctx, jobID, strings.TrimSpace(agent))
	s.emit("claim", start, err)
	return job, err
}

func (s *MarketService) claim(ctx context.Context, jobID, agent string) (*model.Job, error) {
	if agent == "" {
		return nil, apperrors.ValidationField("agent", "agent is required")
	}
	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case model.JobStatusOpen:
	case model.JobStatusClaimed:
		return job, apperrors.Newf(apperrors.ErrCodeAlreadyClaimed, "job %s is already claimed by %s", job.ID, job.ClaimedBy)
	default:
		return job, apperrors.Newf(apperrors.ErrCodeNotClaimable, "job %s is %s", job.ID, job.Status)
	}
	if err := s.checkParent(ctx, job); err != nil {
		return job, err
	}

	ev, err := s.event(job, 1, model.EventClaimed, agent, model.ClaimedData{Agent: agent})
	if err != nil {
		return nil, err
	}
	next, err := s.commit(ctx, job, ev)
	if apperrors.IsVersionConflict(err) {
		return next, apperrors.Wrap(err, apperrors.ErrCodeRaceConditionClaimFailed, "claim lost to a concurrent writer")
	}
	if err != nil {
		return next, err
	}
	s.ensureAccount(ctx, agent)
	return next, nil
}

// Submit hands in work. Submitting an open job claims it for the submitter first.
func (s *MarketService) Submit(ctx context.Context, jobID, agent, submission string) (*model.Job, error) {
	start := time.Now()
	job, err := s.submit(ctx, jobID, strings.TrimSpace(agent), submission)
	s.emit("submit", start, err)
	return job, err
}

func (s *MarketService) submit(ctx context.Context, jobID, agent, submission string) (*model.Job, error) {
	if agent == "" {
		return nil, apperrors.ValidationField("agent", "agent is required")
	}
	if strings.TrimSpace(submission) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidSubmission, "submission is empty")
	}

	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var events []*model.JobEvent
	implicit := false
	switch job.Status {
	case model.JobStatusOpen:
		if err := s.checkParent(ctx, job); err != nil {
			return job, err
		}
		ev, err := s.event(job, 1, model.EventClaimed, agent, model.ClaimedData{Agent: agent})
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
		implicit = true
	case model.JobStatusClaimed:
		if job.ClaimedBy != agent {
			return job, apperrors.Newf(apperrors.ErrCodeNotOwner, "job %s is claimed by %s", job.ID, job.ClaimedBy)
		}
	default:
		return job, apperrors.Newf(apperrors.ErrCodeNotSubmittable, "job %s is %s", job.ID, job.Status)
	}

	ev, err := s.event(job, int64(len(events)+1), model.EventSubmitted, agent, model.SubmittedData{
		Agent:      agent,
		Submission: submission,
	})
	if err != nil {
		return nil, err
	}
	events = append(events, ev)

	next, err := s.commit(ctx, job, events...)
	if apperrors.IsVersionConflict(err) && implicit {
		return next, apperrors.Wrap(err, apperrors.ErrCodeRaceConditionClaimFailed, "implicit claim lost to a concurrent writer")
	}
	if err != nil {
		return next, err
	}
	if implicit {
		s.ensureAccount(ctx, agent)
	}
	return next, nil
}

// ReviewResult is a reviewed job together with the ledger effects of the review.
type ReviewResult struct {
	Job        *model.Job        `json:"job"`
	Settlement *model.Settlement `json:"settlement,omitempty"`
}

// Review records a reviewer's decision and settles it. The review is durable
// even when settlement fails; Resettle retries the settlement.
func (s *MarketService) Review(ctx context.Context, jobID string, req model.ReviewRequest) (*ReviewResult, error) {
	start := time.Now()
	res, err := s.reviewIntent(ctx, jobID, req)
	s.emit("review", start, err)
	return res, err
}

func (s *MarketService) reviewIntent(ctx context.Context, jobID string, req model.ReviewRequest) (*ReviewResult, error) {
	by := strings.TrimSpace(req.By)
	if by == "" {
		return nil, apperrors.ValidationField("by", "reviewer is required")
	}
	if (req.Payout != nil && *req.Payout < 0) || (req.Penalty != nil && *req.Penalty < 0) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidAmount, "payout and penalty must not be negative")
	}

	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.review(ctx, job, model.ReviewedData{
		Approved: req.Approved,
		Note:     strings.TrimSpace(req.Note),
		By:       by,
		Payout:   req.Payout,
		Penalty:  req.Penalty,
	})
}

// review appends the reviewed event and settles it. Callers hold the job lock.
func (s *MarketService) review(ctx context.Context, job *model.Job, data model.ReviewedData) (*ReviewResult, error) {
	if job.Status != model.JobStatusSubmitted {
		return &ReviewResult{Job: job}, apperrors.Newf(apperrors.ErrCodeNotReviewable, "job %s is %s", job.ID, job.Status)
	}
	ev, err := s.event(job, 1, model.EventReviewed, data.By, data)
	if err != nil {
		return nil, err
	}
	next, err := s.commit(ctx, job, ev)
	if err != nil {
		return &ReviewResult{Job: next}, err
	}

	res := &ReviewResult{Job: next}
	settlement, err := s.ledger.Settle(ctx, next, data)
	if err != nil {
		s.logger.ErrorContext(ctx, "settlement failed after review",
			"job_id", next.ID,
			"approved", data.Approved,
			"error", err,
		)
		return res, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "review of job %s recorded but settlement failed", next.ID)
	}
	res.Settlement = settlement
	s.logger.InfoContext(ctx, "job reviewed",
		"job_id", next.ID,
		"approved", data.Approved,
		"by", data.By,
		"auto", data.Auto,
		"entries", len(settlement.Entries),
	)
	return res, nil
}

// RecordVerification appends a verifier outcome and applies the automatic
// review it implies: a pass approves, a real failure rejects with the automatic
// penalty, and an outcome awaiting human review leaves the job submitted.
func (s *MarketService) RecordVerification(ctx context.Context, jobID string, outcome model.Outcome) (*ReviewResult, error) {
	start := time.Now()
	res, err := s.recordVerification(ctx, jobID, outcome)
	s.emit("verify", start, err)
	return res, err
}

func (s *MarketService) recordVerification(ctx context.Context, jobID string, outcome model.Outcome) (*ReviewResult, error) {
	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusSubmitted {
		return &ReviewResult{Job: job}, apperrors.Newf(apperrors.ErrCodeNotSubmitted, "job %s is %s", job.ID, job.Status)
	}

	actor := "verifier:" + outcome.VerifierName
	ev, err := s.event(job, 1, model.EventVerified, actor, model.VerifiedData{Outcome: outcome})
	if err != nil {
		return nil, err
	}
	next, err := s.commit(ctx, job, ev)
	if err != nil {
		return &ReviewResult{Job: next}, err
	}

	switch {
	case outcome.OK:
		return s.review(ctx, next, model.ReviewedData{
			Approved: true,
			Note:     "auto-approved: " + outcome.Note,
			By:       actor,
			Auto:     true,
		})
	case outcome.Failed():
		data := model.ReviewedData{
			Approved: false,
			Note:     "auto-rejected: " + outcome.Note,
			By:       actor,
			Auto:     true,
		}
		if s.autoPenalty > 0 {
			penalty := s.autoPenalty
			data.Penalty = &penalty
		}
		return s.review(ctx, next, data)
	default:
		s.logger.InfoContext(ctx, "verification awaiting human review", "job_id", next.ID, "verifier", outcome.VerifierName)
		return &ReviewResult{Job: next}, nil
	}
}

// Cancel withdraws a live job.
func (s *MarketService) Cancel(ctx context.Context, jobID, by, reason string) (*model.Job, error) {
	start := time.Now()
	job, err := s.cancel(ctx, jobID, strings.TrimSpace(by), strings.TrimSpace(reason))
	s.emit("cancel", start, err)
	return job, err
}

func (s *MarketService) cancel(ctx context.Context, jobID, by, reason string) (*model.Job, error) {
	if by == "" {
		return nil, apperrors.ValidationField("by", "actor is required")
	}
	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsLive() {
		return job, apperrors.Newf(apperrors.ErrCodeNotCancellable, "job %s is %s", job.ID, job.Status)
	}
	ev, err := s.event(job, 1, model.EventCancelled, by, model.CancelledData{By: by, Reason: reason})
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, job, ev)
}

// Unclaim releases a claim that has been held longer than the stale claim age.
func (s *MarketService) Unclaim(ctx context.Context, jobID, by, reason string) (*model.Job, error) {
	start := time.Now()
	job, err := s.unclaim(ctx, jobID, strings.TrimSpace(by), strings.TrimSpace(reason))
	s.emit("unclaim", start, err)
	return job, err
}

func (s *MarketService) unclaim(ctx context.Context, jobID, by, reason string) (*model.Job, error) {
	if by == "" {
		by = systemActor
	}
	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusClaimed {
		return job, apperrors.Newf(apperrors.ErrCodeNotUnclaimable, "job %s is %s", job.ID, job.Status)
	}
	if s.stale == nil {
		return job, apperrors.New(apperrors.ErrCodeNotUnclaimable, "stale claim recovery is disabled")
	}
	if !s.stale.Stale(job, s.now()) {
		return job, apperrors.Newf(apperrors.ErrCodeNotUnclaimable,
			"claim on job %s is younger than %s", job.ID, s.stale.MaxAge())
	}
	if reason == "" {
		reason = "claim older than " + s.stale.MaxAge().String()
	}
	ev, err := s.event(job, 1, model.EventUnclaimed, by, model.UnclaimedData{
		By:       by,
		Reason:   reason,
		Previous: job.ClaimedBy,
	})
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, job, ev)
}

// ReleaseStaleClaims unclaims every stale claim and returns how many were released.
func (s *MarketService) ReleaseStaleClaims(ctx context.Context, by string) (int64, error) {
	if s.stale == nil {
		return 0, nil
	}
	claimed := model.JobStatusClaimed
	jobs, err := s.store.List(ctx, model.JobListOptions{Status: &claimed})
	if err != nil {
		return 0, fmt.Errorf("list claimed jobs: %w", err)
	}

	now := s.now()
	var (
		released int64
		errs     []error
	)
	for _, job := range jobs {
		if !s.stale.Stale(job, now) {
			continue
		}
		if ctx.Err() != nil {
			return released, ctx.Err()
		}
		if _, err := s.Unclaim(ctx, job.ID, by, ""); err != nil {
			if apperrors.Is(err, apperrors.ErrCodeNotUnclaimable) {
				continue
			}
			errs = append(errs, fmt.Errorf("unclaim %s: %w", job.ID, err))
			continue
		}
		released++
	}
	return released, errors.Join(errs...)
}

// Update edits an open job on behalf of its creator.
func (s *MarketService) Update(ctx context.Context, jobID string, req model.UpdateJobRequest) (*model.Job, error) {
	start := time.Now()
	job, err := s.update(ctx, jobID, req)
	s.emit("update", start, err)
	return job, err
}

func (s *MarketService) update(ctx context.Context, jobID string, req model.UpdateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusOpen {
		return job, apperrors.Newf(apperrors.ErrCodeNotUpdatable, "job %s is %s", job.ID, job.Status)
	}
	if strings.TrimSpace(req.By) != job.CreatedBy {
		return job, apperrors.Newf(apperrors.ErrCodeNotOwner, "job %s belongs to %s", job.ID, job.CreatedBy)
	}

	data := model.UpdatedData{}
	title, body := job.Title, job.Body
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		data.Title, title = &t, t
	}
	if req.Body != nil {
		b := strings.TrimSpace(*req.Body)
		data.Body, body = &b, b
	}
	if req.Reward != nil {
		r := economy.RoundAmount(*req.Reward)
		if r <= 0 {
			return job, apperrors.InvalidJob("reward", "reward must be at least 0.01")
		}
		data.Reward = &r
	}

	if data.Title != nil || data.Body != nil {
		s.createMu.Lock()
		defer s.createMu.Unlock()
		now := s.now()
		recent, err := s.recentJobs(ctx, now)
		if err != nil {
			return job, err
		}
		verdict, err := s.guard.Check(dedup.Proposal{
			Title:     title,
			Body:      body,
			CreatedBy: job.CreatedBy,
			ExcludeID: job.ID,
		}, recent, now)
		if err != nil {
			return job, err
		}
		data.Fingerprint = verdict.Fingerprint
	}

	ev, err := s.event(job, 1, model.EventUpdated, job.CreatedBy, data)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, job, ev)
}

// PurgeJob removes a terminal job from the read model. The purge itself is an
// event, so the log keeps the job's full history.
func (s *MarketService) PurgeJob(ctx context.Context, jobID, by, reason string) error {
	start := time.Now()
	err := s.purgeJob(ctx, jobID, strings.TrimSpace(by), strings.TrimSpace(reason))
	s.emit("purge", start, err)
	return err
}

func (s *MarketService) purgeJob(ctx context.Context, jobID, by, reason string) error {
	if by == "" {
		return apperrors.ValidationField("by", "actor is required")
	}
	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Status.IsTerminal() {
		return apperrors.Newf(apperrors.ErrCodeNotPurgeable, "job %s is %s", job.ID, job.Status)
	}
	ev, err := s.event(job, 1, model.EventPurged, by, model.PurgedData{By: by, Reason: reason})
	if err != nil {
		return err
	}
	_, err = s.commit(ctx, job, ev)
	return err
}

// PurgeRequest selects terminal jobs to purge.
type PurgeRequest struct {
	By     string
	Reason string
	// OlderThan keeps terminal jobs whose last change is more recent than this age.
	OlderThan time.Duration
}

// Purge purges every terminal job last changed before now minus OlderThan.
func (s *MarketService) Purge(ctx context.Context, req PurgeRequest) (int64, error) {
	if req.OlderThan < 0 {
		return 0, apperrors.ValidationField("older_than", "age must not be negative")
	}
	jobs, err := s.store.List(ctx, model.JobListOptions{})
	if err != nil {
		return 0, fmt.Errorf("list jobs: %w", err)
	}

	cutoff := s.now().Add(-req.OlderThan)
	var (
		purged int64
		errs   []error
	)
	for _, job := range jobs {
		if !job.Status.IsTerminal() || job.UpdatedAt.After(cutoff) {
			continue
		}
		if ctx.Err() != nil {
			return purged, ctx.Err()
		}
		if err := s.PurgeJob(ctx, job.ID, req.By, req.Reason); err != nil {
			if apperrors.IsNotFound(err) || apperrors.Is(err, apperrors.ErrCodeNotPurgeable) {
				continue
			}
			errs = append(errs, fmt.Errorf("purge %s: %w", job.ID, err))
			continue
		}
		purged++
	}
	if purged > 0 {
		s.logger.InfoContext(ctx, "purged terminal jobs", "count", purged, "older_than", req.OlderThan, "by", req.By)
	}
	return purged, errors.Join(errs...)
}

// Resettle re-runs settlement for a reviewed job from its recorded review.
// Entries that were already written are skipped.
func (s *MarketService) Resettle(ctx context.Context, jobID string) (*model.Settlement, error) {
	unlock := s.locks.Lock(jobID)
	defer unlock()

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusApproved && job.Status != model.JobStatusRejected {
		return nil, apperrors.Newf(apperrors.ErrCodeConflict, "job %s has not been reviewed", job.ID)
	}

	events, err := s.events.ListByJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	var review *model.ReviewedData
	for _, ev := range events {
		if ev.Type != model.EventReviewed {
			continue
		}
		var d model.ReviewedData
		if err := ev.Decode(&d); err != nil {
			return nil, err
		}
		review = &d
	}
	if review == nil {
		return nil, apperrors.Newf(apperrors.ErrCodeInternal, "job %s has no review event", job.ID)
	}
	return s.ledger.Settle(ctx, job, *review)
}

func (s *MarketService) load(ctx context.Context, jobID string) (*model.Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *MarketService) checkParent(ctx context.Context, job *model.Job) error {
	if job.ParentJobID == nil {
		return nil
	}
	parent, err := s.store.Get(ctx, *job.ParentJobID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.Newf(apperrors.ErrCodeParentNotApproved, "parent job %s not found", *job.ParentJobID)
		}
		return fmt.Errorf("load parent: %w", err)
	}
	if parent.Status != model.JobStatusApproved {
		return apperrors.Newf(apperrors.ErrCodeParentNotApproved, "parent job %s is %s", parent.ID, parent.Status)
	}
	return nil
}

func (s *MarketService) event(job *model.Job, offset int64, typ model.EventType, actor string, payload any) (*model.JobEvent, error) {
	return model.NewJobEvent(job.ID, job.Version+offset, typ, actor, payload, s.now())
}

// commit projects events onto job, appends them to the log and publishes the
// resulting state changes. job is nil for a created event. Events the projector
// rejects are never appended. On a version conflict the read model is rebuilt
// from the log and the fresh state returned with the conflict error.
func (s *MarketService) commit(ctx context.Context, job *model.Job, events ...*model.JobEvent) (*model.Job, error) {
	next := job
	changes := make([]model.StateChange, 0, len(events))
	for _, ev := range events {
		n, err := domainjob.Next(next, ev)
		if err != nil {
			return job, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "project %s event", ev.Type)
		}
		next = n
		change := model.StateChange{
			JobID:     ev.JobID,
			EventType: ev.Type,
			Actor:     ev.Actor,
			Version:   ev.Version,
			At:        ev.CreatedAt,
		}
		if n != nil {
			change.Status = n.Status
		}
		changes = append(changes, change)
	}

	if err := s.events.Append(ctx, events...); err != nil {
		if apperrors.IsVersionConflict(err) && job != nil {
			current, rerr := s.refresh(ctx, job.ID)
			if rerr != nil {
				s.logger.WarnContext(ctx, "refresh after version conflict failed", "job_id", job.ID, "error", rerr)
				current = job
			}
			return current, err
		}
		return job, fmt.Errorf("append %s event: %w", events[0].Type, err)
	}

	var err error
	if next == nil {
		err = s.store.Delete(ctx, events[0].JobID)
	} else {
		err = s.store.Put(ctx, next)
	}
	if err != nil {
		return next, fmt.Errorf("update read model: %w", err)
	}

	if s.broadcaster != nil {
		for _, change := range changes {
			s.broadcaster.StateChanged(ctx, change)
		}
	}
	return next, nil
}

// refresh rebuilds one job's read model from its events.
func (s *MarketService) refresh(ctx context.Context, jobID string) (*model.Job, error) {
	events, err := s.events.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	jobs, err := domainjob.Project(events)
	if err != nil {
		return nil, err
	}
	job := jobs[jobID]
	if job == nil {
		if err := s.store.Delete(ctx, jobID); err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	if err := s.store.Put(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *MarketService) ensureAccount(ctx context.Context, id string) {
	if _, err := s.ledger.EnsureAccount(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "ensure account failed", "account", id, "error", err)
	}
}

func (s *MarketService) emit(intent string, start time.Time, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitJobTransition(s.metrics, metrics.TransitionMetric{
		Intent:   intent,
		Result:   result,
		Duration: time.Since(start),
		Err:      err,
	})
}
