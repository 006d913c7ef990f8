package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/target/workmarket/internal/core"
	domainjob "github.com/target/workmarket/internal/domain/job"
	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/domain/redo"
	apperrors "github.com/target/workmarket/internal/errors"
	"github.com/target/workmarket/internal/observability/notify"
	"github.com/target/workmarket/internal/observability/statsd"
)

const (
	redoHandledPrefix = "redo_handled:"
	redoCapPrefix     = "redo_cap:"
)

// RedoEscalatorOptions groups dependencies for RedoEscalator.
type RedoEscalatorOptions struct {
	Market      *MarketService      // Required: reads jobs and creates redo jobs
	Policy      redo.Policy         // Optional: cap and expected executor
	Markers     *core.MarkerService // Optional: once-only marks (in-memory when nil)
	Notes       core.NoteRepository // Optional: durable operator notes
	Broadcaster core.Broadcaster    // Optional: operator notice delivery
	Notifier    domainjob.Notifier  // Optional: wakes the loop on reviewed events
	Interval    time.Duration       // Optional: rescan interval (default 30s)
	Logger      *slog.Logger        // Optional: structured logger
	Metrics     statsd.Sink         // Optional: metrics sink
	Now         func() time.Time    // Optional: clock override for tests
}

// RedoEscalator reacts to rejected work outside the request path: it issues
// stricter redo jobs and, once a job family hits the cap, tells an operator
// exactly once.
type RedoEscalator struct {
	market      *MarketService
	policy      redo.Policy
	markers     *core.MarkerService
	notes       core.NoteRepository
	broadcaster core.Broadcaster
	notifier    domainjob.Notifier
	interval    time.Duration
	logger      *slog.Logger
	metrics     statsd.Sink
	now         func() time.Time

	scanMu sync.Mutex
}

// ScanResult summarizes one escalation pass.
type ScanResult struct {
	Examined      int      `json:"examined"`
	RedosIssued   []string `json:"redos_issued,omitempty"`
	CapsSignalled []string `json:"caps_signalled,omitempty"`
}

// NewRedoEscalator constructs a new RedoEscalator.
func NewRedoEscalator(opts RedoEscalatorOptions) (*RedoEscalator, error) {
	if opts.Market == nil {
		return nil, errors.New("MarketService is required")
	}
	markers := opts.Markers
	if markers == nil {
		markers = core.NewMarkerService(core.MarkerServiceOptions{})
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RedoEscalator{
		market:      opts.Market,
		policy:      opts.Policy,
		markers:     markers,
		notes:       opts.Notes,
		broadcaster: opts.Broadcaster,
		notifier:    opts.Notifier,
		interval:    interval,
		logger:      logger.With("component", "redo_escalator"),
		metrics:     opts.Metrics,
		now:         now,
	}, nil
}

// MustNewRedoEscalator constructs a new RedoEscalator and panics on error.
func MustNewRedoEscalator(opts RedoEscalatorOptions) *RedoEscalator {
	svc, err := NewRedoEscalator(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create RedoEscalator: %v", err))
	}
	return svc
}

// Run scans for unhandled rejections until ctx is cancelled.
func (e *RedoEscalator) Run(ctx context.Context) error {
	e.logger.InfoContext(ctx, "starting redo escalator",
		"cap", e.policy.Cap,
		"expected_executor", e.policy.ExpectedExecutor,
		"interval", e.interval,
	)

	var wake <-chan struct{}
	if e.notifier != nil {
		unsub, ch := e.notifier.Subscribe(model.EventReviewed)
		defer unsub()
		wake = ch
	}
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		if _, err := e.Scan(ctx); err != nil && ctx.Err() == nil {
			e.logger.WarnContext(ctx, "redo scan failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-wake:
			if !ok {
				wake = nil
			}
		case <-ticker.C:
		}
	}
}

// Scan handles every rejected job not yet handled, oldest review first.
func (e *RedoEscalator) Scan(ctx context.Context) (*ScanResult, error) {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	all, err := e.market.listAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	var rejected []*model.Job
	for _, j := range all {
		if j.Status == model.JobStatusRejected {
			rejected = append(rejected, j)
		}
	}
	sort.SliceStable(rejected, func(a, b int) bool {
		return reviewedAt(rejected[a]).Before(reviewedAt(rejected[b]))
	})

	res := &ScanResult{}
	var errs []error
	for _, job := range rejected {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		handled, err := e.markers.Marked(ctx, redoHandledPrefix+job.ID)
		if err != nil {
			e.logger.WarnContext(ctx, "check handled mark failed", "job_id", job.ID, "error", err)
		}
		if handled {
			continue
		}
		res.Examined++

		created, err := e.handle(ctx, job, all, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("escalate %s: %w", job.ID, err))
			continue
		}
		if created != nil {
			all = append(all, created)
		}
		e.mark(ctx, redoHandledPrefix+job.ID)
	}
	return res, errors.Join(errs...)
}

func (e *RedoEscalator) handle(ctx context.Context, job *model.Job, all []*model.Job, res *ScanResult) (*model.Job, error) {
	d := e.policy.Decide(job, all)
	e.count(d.Action)

	switch d.Action {
	case redo.ActionRedo:
		created, err := e.market.Create(ctx, *d.Redo)
		if apperrors.Is(err, apperrors.ErrCodeDuplicateJob) {
			e.logger.InfoContext(ctx, "redo suppressed as duplicate", "job_id", job.ID, "root_id", d.RootID, "error", err)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		res.RedosIssued = append(res.RedosIssued, created.ID)
		e.logger.InfoContext(ctx, "redo issued",
			"job_id", job.ID,
			"root_id", d.RootID,
			"redo_id", created.ID,
			"level", d.Level,
			"strict", d.Strict,
		)
		return created, nil
	case redo.ActionCapReached:
		signalled, err := e.signalCap(ctx, job, d)
		if err != nil {
			return nil, err
		}
		if signalled {
			res.CapsSignalled = append(res.CapsSignalled, d.RootID)
		}
		return nil, nil
	default:
		e.logger.DebugContext(ctx, "rejection not escalated", "job_id", job.ID, "reason", d.Reason)
		return nil, nil
	}
}

// signalCap emits the redo-cap notice and durable note unless either a mark or
// an existing note shows it was already sent. The mark is set only after the
// note is written so a failed write is retried on the next scan.
func (e *RedoEscalator) signalCap(ctx context.Context, job *model.Job, d redo.Decision) (bool, error) {
	key := redoCapPrefix + d.RootID
	marked, err := e.markers.Marked(ctx, key)
	if err != nil {
		e.logger.WarnContext(ctx, "check redo cap mark failed", "root_id", d.RootID, "error", err)
	}
	if marked {
		return false, nil
	}
	noted, err := e.capNoted(ctx, d.RootID)
	if err != nil {
		return false, err
	}
	if noted {
		e.mark(ctx, key)
		return false, nil
	}

	now := e.now()
	msg := fmt.Sprintf("Job family %s reached the redo cap after %d rejections; no further redo jobs will be issued.",
		d.RootID, d.Rejections)
	if e.notes != nil {
		note := &model.OperatorNote{
			ID:         uuid.NewString(),
			Kind:       notify.NoticeKindRedoCap,
			Importance: model.ImportanceHigh,
			JobID:      job.ID,
			RootJobID:  d.RootID,
			Message:    msg,
			CreatedAt:  now,
		}
		if err := e.notes.Create(ctx, note); err != nil {
			return false, fmt.Errorf("record redo cap note: %w", err)
		}
	}
	if e.broadcaster != nil {
		e.broadcaster.OperatorNotice(ctx, model.OperatorNotice{
			Kind:      notify.NoticeKindRedoCap,
			RootJobID: d.RootID,
			JobID:     job.ID,
			Message:   msg,
			At:        now,
		})
	}
	e.mark(ctx, key)
	e.logger.WarnContext(ctx, "redo cap reached", "root_id", d.RootID, "rejections", d.Rejections, "job_id", job.ID)
	return true, nil
}

func (e *RedoEscalator) mark(ctx context.Context, key string) {
	if _, err := e.markers.MarkOnce(ctx, key); err != nil {
		e.logger.WarnContext(ctx, "persist mark failed", "key", key, "error", err)
	}
}

func (e *RedoEscalator) capNoted(ctx context.Context, root string) (bool, error) {
	if e.notes == nil {
		return false, nil
	}
	notes, err := e.notes.List(ctx, 0)
	if err != nil {
		return false, fmt.Errorf("list operator notes: %w", err)
	}
	for _, n := range notes {
		if n.Kind == notify.NoticeKindRedoCap && n.RootJobID == root {
			return true, nil
		}
	}
	return false, nil
}

func (e *RedoEscalator) count(action redo.Action) {
	if e.metrics == nil {
		return
	}
	e.metrics.Count("redo.decision", 1, map[string]string{"action": string(action)})
}

func reviewedAt(j *model.Job) time.Time {
	if j.ReviewedAt != nil {
		return *j.ReviewedAt
	}
	return j.UpdatedAt
}
