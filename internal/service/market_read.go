package service

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	domainjob "github.com/target/workmarket/internal/domain/job"
	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
)

// maxListLimit caps list requests from outer surfaces.
const maxListLimit = 500

// Get returns the projected state of a job.
func (s *MarketService) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return s.load(ctx, jobID)
}

// List returns jobs from the read model, newest first.
func (s *MarketService) List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error) {
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("unknown status %q", *opts.Status))
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, apperrors.Validation("limit and offset must not be negative")
	}
	if opts.Limit == 0 || opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}
	return s.store.List(ctx, opts)
}

// listAll returns the whole read model without the list cap.
func (s *MarketService) listAll(ctx context.Context) ([]*model.Job, error) {
	return s.store.List(ctx, model.JobListOptions{})
}

// Events returns a job's history in version order. Purged jobs keep their history.
func (s *MarketService) Events(ctx context.Context, jobID string) ([]*model.JobEvent, error) {
	events, err := s.events.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	return events, nil
}

// Stats counts jobs per status.
func (s *MarketService) Stats(ctx context.Context) (model.JobStats, error) {
	return s.store.Stats(ctx)
}

// Replay rebuilds the read model from the full log and returns the number of
// jobs it produced.
func (s *MarketService) Replay(ctx context.Context) (int, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load log: %w", err)
	}
	jobs, err := domainjob.Project(events)
	if err != nil {
		return 0, err
	}
	if err := s.store.Reset(ctx, jobs); err != nil {
		return 0, fmt.Errorf("reset read model: %w", err)
	}
	s.logger.InfoContext(ctx, "replayed job log", "events", len(events), "jobs", len(jobs))
	return len(jobs), nil
}

// ReplayReport describes a replay determinism check.
type ReplayReport struct {
	Events        int  `json:"events"`
	Jobs          int  `json:"jobs"`
	Deterministic bool `json:"deterministic"`
	// Drifted lists jobs whose live read model differs from the replayed state.
	Drifted []string `json:"drifted,omitempty"`
}

// VerifyReplay projects the log twice from empty state, checks both projections
// agree, and compares them with the live read model. It does not modify state.
func (s *MarketService) VerifyReplay(ctx context.Context) (*ReplayReport, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}
	first, err := domainjob.Project(events)
	if err != nil {
		return nil, err
	}
	second, err := domainjob.Project(events)
	if err != nil {
		return nil, err
	}

	report := &ReplayReport{
		Events:        len(events),
		Jobs:          len(first),
		Deterministic: reflect.DeepEqual(first, second),
	}

	live, err := s.store.List(ctx, model.JobListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list read model: %w", err)
	}
	seen := make(map[string]bool, len(live))
	for _, job := range live {
		seen[job.ID] = true
		if want, ok := first[job.ID]; !ok || !sameJob(want, job) {
			report.Drifted = append(report.Drifted, job.ID)
		}
	}
	for id := range first {
		if !seen[id] {
			report.Drifted = append(report.Drifted, id)
		}
	}
	sort.Strings(report.Drifted)
	return report, nil
}

// sameJob compares jobs ignoring time zone representation, which may differ
// between the log and a read model that round-tripped through storage.
func sameJob(a, b *model.Job) bool {
	ac, bc := a.Clone(), b.Clone()
	if !ac.CreatedAt.Equal(bc.CreatedAt) || !ac.UpdatedAt.Equal(bc.UpdatedAt) {
		return false
	}
	ac.CreatedAt, bc.CreatedAt = ac.CreatedAt.UTC(), bc.CreatedAt.UTC()
	ac.UpdatedAt, bc.UpdatedAt = ac.UpdatedAt.UTC(), bc.UpdatedAt.UTC()
	return reflect.DeepEqual(ac, bc)
}
